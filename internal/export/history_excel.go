package export

import (
	"fmt"

	"wisefido-vitals/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	// HistorySheet 原始采样工作表
	HistorySheet = "History"
	// AverageSheet 每分钟均值工作表
	AverageSheet = "Per-Minute Average"

	timeLayout = "2006-01-02 15:04:05"
)

// HistoryHeader 原始采样表头
var HistoryHeader = []string{
	"Timestamp",
	"Heart Rate",
	"SpO2",
	"Blood Pressure",
	"Temperature",
}

// AverageHeader 每分钟均值表头
var AverageHeader = []string{
	"Minute",
	"Samples",
	"Heart Rate",
	"SpO2",
	"Blood Pressure",
	"Temperature",
}

// HistoryWorkbook 生成患者采样历史 Excel 文件
func HistoryWorkbook(patient models.PatientInfo, history []models.VitalSample, averages []models.MinuteAverage) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(AverageSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	historyRows := make([][]interface{}, 0, len(history))
	for _, s := range history {
		historyRows = append(historyRows, []interface{}{
			s.Timestamp.Format(timeLayout),
			s.HeartRate,
			s.SpO2,
			s.BloodPressure,
			s.Temperature,
		})
	}
	if err := writeSheet(f, HistorySheet, HistoryHeader, historyRows, headerStyle); err != nil {
		return nil, err
	}

	averageRows := make([][]interface{}, 0, len(averages))
	for _, a := range averages {
		averageRows = append(averageRows, []interface{}{
			a.Minute.Format("2006-01-02 15:04"),
			a.Samples,
			a.HeartRate,
			a.SpO2,
			a.BloodPressure,
			a.Temperature,
		})
	}
	if err := writeSheet(f, AverageSheet, AverageHeader, averageRows, headerStyle); err != nil {
		return nil, err
	}

	// 患者信息写入文档属性
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Vitals %s", patient.PatientID),
		Subject: patient.Name,
	}); err != nil {
		return nil, fmt.Errorf("failed to set doc props: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", lastCol, 15); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+2, sheet, err)
		}
	}
	return nil
}
