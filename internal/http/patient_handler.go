package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"wisefido-vitals/internal/evaluator"
	"wisefido-vitals/internal/export"
	"wisefido-vitals/internal/guidance"
	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/registry"
	"wisefido-vitals/internal/vitals"

	"go.uber.org/zap"
)

// SourceHTTP HTTP 采样来源标识
const SourceHTTP = "http"

// 报警列表默认/最大条数
const (
	defaultAlarmLimit = 20
	maxAlarmLimit     = 200
)

// AlarmHistory 报警历史来源（数据库或 Redis 缓存）
type AlarmHistory interface {
	RecentAlarms(ctx context.Context, patientID string, limit int) ([]models.AlarmEvent, error)
}

// LiveHub WebSocket 推送（ws.Hub 实现）
type LiveHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, patientID string, initial *models.LiveMessage)
}

// PatientDetail 患者详情
type PatientDetail struct {
	models.PatientInfo
	Level    models.AlertLevel   `json:"level"`
	Latest   *models.VitalSample `json:"latest,omitempty"`
	Samples  int                 `json:"samples"`
	Guidance guidance.Guidance   `json:"guidance"`
}

// ObservationResult 追加采样后的评估结果
type ObservationResult struct {
	*evaluator.Observation
	Guidance guidance.Guidance `json:"guidance"`
}

// VitalsWindow 采样窗口
type VitalsWindow struct {
	PatientID string               `json:"patient_id"`
	Window    string               `json:"window"`
	Samples   []models.VitalSample `json:"samples"`
}

// PatientHandler 患者、采样、报警与导出接口
type PatientHandler struct {
	monitor        *evaluator.Monitor
	alarms         AlarmHistory
	live           LiveHub
	averageMinutes int
	logger         *zap.Logger
}

// NewPatientHandler alarms 与 live 可为空
func NewPatientHandler(monitor *evaluator.Monitor, alarms AlarmHistory, live LiveHub, averageMinutes int, logger *zap.Logger) *PatientHandler {
	if averageMinutes <= 0 {
		averageMinutes = vitals.DefaultAverageMinutes
	}
	return &PatientHandler{
		monitor:        monitor,
		alarms:         alarms,
		live:           live,
		averageMinutes: averageMinutes,
		logger:         logger,
	}
}

// GET /api/v1/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	records := h.monitor.Registry().List()
	items := make([]PatientDetail, 0, len(records))
	for _, rec := range records {
		items = append(items, detailOf(rec))
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// POST /api/v1/patients
// body: {patient_id, name, age, gender}
func (h *PatientHandler) AddPatient(w http.ResponseWriter, r *http.Request) {
	var info models.PatientInfo
	if err := readBodyJSON(r, maxBodyBytes, &info); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}

	rec, err := h.monitor.Registry().Add(info)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	h.logger.Info("Patient added",
		zap.String("patient_id", info.PatientID),
		zap.Int("age", info.Age),
	)
	writeJSON(w, http.StatusOK, Ok(detailOf(rec)))
}

// GET /api/v1/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Ok(detailOf(rec)))
}

// POST /api/v1/patients/{id}/vitals
// body: {timestamp?, heart_rate, spo2, blood_pressure, temperature}
func (h *PatientHandler) AppendVitals(w http.ResponseWriter, r *http.Request, id string) {
	var sample models.VitalSample
	if err := readBodyJSON(r, maxBodyBytes, &sample); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}

	obs, err := h.monitor.Observe(r.Context(), id, sample, SourceHTTP)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(ObservationResult{
		Observation: obs,
		Guidance:    guidance.For(obs.Level),
	}))
}

// GET /api/v1/patients/{id}/vitals?window=recent|full
func (h *PatientHandler) GetVitals(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}

	window := r.URL.Query().Get("window")
	var samples []models.VitalSample
	switch window {
	case "", "recent":
		window = "recent"
		samples = rec.RecentWindow()
	case "full":
		samples = rec.FullHistory()
	default:
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("unknown window: %s", window)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(VitalsWindow{
		PatientID: id,
		Window:    window,
		Samples:   samples,
	}))
}

// GET /api/v1/patients/{id}/averages?minutes=N
func (h *PatientHandler) GetAverages(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}

	minutes := parseInt(r.URL.Query().Get("minutes"), h.averageMinutes)
	if minutes <= 0 {
		minutes = h.averageMinutes
	}
	writeJSON(w, http.StatusOK, Ok(vitals.MinuteAverages(rec.FullHistory(), minutes)))
}

// GET /api/v1/patients/{id}/alarms?limit=N
func (h *PatientHandler) GetAlarms(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}
	if h.alarms == nil {
		writeJSON(w, http.StatusOK, Fail("alarm history is not available"))
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), defaultAlarmLimit)
	if limit <= 0 {
		limit = defaultAlarmLimit
	}
	if limit > maxAlarmLimit {
		limit = maxAlarmLimit
	}

	alarms, err := h.alarms.RecentAlarms(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to load alarm history", zap.String("patient_id", id), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to load alarm history"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(alarms))
}

// GET /api/v1/patients/{id}/export
func (h *PatientHandler) ExportHistory(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}

	history := rec.FullHistory()
	data, err := export.HistoryWorkbook(rec.Info(), history, vitals.MinuteAverages(history, h.averageMinutes))
	if err != nil {
		h.logger.Error("Failed to export history", zap.String("patient_id", id), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to export history"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="vitals_%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /api/v1/patients/{id}/live (WebSocket)
func (h *PatientHandler) Live(w http.ResponseWriter, r *http.Request, id string) {
	if h.live == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}

	initial := &models.LiveMessage{
		Event:     models.LiveEventSample,
		PatientID: id,
		Level:     rec.Level(),
	}
	if latest, ok := rec.Latest(); ok {
		initial.Sample = &latest
	}
	h.live.ServeWS(w, r, id, initial)
}

func (h *PatientHandler) lookup(w http.ResponseWriter, id string) (*registry.PatientRecord, bool) {
	rec, err := h.monitor.Registry().Get(id)
	if err != nil {
		if errors.Is(err, registry.ErrPatientNotFound) {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return nil, false
		}
		h.logger.Error("Failed to get patient", zap.String("patient_id", id), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to get patient"))
		return nil, false
	}
	return rec, true
}

func detailOf(rec *registry.PatientRecord) PatientDetail {
	level := rec.Level()
	d := PatientDetail{
		PatientInfo: rec.Info(),
		Level:       level,
		Samples:     rec.SampleCount(),
		Guidance:    guidance.For(level),
	}
	if latest, ok := rec.Latest(); ok {
		d.Latest = &latest
	}
	return d
}
