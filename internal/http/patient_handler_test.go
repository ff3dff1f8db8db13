package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wisefido-vitals/internal/evaluator"
	"wisefido-vitals/internal/export"
	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/registry"
	"wisefido-vitals/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeAlarmHistory struct {
	alarms    []models.AlarmEvent
	err       error
	lastLimit int
}

func (f *fakeAlarmHistory) RecentAlarms(ctx context.Context, patientID string, limit int) ([]models.AlarmEvent, error) {
	f.lastLimit = limit
	return f.alarms, f.err
}

// envelope 用于解析 Result[T]
type envelope[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func setupRouter(t *testing.T, alarms AlarmHistory, live LiveHub) (*Router, *evaluator.Monitor) {
	t.Helper()
	reg := registry.NewPatientRegistry()
	_, err := reg.Add(models.PatientInfo{PatientID: "P001", Name: "Asha", Age: 72, Gender: models.GenderFemale})
	require.NoError(t, err)

	logger := zap.NewNop()
	monitor := evaluator.NewMonitor(reg, evaluator.DefaultPolicy, evaluator.Sinks{}, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterPatientRoutes(NewPatientHandler(monitor, alarms, live, 10, logger))
	return router, monitor
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const redVitals = `{"heart_rate":118,"spo2":88,"blood_pressure":145,"temperature":38.4}`

func TestHealthz(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	w := do(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResultSuccess, decode[map[string]string](t, w).Code)
}

func TestAddAndListPatients(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	w := do(router, http.MethodPost, "/api/v1/patients", `{"patient_id":"P002","name":"Ravi","age":67,"gender":"Male"}`)
	resp := decode[PatientDetail](t, w)
	require.Equal(t, ResultSuccess, resp.Code, resp.Message)
	assert.Equal(t, "P002", resp.Result.PatientID)
	assert.Equal(t, models.AlertGreen, resp.Result.Level)
	assert.Equal(t, "Patient Stable", resp.Result.Guidance.Banner)

	w = do(router, http.MethodGet, "/api/v1/patients", "")
	list := decode[[]PatientDetail](t, w)
	require.Len(t, list.Result, 2)
	assert.Equal(t, "P001", list.Result[0].PatientID)
	assert.Equal(t, "P002", list.Result[1].PatientID)
}

func TestAddPatient_Rejected(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"duplicate", `{"patient_id":"P001","name":"Asha","age":72,"gender":"Female"}`, "already exists"},
		{"empty id", `{"patient_id":"","name":"X","age":30,"gender":"Male"}`, "patient_id is required"},
		{"age", `{"patient_id":"P009","name":"X","age":121,"gender":"Male"}`, "age"},
		{"gender", `{"patient_id":"P009","name":"X","age":30,"gender":"Unknown"}`, "gender"},
		{"empty body", ``, "request body is required"},
		{"bad json", `{`, "invalid body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decode[any](t, do(router, http.MethodPost, "/api/v1/patients", tt.body))
			assert.Equal(t, ResultError, resp.Code)
			assert.Contains(t, strings.ToLower(resp.Message), tt.msg)
		})
	}
}

func TestGetPatient(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	resp := decode[PatientDetail](t, do(router, http.MethodGet, "/api/v1/patients/P001", ""))
	require.Equal(t, ResultSuccess, resp.Code)
	assert.Equal(t, "Asha", resp.Result.Name)
	assert.Nil(t, resp.Result.Latest)

	missing := decode[any](t, do(router, http.MethodGet, "/api/v1/patients/P404", ""))
	assert.Equal(t, ResultError, missing.Code)
	assert.Contains(t, missing.Message, "not found")
}

func TestAppendVitals_EscalatesToRed(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	var last envelope[ObservationResult]
	for i := 0; i < 7; i++ {
		last = decode[ObservationResult](t, do(router, http.MethodPost, "/api/v1/patients/P001/vitals", redVitals))
		require.Equal(t, ResultSuccess, last.Code, last.Message)
	}
	require.NotNil(t, last.Result.Observation)
	assert.Equal(t, models.AlertRed, last.Result.Level)
	assert.True(t, last.Result.Changed)
	require.NotNil(t, last.Result.Event)
	assert.Equal(t, "RED", last.Result.Event.AlarmLevel)
	assert.Equal(t, "CRITICAL CONDITION", last.Result.Guidance.Banner)

	detail := decode[PatientDetail](t, do(router, http.MethodGet, "/api/v1/patients/P001", ""))
	assert.Equal(t, models.AlertRed, detail.Result.Level)
	assert.Equal(t, 7, detail.Result.Samples)
	require.NotNil(t, detail.Result.Latest)
	assert.Equal(t, 118, detail.Result.Latest.HeartRate)
}

func TestAppendVitals_Errors(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	assert.Equal(t, ResultError, decode[any](t, do(router, http.MethodPost, "/api/v1/patients/P404/vitals", redVitals)).Code)
	assert.Equal(t, ResultError, decode[any](t, do(router, http.MethodPost, "/api/v1/patients/P001/vitals", "")).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodPut, "/api/v1/patients/P001/vitals", redVitals).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodPost, "/api/v1/patients/P001/averages", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/v1/patients/P001/unknown", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/v1/patients/P001/vitals/extra", "").Code)
}

func TestGetVitals_Windows(t *testing.T) {
	router, monitor := setupRouter(t, nil, nil)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		_, err := monitor.Observe(context.Background(), "P001", models.VitalSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			HeartRate: 60 + i, SpO2: 97, BloodPressure: 120, Temperature: 36.6,
		}, "test")
		require.NoError(t, err)
	}

	recent := decode[VitalsWindow](t, do(router, http.MethodGet, "/api/v1/patients/P001/vitals", ""))
	assert.Equal(t, "recent", recent.Result.Window)
	require.Len(t, recent.Result.Samples, 10)
	assert.Equal(t, 62, recent.Result.Samples[0].HeartRate)

	full := decode[VitalsWindow](t, do(router, http.MethodGet, "/api/v1/patients/P001/vitals?window=full", ""))
	assert.Len(t, full.Result.Samples, 12)

	bad := decode[any](t, do(router, http.MethodGet, "/api/v1/patients/P001/vitals?window=week", ""))
	assert.Equal(t, ResultError, bad.Code)
}

func TestGetAverages(t *testing.T) {
	router, monitor := setupRouter(t, nil, nil)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			_, err := monitor.Observe(context.Background(), "P001", models.VitalSample{
				Timestamp: base.Add(time.Duration(i)*time.Minute + time.Duration(j)*10*time.Second),
				HeartRate: 70 + j*10, SpO2: 97, BloodPressure: 120, Temperature: 36.5,
			}, "test")
			require.NoError(t, err)
		}
	}

	resp := decode[[]models.MinuteAverage](t, do(router, http.MethodGet, "/api/v1/patients/P001/averages?minutes=2", ""))
	require.Equal(t, ResultSuccess, resp.Code)
	require.Len(t, resp.Result, 2)
	assert.Equal(t, 75.0, resp.Result[0].HeartRate)
	assert.Equal(t, 2, resp.Result[1].Samples)
}

func TestGetAlarms(t *testing.T) {
	history := &fakeAlarmHistory{alarms: []models.AlarmEvent{{EventID: "e1", PatientID: "P001", AlarmLevel: "RED"}}}
	router, _ := setupRouter(t, history, nil)

	resp := decode[[]models.AlarmEvent](t, do(router, http.MethodGet, "/api/v1/patients/P001/alarms?limit=5", ""))
	require.Equal(t, ResultSuccess, resp.Code)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "e1", resp.Result[0].EventID)
	assert.Equal(t, 5, history.lastLimit)

	do(router, http.MethodGet, "/api/v1/patients/P001/alarms?limit=10000", "")
	assert.Equal(t, maxAlarmLimit, history.lastLimit)

	history.err = errors.New("db down")
	failed := decode[any](t, do(router, http.MethodGet, "/api/v1/patients/P001/alarms", ""))
	assert.Equal(t, ResultError, failed.Code)
	assert.Equal(t, defaultAlarmLimit, history.lastLimit)
}

func TestGetAlarms_Unavailable(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	resp := decode[any](t, do(router, http.MethodGet, "/api/v1/patients/P001/alarms", ""))
	assert.Equal(t, ResultError, resp.Code)
}

func TestExportHistory(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)
	for i := 0; i < 3; i++ {
		do(router, http.MethodPost, "/api/v1/patients/P001/vitals", redVitals)
	}

	w := do(router, http.MethodGet, "/api/v1/patients/P001/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "vitals_P001.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.HistorySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestLive_SendsInitialAndBroadcasts(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	router, _ := setupRouter(t, nil, hub)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/patients/P001/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial models.LiveMessage
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, "P001", initial.PatientID)
	assert.Nil(t, initial.Sample)

	hub.Broadcast("P001", &models.LiveMessage{Event: models.LiveEventAlarm, PatientID: "P001", Level: models.AlertYellow})

	var pushed models.LiveMessage
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, models.LiveEventAlarm, pushed.Event)
	assert.Equal(t, models.AlertYellow, pushed.Level)
}

func TestLive_Disabled(t *testing.T) {
	router, _ := setupRouter(t, nil, nil)

	w := do(router, http.MethodGet, "/api/v1/patients/P001/live", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
