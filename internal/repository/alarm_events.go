package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// ErrAlarmEventNotFound 报警事件不存在
var ErrAlarmEventNotFound = errors.New("alarm event not found")

const (
	// DefaultListLimit 列表默认返回条数
	DefaultListLimit = 50
	// MaxListLimit 列表最大返回条数
	MaxListLimit = 500
)

// schemaSQL vital_alarm_events 表结构
const schemaSQL = `
	CREATE TABLE IF NOT EXISTS vital_alarm_events (
		event_id       UUID PRIMARY KEY,
		patient_id     VARCHAR(64) NOT NULL,
		event_type     VARCHAR(64) NOT NULL,
		category       VARCHAR(32) NOT NULL,
		alarm_level    VARCHAR(16) NOT NULL,
		previous_level VARCHAR(16) NOT NULL,
		alarm_status   VARCHAR(16) NOT NULL,
		triggered_at   TIMESTAMPTZ NOT NULL,
		trigger_data   JSONB,
		metadata       JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_vital_alarm_events_patient
		ON vital_alarm_events (patient_id, triggered_at DESC);
`

// AlarmEventsRepository 生命体征报警事件仓库
type AlarmEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlarmEventsRepository 创建报警事件仓库
func NewAlarmEventsRepository(db *sql.DB, logger *zap.Logger) *AlarmEventsRepository {
	return &AlarmEventsRepository{
		db:     db,
		logger: logger,
	}
}

// AlarmEventFilters 报警事件过滤条件
type AlarmEventFilters struct {
	AlarmLevel  *string    // GREEN, YELLOW, RED
	AlarmStatus *string    // active, resolved
	StartTime   *time.Time // triggered_at >= StartTime
	Limit       int
}

// EnsureSchema 建表（幂等）
func (r *AlarmEventsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure vital_alarm_events schema: %w", err)
	}
	return nil
}

// CreateAlarmEvent 写入报警事件
func (r *AlarmEventsRepository) CreateAlarmEvent(ctx context.Context, event *models.AlarmEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if event.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	query := `
		INSERT INTO vital_alarm_events (
			event_id,
			patient_id,
			event_type,
			category,
			alarm_level,
			previous_level,
			alarm_status,
			triggered_at,
			trigger_data,
			metadata,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.PatientID,
		event.EventType,
		event.Category,
		event.AlarmLevel,
		event.PreviousLevel,
		event.AlarmStatus,
		event.TriggeredAt,
		jsonOrEmpty(event.TriggerData),
		jsonOrEmpty(event.Metadata),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm event: %w", err)
	}

	r.logger.Debug("Alarm event created",
		zap.String("event_id", event.EventID),
		zap.String("patient_id", event.PatientID),
		zap.String("alarm_level", event.AlarmLevel),
	)
	return nil
}

// GetAlarmEvent 根据 event_id 获取报警事件
func (r *AlarmEventsRepository) GetAlarmEvent(ctx context.Context, eventID string) (*models.AlarmEvent, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	query := `
		SELECT
			event_id, patient_id, event_type, category, alarm_level,
			previous_level, alarm_status, triggered_at, trigger_data, metadata, created_at
		FROM vital_alarm_events
		WHERE event_id = $1
	`

	event, err := scanAlarmEvent(r.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAlarmEventNotFound, eventID)
		}
		return nil, fmt.Errorf("failed to get alarm event: %w", err)
	}
	return event, nil
}

// ListAlarmEvents 按患者查询报警事件（triggered_at 倒序）
func (r *AlarmEventsRepository) ListAlarmEvents(ctx context.Context, patientID string, filters AlarmEventFilters) ([]models.AlarmEvent, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	where := []string{"patient_id = $1"}
	args := []interface{}{patientID}
	argN := 2

	if filters.AlarmLevel != nil {
		where = append(where, fmt.Sprintf("alarm_level = $%d", argN))
		args = append(args, *filters.AlarmLevel)
		argN++
	}
	if filters.AlarmStatus != nil {
		where = append(where, fmt.Sprintf("alarm_status = $%d", argN))
		args = append(args, *filters.AlarmStatus)
		argN++
	}
	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("triggered_at >= $%d", argN))
		args = append(args, *filters.StartTime)
		argN++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT
			event_id, patient_id, event_type, category, alarm_level,
			previous_level, alarm_status, triggered_at, trigger_data, metadata, created_at
		FROM vital_alarm_events
		WHERE %s
		ORDER BY triggered_at DESC
		LIMIT $%d
	`, strings.Join(where, " AND "), argN)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alarm events: %w", err)
	}
	defer rows.Close()

	events := []models.AlarmEvent{}
	for rows.Next() {
		event, err := scanAlarmEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarm events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlarmEvent(row rowScanner) (*models.AlarmEvent, error) {
	var event models.AlarmEvent
	var triggerData, metadata sql.NullString
	if err := row.Scan(
		&event.EventID,
		&event.PatientID,
		&event.EventType,
		&event.Category,
		&event.AlarmLevel,
		&event.PreviousLevel,
		&event.AlarmStatus,
		&event.TriggeredAt,
		&triggerData,
		&metadata,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}
	event.TriggerData = jsonOrEmpty(triggerData.String)
	event.Metadata = jsonOrEmpty(metadata.String)
	return &event, nil
}

func jsonOrEmpty(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}

// RecentAlarms 最近 limit 条报警事件
func (r *AlarmEventsRepository) RecentAlarms(ctx context.Context, patientID string, limit int) ([]models.AlarmEvent, error) {
	return r.ListAlarmEvents(ctx, patientID, AlarmEventFilters{Limit: limit})
}
