// Package registry 患者登记表：患者 ID -> PatientRecord
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/vitals"
)

var (
	ErrEmptyPatientID   = errors.New("patient_id is required")
	ErrDuplicatePatient = errors.New("patient already exists")
	ErrPatientNotFound  = errors.New("patient not found")
	ErrInvalidAge       = errors.New("age out of range")
	ErrInvalidGender    = errors.New("invalid gender")
)

// PatientRecord 患者记录，独占一个 SampleStore
// 每个患者一把锁，不同患者之间互不阻塞。
type PatientRecord struct {
	info models.PatientInfo

	mu        sync.Mutex
	store     *vitals.SampleStore
	seq       uint64
	levelSeq  uint64
	lastLevel models.AlertLevel
}

// Info 返回患者基础信息
func (p *PatientRecord) Info() models.PatientInfo {
	return p.info
}

// ID 返回患者 ID
func (p *PatientRecord) ID() string {
	return p.info.PatientID
}

// Observe 追加采样并返回追加后的最近窗口快照及序号
// 序号用于 CommitLevel 丢弃乱序提交的评估结果。
func (p *PatientRecord) Observe(sample models.VitalSample) ([]models.VitalSample, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.store.Append(sample)
	p.seq++
	return p.store.RecentWindow(), p.seq
}

// CommitLevel 提交某次采样的评估结果，返回之前的级别和是否发生变化
// 比已提交序号更旧的结果被忽略（changed=false）。
func (p *PatientRecord) CommitLevel(seq uint64, level models.AlertLevel) (models.AlertLevel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.lastLevel
	if seq <= p.levelSeq {
		return prev, false
	}
	p.levelSeq = seq
	p.lastLevel = level
	return prev, prev != level
}

// Level 返回最近一次提交的报警级别
func (p *PatientRecord) Level() models.AlertLevel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastLevel
}

// RecentWindow 最近窗口快照
func (p *PatientRecord) RecentWindow() []models.VitalSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.RecentWindow()
}

// FullHistory 完整历史快照
func (p *PatientRecord) FullHistory() []models.VitalSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.FullHistory()
}

// Latest 最新采样
func (p *PatientRecord) Latest() (models.VitalSample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Latest()
}

// SampleCount 当前历史条数
func (p *PatientRecord) SampleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Len()
}

// PatientRegistry 患者登记表
// 锁只保护成员关系；采样读写走各自 PatientRecord 的锁。
type PatientRegistry struct {
	mu       sync.RWMutex
	patients map[string]*PatientRecord
}

// NewPatientRegistry 创建登记表
func NewPatientRegistry() *PatientRegistry {
	return &PatientRegistry{
		patients: make(map[string]*PatientRecord),
	}
}

// Add 新增患者，ID 为空或已存在时拒绝
func (r *PatientRegistry) Add(info models.PatientInfo) (*PatientRecord, error) {
	if info.PatientID == "" {
		return nil, ErrEmptyPatientID
	}
	if info.Age < models.MinPatientAge || info.Age > models.MaxPatientAge {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAge, info.Age)
	}
	if !info.Gender.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGender, info.Gender)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patients[info.PatientID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePatient, info.PatientID)
	}

	record := &PatientRecord{
		info:  info,
		store: vitals.NewSampleStore(),
	}
	r.patients[info.PatientID] = record
	return record, nil
}

// Get 按 ID 查询患者
func (r *PatientRegistry) Get(patientID string) (*PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}
	return record, nil
}

// List 按 ID 升序返回所有患者
func (r *PatientRegistry) List() []*PatientRecord {
	r.mu.RLock()
	out := make([]*PatientRecord, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].info.PatientID < out[j].info.PatientID })
	return out
}

// Len 患者数量
func (r *PatientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patients)
}
