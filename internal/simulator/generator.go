// Package simulator 模拟传感器：为已登记患者周期性生成随机生命体征
package simulator

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"wisefido-vitals/internal/evaluator"
	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

const (
	// SourceName 采样来源标识
	SourceName = "simulator"
	// DefaultInterval 默认采样间隔
	DefaultInterval = time.Second
)

// 取值范围（闭区间）
const (
	HeartRateMin     = 60
	HeartRateMax     = 120
	SpO2Min          = 85
	SpO2Max          = 99
	BloodPressureMin = 90
	BloodPressureMax = 150
	TemperatureMin   = 36.0
	TemperatureMax   = 39.0
)

// Generator 随机采样生成器
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator 创建生成器，seed 相同则序列相同
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Next 生成一条采样
func (g *Generator) Next() models.VitalSample {
	g.mu.Lock()
	defer g.mu.Unlock()

	temp := TemperatureMin + g.rnd.Float64()*(TemperatureMax-TemperatureMin)
	return models.VitalSample{
		Timestamp:     g.now(),
		HeartRate:     g.intBetween(HeartRateMin, HeartRateMax),
		SpO2:          g.intBetween(SpO2Min, SpO2Max),
		BloodPressure: g.intBetween(BloodPressureMin, BloodPressureMax),
		Temperature:   math.Round(temp*10) / 10,
	}
}

func (g *Generator) intBetween(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}

// Runner 定时为所有患者生成采样并交给 Monitor
type Runner struct {
	monitor   *evaluator.Monitor
	generator *Generator
	interval  time.Duration
	logger    *zap.Logger
}

// NewRunner 创建模拟器
func NewRunner(monitor *evaluator.Monitor, generator *Generator, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		monitor:   monitor,
		generator: generator,
		interval:  interval,
		logger:    logger,
	}
}

// Start 启动模拟循环，阻塞直到 ctx 取消
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("Simulator started",
		zap.Duration("interval", r.interval),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Simulator stopped")
			return nil
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick 为每个已登记患者生成一条采样
func (r *Runner) Tick(ctx context.Context) int {
	count := 0
	for _, patient := range r.monitor.Registry().List() {
		if _, err := r.monitor.Observe(ctx, patient.ID(), r.generator.Next(), SourceName); err != nil {
			r.logger.Error("Failed to observe simulated sample",
				zap.String("patient_id", patient.ID()),
				zap.Error(err),
			)
			continue
		}
		count++
	}
	return count
}
