package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"wisefido-vitals/internal/ai"
	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/consumer"
	"wisefido-vitals/internal/database"
	"wisefido-vitals/internal/evaluator"
	httpapi "wisefido-vitals/internal/http"
	mqttclient "wisefido-vitals/internal/mqtt"
	rediscommon "wisefido-vitals/internal/redis"
	"wisefido-vitals/internal/registry"
	"wisefido-vitals/internal/repository"
	"wisefido-vitals/internal/simulator"
	"wisefido-vitals/internal/ws"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// VitalsService 生命体征服务（整合各层）
type VitalsService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttclient.Client
	logger      *zap.Logger

	// 各层组件
	registry        *registry.PatientRegistry
	monitor         *evaluator.Monitor
	hub             *ws.Hub
	cacheManager    *consumer.CacheManager
	alarmEventsRepo *repository.AlarmEventsRepository
	mqttConsumer    *consumer.MQTTConsumer
	simulator       *simulator.Runner
	aiClient        *ai.Client
	router          *httpapi.Router
	server          *http.Server
}

// NewVitalsService 创建服务；DB / Redis / MQTT / 模拟器按配置启用
func NewVitalsService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*VitalsService, error) {
	s := &VitalsService{
		config:   cfg,
		logger:   logger,
		registry: registry.NewPatientRegistry(),
		hub:      ws.NewHub(logger),
	}

	// 1. 数据库（报警事件持久化）
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.alarmEventsRepo = repository.NewAlarmEventsRepository(db, logger)
		if err := s.alarmEventsRepo.EnsureSchema(ctx); err != nil {
			s.Stop()
			return nil, err
		}
	}

	// 2. Redis（实时快照 + 报警缓存 + 报警事件流）
	if cfg.RedisEnabled {
		s.redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, s.redisClient); err != nil {
			s.Stop()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		s.cacheManager = consumer.NewCacheManager(cfg, s.redisClient, logger)
	}

	// 3. 评估器
	s.monitor = evaluator.NewMonitor(s.registry, PolicyFromConfig(cfg), s.sinks(), logger)

	// 4. AI 客户端
	aiClient, err := ai.NewClient(ai.Config{
		Provider:     cfg.AI.Provider,
		BaseURL:      cfg.AI.BaseURL,
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		MaxTokens:    cfg.AI.MaxTokens,
		SystemPrompt: cfg.AI.SystemPrompt,
		Timeout:      cfg.AI.Timeout,
		RetryCount:   cfg.AI.RetryCount,
		Referer:      cfg.AI.Referer,
		Title:        cfg.AI.Title,
	}, logger)
	if err != nil {
		s.Stop()
		return nil, err
	}
	s.aiClient = aiClient
	if cfg.AI.APIKey == "" {
		logger.Warn("AI api key is not configured, ask endpoint will report it",
			zap.String("provider", cfg.AI.Provider),
		)
	}

	// 5. HTTP
	s.router = httpapi.NewRouter(logger)
	s.router.RegisterHealthRoutes()
	s.router.RegisterPatientRoutes(httpapi.NewPatientHandler(
		s.monitor,
		s.alarmHistory(),
		s.hub,
		cfg.Vitals.AverageMinutes,
		logger,
	))
	s.router.RegisterAIRoutes(httpapi.NewAIHandler(s.aiClient, logger))
	s.server = &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: s.router,
	}

	// 6. MQTT 采样接入
	if cfg.MQTTEnabled {
		client, err := mqttclient.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.mqttClient = client
		s.mqttConsumer = consumer.NewMQTTConsumer(s.monitor, client, cfg.MQTT.SampleTopic, cfg.MQTT.QoS, logger)
	}

	// 7. 模拟器
	if cfg.Vitals.Simulator.Enabled {
		s.simulator = simulator.NewRunner(
			s.monitor,
			simulator.NewGenerator(cfg.Vitals.Simulator.Seed),
			cfg.Vitals.Simulator.Interval,
			logger,
		)
	}

	return s, nil
}

// PolicyFromConfig 由配置构造报警策略
func PolicyFromConfig(cfg *config.Config) evaluator.Policy {
	alert := cfg.Vitals.Alert
	return evaluator.Policy{
		WindowSize: alert.WindowSize,
		Red: evaluator.Thresholds{
			HeartRateAbove:     alert.Red.HeartRateAbove,
			SpO2Below:          alert.Red.SpO2Below,
			BloodPressureAbove: alert.Red.BloodPressureAbove,
			TemperatureAbove:   alert.Red.TemperatureAbove,
		},
		Yellow: evaluator.Thresholds{
			HeartRateAbove:     alert.Yellow.HeartRateAbove,
			SpO2Below:          alert.Yellow.SpO2Below,
			BloodPressureAbove: alert.Yellow.BloodPressureAbove,
			TemperatureAbove:   alert.Yellow.TemperatureAbove,
		},
	}
}

// sinks 只放入已启用的下游，避免接口持有 nil 指针
func (s *VitalsService) sinks() evaluator.Sinks {
	sinks := evaluator.Sinks{Live: s.hub}
	if s.alarmEventsRepo != nil {
		sinks.Events = s.alarmEventsRepo
	}
	if s.cacheManager != nil {
		sinks.Cache = s.cacheManager
	}
	return sinks
}

// alarmHistory 优先数据库，其次 Redis 缓存
func (s *VitalsService) alarmHistory() httpapi.AlarmHistory {
	if s.alarmEventsRepo != nil {
		return s.alarmEventsRepo
	}
	if s.cacheManager != nil {
		return s.cacheManager
	}
	return nil
}

// Handler HTTP 处理器
func (s *VitalsService) Handler() http.Handler {
	return s.router
}

// Monitor 评估器
func (s *VitalsService) Monitor() *evaluator.Monitor {
	return s.monitor
}

// Start 启动服务，阻塞直到 ctx 取消或 HTTP 服务出错
func (s *VitalsService) Start(ctx context.Context) error {
	s.logger.Info("Starting vitals service",
		zap.String("addr", s.config.HTTP.Addr),
		zap.Bool("db_enabled", s.db != nil),
		zap.Bool("redis_enabled", s.redisClient != nil),
		zap.Bool("mqtt_enabled", s.mqttConsumer != nil),
		zap.Bool("simulator_enabled", s.simulator != nil),
	)

	if s.mqttConsumer != nil {
		if err := s.mqttConsumer.Start(ctx); err != nil {
			return err
		}
	}

	if s.simulator != nil {
		go func() {
			if err := s.simulator.Start(ctx); err != nil {
				s.logger.Error("Simulator stopped with error", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}

// Stop 释放外部连接
func (s *VitalsService) Stop() error {
	s.logger.Info("Stopping vitals service")

	if s.mqttConsumer != nil {
		if err := s.mqttConsumer.Stop(); err != nil {
			s.logger.Warn("Failed to unsubscribe mqtt", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.hub != nil {
		s.hub.Close()
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis",
				zap.Error(err),
			)
		}
	}
	return nil
}
