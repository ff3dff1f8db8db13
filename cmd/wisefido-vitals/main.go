package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/logger"
	"wisefido-vitals/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.ServiceName)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	vitalsService, err := service.NewVitalsService(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.Fatal("Failed to create vitals service",
			zap.Error(err),
		)
	}
	defer vitalsService.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务
	serviceDone := make(chan error, 1)
	go func() {
		serviceDone <- vitalsService.Start(ctx)
	}()

	// 6. 等待信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
		if err := <-serviceDone; err != nil {
			log.Error("Service shutdown error", zap.Error(err))
		}
	case err := <-serviceDone:
		if err != nil {
			log.Error("Service error", zap.Error(err))
		}
	}

	log.Info("Vitals service stopped")
}
