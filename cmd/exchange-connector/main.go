package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/app"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/config"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
)

func main() {
	// Флаг --config
	configPath := pflag.String("config", "config/config.yaml", "path to config file")
	pflag.Parse()

	// 1. Загрузить конфиг
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, DevMode: cfg.Logging.DevMode})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Logging.DevMode {
		cfg.Print()
	}

	// 3. Контекст с отменой по сигналам
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Sugar().Infow("starting service",
		"service.name", cfg.ServiceName,
		"service.version", cfg.ServiceVersion,
	)

	// 4. Запуск основного приложения
	if err := app.Run(ctx, cfg, log); err != nil {
		log.Sugar().Errorw("application exited with error", "error", err)
		os.Exit(1)
	}

	log.Sugar().Infow("shutdown complete")
}
