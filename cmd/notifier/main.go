// Package main содержит точку входа сервиса отправки чеков.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/qrpay/internal/app/notifier"
	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	log.Info("starting notifier", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := notifier.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize notifier app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("notifier app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("notifier app stopped gracefully")
}
