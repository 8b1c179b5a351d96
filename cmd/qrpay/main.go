// Package main содержит точку входа HTTP-сервиса подтверждения платежей.
//
// @title qrpay API
// @version 1.0
// @description Подтверждение платежей по reference и QR-токены пользователей.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/qrpay/internal/app/qrpay"
	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	log.Info("starting qrpay", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := qrpay.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize qrpay app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("qrpay app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("qrpay app stopped gracefully")
}
