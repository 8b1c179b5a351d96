// Package notifier собирает сервис отправки чеков по событиям о платежах.
package notifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/qrpay/internal/lib/smtp"
	notifierservice "github.com/magabrotheeeer/qrpay/internal/services/notifier"
)

// App потребитель очереди payments.verified.
type App struct {
	conn           *amqp.Connection
	ch             *amqp.Channel
	receiptService *notifierservice.ReceiptService
	logger         *slog.Logger
}

// New подключается к брокеру и объявляет топологию.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ExchangePayments, rabbitmq.PaymentQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:           conn,
		ch:             ch,
		receiptService: notifierservice.NewReceiptService(transport, logger),
		logger:         logger,
	}, nil
}

// Run обрабатывает сообщения до отмены ctx и дожидается текущих обработчиков.
func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueuePaymentVerified, a.receiptService.SendReceipt)
	if err != nil {
		a.logger.Error("failed to start payments.verified consumer", slog.Any("err", err))
		a.close()
		return err
	}

	select {
	case <-ctx.Done():
		a.logger.Info("notifier shutting down gracefully")
		<-done
		a.close()
		return nil
	case <-done:
		a.close()
		return errors.New("app.notifier.Run: delivery channel closed by broker")
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
}
