// Package notifier отправляет пользователям чеки о подтверждённых платежах.
package notifier

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/lib/smtp"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// ReceiptService формирует и отправляет чеки по событиям payment.verified.
type ReceiptService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewReceiptService создает новый экземпляр ReceiptService.
func NewReceiptService(transport smtp.TransportInterface, log *slog.Logger) *ReceiptService {
	return &ReceiptService{
		transport: transport,
		log:       log,
	}
}

// SendReceipt обрабатывает тело сообщения из очереди. Повторная доставка
// приводит лишь к повторному письму.
func (s *ReceiptService) SendReceipt(body []byte) error {
	const op = "services.notifier.SendReceipt"
	log := s.log.With(slog.String("op", op))

	var event models.PaymentVerifiedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if event.Email == "" {
		log.Warn("payment event without recipient, skipping", slog.String("payment_id", event.PaymentID))
		return nil
	}

	subject := "Чек об оплате " + event.Reference
	return s.sendEmail(log, []string{event.Email}, subject, receiptText(event))
}

func receiptText(ev models.PaymentVerifiedEvent) string {
	paidAt := "-"
	if !ev.PaidAt.IsZero() {
		paidAt = ev.PaidAt.UTC().Format(time.RFC1123)
	}
	method := ev.Method
	if method == "" {
		method = "-"
	}
	return fmt.Sprintf("Здравствуйте, %s!\n\n"+
		"Платёж подтверждён.\n\n"+
		"Номер платежа: %s\n"+
		"Reference: %s\n"+
		"Сумма: %s %s\n"+
		"Способ оплаты: %s\n"+
		"Дата оплаты: %s\n",
		ev.Username, ev.PaymentID, ev.Reference, ev.Amount, ev.Currency, method, paidAt)
}

func (s *ReceiptService) sendEmail(log *slog.Logger, to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	log.Info("receipt sent", slog.Any("to", to))
	return nil
}
