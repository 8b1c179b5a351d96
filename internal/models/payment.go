package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus статус платежа.
type PaymentStatus string

// Статусы платежа.
const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// MethodTest канал оплаты для тестовых платежей.
const MethodTest = "test"

// minorUnitExponent провайдер присылает суммы в минимальных единицах (копейки, кобо),
// в одной основной единице их 100 для любой валюты.
const minorUnitExponent = -2

// MinorUnitsToMajor переводит сумму провайдера из минимальных единиц в основные.
// Единственное место такого преобразования.
func MinorUnitsToMajor(amount int64) decimal.Decimal {
	return decimal.New(amount, minorUnitExponent)
}

// Payment подтверждённый платёж. Reference глобально уникален и не меняется.
type Payment struct {
	ID                    string
	Reference             string
	UserUID               string
	QRToken               string // Копия QR-токена пользователя на момент записи
	Amount                decimal.Decimal
	Currency              string
	Status                PaymentStatus
	Method                string
	ProviderTransactionID string
	Metadata              Metadata
	CreatedAt             time.Time
	PaidAt                *time.Time
	ProcessedAt           *time.Time
	FailedAt              *time.Time
	RefundedAt            *time.Time
}

// BelongsTo сообщает, принадлежит ли платёж пользователю.
func (p *Payment) BelongsTo(userUID string) bool {
	return p.UserUID == userUID
}

// PaymentView представление платежа для ответа клиенту.
// Сумма отдаётся числом с двумя знаками после запятой.
type PaymentView struct {
	ID        string        `json:"id"`
	Reference string        `json:"reference"`
	Amount    json.Number   `json:"amount" swaggertype:"number"`
	Currency  string        `json:"currency"`
	Status    PaymentStatus `json:"status"`
	Method    string        `json:"method,omitempty"`
	PaidAt    *time.Time    `json:"paidAt"`
	CreatedAt time.Time     `json:"createdAt"`
}

// View возвращает представление платежа.
func (p *Payment) View() PaymentView {
	return PaymentView{
		ID:        p.ID,
		Reference: p.Reference,
		Amount:    json.Number(p.Amount.StringFixed(2)),
		Currency:  p.Currency,
		Status:    p.Status,
		Method:    p.Method,
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
	}
}

// VerifyResult результат подтверждения платежа.
type VerifyResult struct {
	Payment *Payment
	User    *User
	// Created true, если платёж записан этим вызовом.
	Created bool
}

// VerifyResponse тело ответа на подтверждение платежа.
type VerifyResponse struct {
	Payment PaymentView `json:"payment"`
	User    UserView    `json:"user"`
}

// View возвращает тело ответа.
func (r *VerifyResult) View() VerifyResponse {
	return VerifyResponse{
		Payment: r.Payment.View(),
		User:    r.User.View(),
	}
}

// PaidToday ответ на вопрос, оплатил ли пользователь сегодня.
type PaidToday struct {
	Paid        bool         `json:"paid"`
	LastPayment *PaymentView `json:"lastPayment,omitempty"`
}

// ProviderStatus статус транзакции у провайдера.
type ProviderStatus string

// Статусы транзакции у провайдера.
const (
	ProviderSuccess ProviderStatus = "success"
	ProviderFailed  ProviderStatus = "failed"
	ProviderPending ProviderStatus = "pending"
)

// ProviderTransaction нормализованный ответ провайдера о транзакции.
type ProviderTransaction struct {
	Status                ProviderStatus
	Amount                int64 // В минимальных единицах валюты
	Currency              string
	Channel               string
	PaidAt                *time.Time
	ProviderTransactionID string
	Metadata              map[string]any
}
