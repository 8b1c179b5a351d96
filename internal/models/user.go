// Package models содержит доменные модели сервиса: пользователей, платежи
// и представления, которые отдаются клиенту.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Значения проекции статуса оплаты.
const (
	PaymentStatusNone   = "none"
	PaymentStatusActive = "active"
	PaymentTypeOneTime  = "one-time"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                  string     // Уникальный идентификатор пользователя
	Email                string     // Электронная почта
	Username             string     // Имя пользователя (уникальное)
	PasswordHash         string     // Хэш пароля пользователя
	Role                 string     // Роль пользователя, admin или user
	QRToken              string     // Токен, который кодируется в QR-код пользователя
	PasswordResetToken   *string    // Токен сброса пароля
	PasswordResetExpires *time.Time // Срок действия токена сброса пароля

	// Проекция последней оплаты, обновляется при подтверждении платежа.
	PaymentStatus       string
	LastPaymentDate     *time.Time
	LastPaymentAmount   decimal.NullDecimal
	LastPaymentCurrency *string
	PaymentType         *string

	DeletedAt *time.Time
	CreatedAt time.Time
}

// IsAdmin сообщает, есть ли у пользователя права администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PaymentProjection четыре поля проекции оплаты, которые обновляются одной операцией.
type PaymentProjection struct {
	Status   string
	Type     string
	Date     time.Time
	Amount   decimal.Decimal
	Currency string
}

// ProjectionFromPayment строит проекцию из записанного платежа.
func ProjectionFromPayment(p *Payment) PaymentProjection {
	date := p.CreatedAt
	if p.PaidAt != nil {
		date = *p.PaidAt
	}
	return PaymentProjection{
		Status:   PaymentStatusActive,
		Type:     PaymentTypeOneTime,
		Date:     date,
		Amount:   p.Amount,
		Currency: p.Currency,
	}
}

// UserView представление пользователя для ответа клиенту.
// Хэш пароля и токены сброса пароля в него не попадают.
type UserView struct {
	ID                  string           `json:"id"`
	Email               string           `json:"email"`
	Username            string           `json:"username"`
	Role                string           `json:"role"`
	QRToken             string           `json:"qrToken"`
	PaymentStatus       string           `json:"paymentStatus"`
	PaymentType         string           `json:"paymentType,omitempty"`
	LastPaymentDate     *time.Time       `json:"lastPaymentDate,omitempty"`
	LastPaymentAmount   *decimal.Decimal `json:"lastPaymentAmount,omitempty"`
	LastPaymentCurrency string           `json:"lastPaymentCurrency,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
}

// View возвращает представление пользователя без чувствительных полей.
func (u *User) View() UserView {
	v := UserView{
		ID:              u.UID,
		Email:           u.Email,
		Username:        u.Username,
		Role:            u.Role,
		QRToken:         u.QRToken,
		PaymentStatus:   u.PaymentStatus,
		LastPaymentDate: u.LastPaymentDate,
		CreatedAt:       u.CreatedAt,
	}
	if v.PaymentStatus == "" {
		v.PaymentStatus = PaymentStatusNone
	}
	if u.PaymentType != nil {
		v.PaymentType = *u.PaymentType
	}
	if u.LastPaymentAmount.Valid {
		amount := u.LastPaymentAmount.Decimal
		v.LastPaymentAmount = &amount
	}
	if u.LastPaymentCurrency != nil {
		v.LastPaymentCurrency = *u.LastPaymentCurrency
	}
	return v
}
