package models

import "time"

// PaymentVerifiedEvent событие о новом подтверждённом платеже.
// Публикуется после записи платежа, потребитель отправляет чек.
type PaymentVerifiedEvent struct {
	PaymentID string    `json:"payment_id"`
	Reference string    `json:"reference"`
	UserUID   string    `json:"user_uid"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Method    string    `json:"method"`
	PaidAt    time.Time `json:"paid_at"`
}

// NewPaymentVerifiedEvent собирает событие из платежа и пользователя.
func NewPaymentVerifiedEvent(p *Payment, u *User) PaymentVerifiedEvent {
	paidAt := p.CreatedAt
	if p.PaidAt != nil {
		paidAt = *p.PaidAt
	}
	return PaymentVerifiedEvent{
		PaymentID: p.ID,
		Reference: p.Reference,
		UserUID:   p.UserUID,
		Username:  u.Username,
		Email:     u.Email,
		Amount:    p.Amount.StringFixed(2),
		Currency:  p.Currency,
		Method:    p.Method,
		PaidAt:    paidAt,
	}
}
