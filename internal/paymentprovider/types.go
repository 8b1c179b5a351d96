package paymentprovider

import "encoding/json"

// verifyResponse ответ провайдера на запрос проверки транзакции.
type verifyResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    *transactionDTO `json:"data"`
}

// transactionDTO данные транзакции в формате провайдера.
type transactionDTO struct {
	ID              json.RawMessage `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"` // В минимальных единицах валюты
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	PaidAt          *string         `json:"paid_at"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata"`
}

// errorResponse тело ответа провайдера с ошибкой.
type errorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}
