// Package paymentprovider реализует клиент проверки транзакций у платёжного провайдера.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

const maxBodySize = 1 << 20

// Observer получает статус и длительность каждого запроса к провайдеру.
type Observer interface {
	ObserveProviderRequest(status int, d time.Duration)
}

// Client клиент API провайдера. Запросы не повторяются, редиректы не выполняются.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	observer   Observer
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиент. Используется копия hc: политика редиректов
// переопределяется, нулевой Timeout заменяется таймаутом из настроек.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver подключает сбор метрик запросов.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient создаёт клиент провайдера по настройкам cfg.
func NewClient(cfg config.PaymentProvider, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.httpClient
	if hc.Timeout <= 0 {
		hc.Timeout = timeout
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.httpClient = &hc
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// VerifyTransaction запрашивает у провайдера состояние транзакции reference.
//
// Нет ответа (сеть, таймаут) или ответ не разобран: ProviderUnavailable.
// Ответ не 2xx: ProviderRejected с кодом и сообщением провайдера.
// Не задан секретный ключ: ConfigurationError.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*models.ProviderTransaction, error) {
	const op = e.Op("paymentprovider.VerifyTransaction")
	if c.secretKey == "" {
		return nil, e.E(op, e.ConfigurationError, "payment provider secret key is not set")
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference))
	if err != nil {
		return nil, e.E(op, e.Internal, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(0, time.Since(start))
		return nil, e.E(op, e.ProviderUnavailable, "payment provider did not respond", err)
	}
	defer resp.Body.Close()
	c.observe(resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, e.E(op, e.ProviderUnavailable, "failed to read provider response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, e.E(op, e.ProviderRejected, resp.StatusCode, rejectionMessage(resp.StatusCode, body))
	}

	var payload verifyResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, e.E(op, e.ProviderUnavailable, "malformed provider response", err)
	}
	if !payload.Status || payload.Data == nil {
		msg := payload.Message
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, e.E(op, e.ProviderRejected, resp.StatusCode, msg)
	}

	tx, err := normalize(payload.Data)
	if err != nil {
		return nil, e.E(op, e.ProviderUnavailable, "malformed provider response", err)
	}
	return tx, nil
}

func (c *Client) observe(status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveProviderRequest(status, d)
	}
}

func rejectionMessage(status int, body []byte) string {
	if status >= http.StatusMultipleChoices && status < http.StatusBadRequest {
		return fmt.Sprintf("provider responded with redirect %d", status)
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}
	return fmt.Sprintf("provider responded with status %d", status)
}

func normalize(d *transactionDTO) (*models.ProviderTransaction, error) {
	tx := &models.ProviderTransaction{
		Status:                normalizeStatus(d.Status),
		Amount:                d.Amount,
		Currency:              strings.ToUpper(d.Currency),
		Channel:               d.Channel,
		ProviderTransactionID: transactionID(d.ID),
		Metadata:              decodeMetadata(d.Metadata),
	}
	if d.PaidAt != nil && *d.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339Nano, *d.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("paid_at: %w", err)
		}
		paidAt = paidAt.UTC()
		tx.PaidAt = &paidAt
	}
	if d.GatewayResponse != "" {
		if tx.Metadata == nil {
			tx.Metadata = map[string]any{}
		}
		tx.Metadata["gateway_response"] = d.GatewayResponse
	}
	return tx, nil
}

// transactionID принимает идентификатор числом или строкой.
func transactionID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func normalizeStatus(s string) models.ProviderStatus {
	switch strings.ToLower(s) {
	case "success":
		return models.ProviderSuccess
	case "failed", "abandoned", "reversed":
		return models.ProviderFailed
	default:
		return models.ProviderPending
	}
}

// decodeMetadata принимает объект, JSON-строку с объектом или пустое значение.
func decodeMetadata(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if err := json.Unmarshal([]byte(s), &obj); err == nil {
			return obj
		}
		return map[string]any{"value": s}
	}
	return nil
}
