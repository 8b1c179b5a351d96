package models

import (
	"strings"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
)

// Значения пагинации по умолчанию.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Направления сортировки.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// paymentSortColumns белый список полей сортировки истории платежей.
// Ключ приходит от клиента, значение подставляется в SQL.
var paymentSortColumns = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"amount":     "amount",
	"status":     "status",
	"method":     "method",
}

// PageQuery параметры страницы истории платежей.
type PageQuery struct {
	Page   int
	Limit  int
	SortBy string
	Order  string
}

// Normalize подставляет значения по умолчанию и проверяет поле и направление сортировки.
func (q PageQuery) Normalize() (PageQuery, error) {
	const op = e.Op("models.PageQuery.Normalize")

	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	col, ok := paymentSortColumns[q.SortBy]
	if !ok {
		return PageQuery{}, e.E(op, e.InvalidInput, "unsupported sort field: "+q.SortBy)
	}
	q.SortBy = col

	switch strings.ToLower(q.Order) {
	case "":
		q.Order = OrderDesc
	case OrderAsc:
		q.Order = OrderAsc
	case OrderDesc:
		q.Order = OrderDesc
	default:
		return PageQuery{}, e.E(op, e.InvalidInput, "unsupported sort order: "+q.Order)
	}
	return q, nil
}

// Offset смещение первой записи страницы.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// SortColumn возвращает колонку сортировки из белого списка.
// Для неизвестного значения возвращает created_at.
func (q PageQuery) SortColumn() string {
	if col, ok := paymentSortColumns[q.SortBy]; ok {
		return col
	}
	return "created_at"
}

// SortDirection возвращает ASC или DESC.
func (q PageQuery) SortDirection() string {
	if strings.EqualFold(q.Order, OrderAsc) {
		return "ASC"
	}
	return "DESC"
}

// PaymentPage страница истории платежей.
type PaymentPage struct {
	Items []*Payment
	Total int
	Page  int
	Limit int
}

// PaymentPageView представление страницы для ответа клиенту.
type PaymentPageView struct {
	Items []PaymentView `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int           `json:"pages"`
}

// View возвращает представление страницы.
func (p *PaymentPage) View() PaymentPageView {
	items := make([]PaymentView, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, item.View())
	}
	pages := 0
	if p.Limit > 0 {
		pages = (p.Total + p.Limit - 1) / p.Limit
	}
	return PaymentPageView{
		Items: items,
		Total: p.Total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: pages,
	}
}
