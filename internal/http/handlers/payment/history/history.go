// Package history реализует HTTP-обработчик истории платежей пользователя.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/qrpay/internal/http/middlewarectx"
	"github.com/magabrotheeeer/qrpay/internal/http/response"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// Service возвращает страницу истории платежей.
type Service interface {
	History(ctx context.Context, userUID string, q models.PageQuery) (*models.PaymentPage, error)
}

// Handler обрабатывает запросы истории платежей.
type Handler struct {
	log        *slog.Logger
	service    Service
	showDetail bool
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, showDetail bool) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		showDetail: showDetail,
	}
}

// ServeHTTP godoc
// @Summary История платежей
// @Description Возвращает платежи текущего пользователя постранично.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param page query int false "Номер страницы" default(1)
// @Param limit query int false "Размер страницы, не больше 100" default(10)
// @Param sortBy query string false "Поле сортировки" Enums(createdAt, amount, status, method)
// @Param order query string false "Направление сортировки" Enums(asc, desc)
// @Success 200 {object} response.Response{data=models.PaymentPageView}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /payments/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.history"

	userUID := middlewarectx.UserUIDFrom(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_uid", userUID),
	)

	q, err := parseQuery(r)
	if err != nil {
		log.Info("invalid pagination parameters", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("page and limit must be integers"))
		return
	}

	page, err := h.service.History(r.Context(), userUID, q)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err), sl.Kind(err))
		response.FromError(w, r, err, h.showDetail)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(page.View()))
}

func parseQuery(r *http.Request) (models.PageQuery, error) {
	values := r.URL.Query()
	q := models.PageQuery{
		SortBy: values.Get("sortBy"),
		Order:  values.Get("order"),
	}
	var err error
	if s := values.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := values.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	return q, nil
}
