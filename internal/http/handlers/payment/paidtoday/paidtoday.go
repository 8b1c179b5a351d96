// Package paidtoday реализует HTTP-обработчик проверки оплаты за текущий день.
package paidtoday

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/qrpay/internal/http/response"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// Service отвечает, оплатил ли пользователь сегодня.
type Service interface {
	HasPaidToday(ctx context.Context, userUID string, now time.Time) (*models.PaidToday, error)
}

// Handler обрабатывает запросы has-paid-today. Доступ проверяет SelfOrAdminMiddleware.
type Handler struct {
	log        *slog.Logger
	service    Service
	now        func() time.Time
	showDetail bool
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, showDetail bool) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		now:        time.Now,
		showDetail: showDetail,
	}
}

// ServeHTTP godoc
// @Summary Оплата за сегодня
// @Description Сообщает, есть ли у пользователя завершённый платёж после полуночи по времени сервера.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param userId path string true "ID пользователя"
// @Success 200 {object} response.Response{data=models.PaidToday}
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/has-paid-today/{userId} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.paidtoday"

	userUID := chi.URLParam(r, "userId")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_uid", userUID),
	)

	res, err := h.service.HasPaidToday(r.Context(), userUID, h.now())
	if err != nil {
		log.Error("failed to check today's payment", sl.Err(err), sl.Kind(err))
		response.FromError(w, r, err, h.showDetail)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(res))
}
