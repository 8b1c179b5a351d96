// Package read реализует HTTP-обработчик получения платежа по ID.
//
// Пользователь видит только свои платежи, администратор видит любые.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/qrpay/internal/http/middlewarectx"
	"github.com/magabrotheeeer/qrpay/internal/http/response"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// Service описывает интерфейс чтения платежа.
type Service interface {
	GetPayment(ctx context.Context, id, userUID, role string) (*models.Payment, error)
}

// Handler обрабатывает запросы на получение платежа по идентификатору.
type Handler struct {
	log        *slog.Logger
	service    Service
	showDetail bool
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service, showDetail bool) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		showDetail: showDetail,
	}
}

// ServeHTTP godoc
// @Summary Платёж по ID
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID платежа"
// @Success 200 {object} response.Response{data=models.PaymentView}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		log.Info("invalid payment id", slog.String("id", id), sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payment id"))
		return
	}

	p, err := h.service.GetPayment(r.Context(), id,
		middlewarectx.UserUIDFrom(r.Context()), middlewarectx.RoleFrom(r.Context()))
	if err != nil {
		log.Info("failed to read payment", slog.String("id", id), sl.Err(err), sl.Kind(err))
		response.FromError(w, r, err, h.showDetail)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(p.View()))
}
