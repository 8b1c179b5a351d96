// Package verify реализует HTTP-обработчик подтверждения платежа по reference.
//
// Сумма, валюта и способ оплаты берутся только из ответа провайдера. Поля суммы
// в теле запроса игнорируются.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/qrpay/internal/http/middlewarectx"
	"github.com/magabrotheeeer/qrpay/internal/http/response"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

const maxBodySize = 1 << 16

// Request тело запроса на подтверждение платежа.
type Request struct {
	Reference string `json:"reference" validate:"required,max=200"`
}

// Service подтверждает платёж.
type Service interface {
	Verify(ctx context.Context, reference, userUID string) (*models.VerifyResult, error)
}

// Handler обрабатывает запросы на подтверждение платежа.
type Handler struct {
	log        *slog.Logger
	service    Service
	validate   *validator.Validate
	showDetail bool
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, showDetail bool) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		validate:   validator.New(),
		showDetail: showDetail,
	}
}

// ServeHTTP godoc
// @Summary Подтверждение платежа
// @Description Проверяет транзакцию у провайдера и записывает платёж. Повторный запрос
// @Description с тем же reference возвращает уже записанный платёж.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Reference транзакции"
// @Success 200 {object} response.Response{data=models.VerifyResponse} "Платёж подтверждён"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или провайдер отклонил транзакцию"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Reference принадлежит другому пользователю"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Failure 503 {object} response.ErrorResponse "Провайдер недоступен, запрос можно повторить"
// @Router /payments/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"

	userUID := middlewarectx.UserUIDFrom(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_uid", userUID),
	)

	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	res, err := h.service.Verify(r.Context(), req.Reference, userUID)
	if err != nil {
		log.Error("payment verification failed",
			slog.String("reference", req.Reference), sl.Err(err), sl.Kind(err))
		response.FromError(w, r, err, h.showDetail)
		return
	}

	log.Info("payment verified",
		slog.String("payment_id", res.Payment.ID),
		slog.Bool("created", res.Created),
	)
	render.JSON(w, r, response.StatusOKWithData(res.View()))
}
