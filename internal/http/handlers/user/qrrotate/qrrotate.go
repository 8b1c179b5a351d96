// Package qrrotate реализует HTTP-обработчик перевыпуска QR-токена.
package qrrotate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/qrpay/internal/http/middlewarectx"
	"github.com/magabrotheeeer/qrpay/internal/http/response"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// Service выдаёт пользователю новый QR-токен.
type Service interface {
	RotateQRToken(ctx context.Context, userUID string) (*models.User, error)
}

// Handler перевыпускает QR-токен текущего пользователя.
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
// @Summary Перевыпуск QR-токена
// @Description Выдаёт новый QR-токен. Платежи, записанные ранее, сохраняют прежний.
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UserView}
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /me/qr [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.qrrotate"

	userUID := middlewarectx.UserUIDFrom(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_uid", userUID),
	)

	user, err := h.service.RotateQRToken(r.Context(), userUID)
	if err != nil {
		log.Error("failed to rotate qr token", sl.Err(err), sl.Kind(err))
		response.FromError(w, r, err, h.showDetail)
		return
	}

	log.Info("qr token rotated")
	render.JSON(w, r, response.StatusOKWithData(user.View()))
}
