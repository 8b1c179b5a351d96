// Package me реализует HTTP-обработчик профиля текущего пользователя.
package me

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

// Service возвращает профиль пользователя.
type Service interface {
	Me(ctx context.Context, userUID string) (*models.User, error)
}

// Handler отдаёт профиль вызывающего пользователя вместе с QR-токеном.
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
// @Summary Профиль пользователя
// @Description Возвращает профиль текущего пользователя, QR-токен и статус оплаты.
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UserView}
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, err := h.service.Me(r.Context(), middlewarectx.UserUIDFrom(r.Context()))
	if err != nil {
		log.Error("failed to get user", sl.Err(err), sl.Kind(err))
		response.FromError(w, r, err, h.showDetail)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(user.View()))
}
