package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/qrpay/internal/http/response"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// SelfOrAdminMiddleware пропускает запрос, только если параметр пути param совпадает
// с идентификатором вызывающего или вызывающий является администратором.
func SelfOrAdminMiddleware(log *slog.Logger, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID := UserUIDFrom(r.Context())
			if userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			target := chi.URLParam(r, param)
			if target != userUID && RoleFrom(r.Context()) != models.RoleAdmin {
				log.Warn("access to another user's data denied",
					slog.String("user_uid", userUID),
					slog.String("target", target),
				)
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
