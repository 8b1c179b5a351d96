// Package qrpay собирает HTTP-сервис подтверждения платежей.
package qrpay

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/health"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/payment/history"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/payment/paidtoday"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/payment/read"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/payment/verify"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/user/me"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/user/qrrotate"
	"github.com/magabrotheeeer/qrpay/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/qrpay/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/qrpay/internal/services/payment"
)

// Deps зависимости маршрутов.
type Deps struct {
	Logger         *slog.Logger
	AuthService    *authservice.AuthService
	PaymentService *paymentservice.Service
	HealthChecks   map[string]health.Pinger
	Metrics        http.Handler
	RateLimit      config.RateLimit
	ShowDetail     bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(d.Logger, d.AuthService, d.ShowDetail).ServeHTTP)
		r.Post("/login", login.New(d.Logger, d.AuthService, d.ShowDetail).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.AuthService, d.Logger))
			r.Use(middlewarectx.RateLimitMiddleware(d.Logger, d.RateLimit))

			r.Get("/me", me.New(d.Logger, d.AuthService, d.ShowDetail).ServeHTTP)
			r.Post("/me/qr", qrrotate.New(d.Logger, d.AuthService, d.ShowDetail).ServeHTTP)

			r.Post("/payments/verify", verify.New(d.Logger, d.PaymentService, d.ShowDetail).ServeHTTP)
			r.Get("/payments/history", history.New(d.Logger, d.PaymentService, d.ShowDetail).ServeHTTP)
			r.With(middlewarectx.SelfOrAdminMiddleware(d.Logger, "userId")).
				Get("/payments/has-paid-today/{userId}", paidtoday.New(d.Logger, d.PaymentService, d.ShowDetail).ServeHTTP)
			r.Get("/payments/{id}", read.New(d.Logger, d.PaymentService, d.ShowDetail).ServeHTTP)
		})
	})

	r.Get("/health", health.New(d.Logger, d.HealthChecks).ServeHTTP)
	metricsHandler := d.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
