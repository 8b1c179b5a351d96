package qrpay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	// Регистрация Swagger-документации.
	_ "github.com/magabrotheeeer/qrpay/docs"
	"github.com/magabrotheeeer/qrpay/internal/cache"
	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/http/handlers/health"
	"github.com/magabrotheeeer/qrpay/internal/lib/jwt"
	"github.com/magabrotheeeer/qrpay/internal/lib/metrics"
	"github.com/magabrotheeeer/qrpay/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/qrpay/internal/migrations"
	"github.com/magabrotheeeer/qrpay/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/qrpay/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/qrpay/internal/services/payment"
	"github.com/magabrotheeeer/qrpay/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервис и его ресурсы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает зависимости, применяет миграции и собирает маршруты.
// Redis и RabbitMQ необязательны: без адреса сервис работает без кэша и без событий.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	a := &App{logger: logger, db: db}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, err
	}

	checks := map[string]health.Pinger{"postgres": db}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	provider := paymentprovider.NewClient(cfg.PaymentProvider, paymentprovider.WithObserver(m))
	opts := []paymentservice.Option{paymentservice.WithMetrics(m)}

	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, err
		}
		checks["redis"] = a.cache
		opts = append(opts, paymentservice.WithCache(a.cache))
	} else {
		logger.Warn("redis address is not set, payment cache is disabled")
	}

	if cfg.RabbitMQ.URL != "" {
		a.conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			a.close()
			return nil, err
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.ExchangePayments, rabbitmq.PaymentQueues())
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, paymentservice.WithPublisher(rabbitmq.NewPublisher(a.ch, rabbitmq.ExchangePayments)))
	} else {
		logger.Warn("rabbitmq url is not set, payment events are disabled")
	}

	if cfg.PaymentProvider.SecretKey == "" {
		logger.Warn("payment provider secret key is not set, only test references can be verified")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker)
	paymentService := paymentservice.New(db, db, provider, cfg.PaymentProvider, logger, opts...)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Logger:         logger,
		AuthService:    authService,
		PaymentService: paymentService,
		HealthChecks:   checks,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RateLimit:      cfg.RateLimit,
		ShowDetail:     !cfg.IsProd(),
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", slog.Any("err", err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}
}
