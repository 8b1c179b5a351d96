// Package payment реализует подтверждение платежей и чтение истории оплат.
//
// Подтверждение идемпотентно по reference: единственной точкой сериализации
// конкурентных вызовов служит уникальное ограничение хранилища.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/qrpay/internal/config"
	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/lib/metrics"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// PaymentStore хранилище платежей.
type PaymentStore interface {
	// FindPaymentByReference возвращает (nil, nil), если платежа нет.
	FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	// InsertPayment возвращает ошибку класса DuplicateReference при гонке вставки.
	InsertPayment(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetPaymentByID(ctx context.Context, id string) (*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userUID string, q models.PageQuery) ([]*models.Payment, int, error)
	FindLatestCompletedForUser(ctx context.Context, userUID string) (*models.Payment, error)
	ExistsCompletedSince(ctx context.Context, userUID string, since time.Time) (bool, error)
}

// UserDirectory источник пользователей и их проекции оплаты.
type UserDirectory interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	UpdatePaymentProjection(ctx context.Context, userUID string, p models.PaymentProjection) (*models.User, error)
}

// ProviderClient проверяет транзакцию у платёжного провайдера.
type ProviderClient interface {
	VerifyTransaction(ctx context.Context, reference string) (*models.ProviderTransaction, error)
}

// EventPublisher публикует событие о новом платеже.
type EventPublisher interface {
	PublishPaymentVerified(ctx context.Context, event models.PaymentVerifiedEvent) error
}

// Cache кэш записанных платежей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

const paymentCacheTTL = 10 * time.Minute

// Service подтверждает платежи и отвечает на запросы об оплатах.
type Service struct {
	payments PaymentStore
	users    UserDirectory
	provider ProviderClient
	events   EventPublisher
	cache    Cache
	metrics  *metrics.Metrics
	cfg      config.PaymentProvider
	log      *slog.Logger
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithPublisher включает публикацию событий о новых платежах.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithCache включает кэширование платежей при чтении по id.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New создаёт сервис платежей.
func New(payments PaymentStore, users UserDirectory, provider ProviderClient, cfg config.PaymentProvider, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		payments: payments,
		users:    users,
		provider: provider,
		cfg:      cfg,
		log:      log,
		metrics:  metrics.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify подтверждает платёж reference для пользователя userUID.
//
// Повторный вызов с тем же reference возвращает уже записанный платёж без обращения
// к провайдеру. Ошибка обновления проекции пользователя не прерывает подтверждение.
func (s *Service) Verify(ctx context.Context, reference, userUID string) (*models.VerifyResult, error) {
	const op = e.Op("services.payment.Verify")
	reference = strings.TrimSpace(reference)
	log := s.log.With(
		slog.String("op", string(op)),
		slog.String("reference", reference),
		slog.String("user_uid", userUID),
	)

	res, outcome, err := s.verify(ctx, log, op, reference, userUID)
	if err != nil {
		s.metrics.ObserveVerification(e.KindOf(err).String())
		return nil, err
	}
	s.metrics.ObserveVerification(outcome)
	return res, nil
}

func (s *Service) verify(ctx context.Context, log *slog.Logger, op e.Op, reference, userUID string) (*models.VerifyResult, string, error) {
	if reference == "" {
		return nil, "", e.E(op, e.InvalidInput, "reference is required")
	}
	if userUID == "" {
		return nil, "", e.E(op, e.InvalidInput, "user identity is required")
	}

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, "", classify(op, err)
	}

	existing, err := s.payments.FindPaymentByReference(ctx, reference)
	if err != nil {
		return nil, "", classify(op, err)
	}
	if existing != nil {
		if !existing.BelongsTo(user.UID) {
			log.Warn("reference is already recorded for another user", slog.String("payment_id", existing.ID))
			return nil, "", e.E(op, e.ReferenceConflict, "reference is already used")
		}
		log.Info("payment already recorded", slog.String("payment_id", existing.ID))
		return s.finish(ctx, log, existing, user, false), metrics.OutcomeDuplicate, nil
	}

	// С этого момента отмена запроса клиентом не прерывает запись результата.
	ctx = context.WithoutCancel(ctx)

	outcome := metrics.OutcomeVerified
	var p *models.Payment
	if s.isTestReference(reference) {
		outcome = metrics.OutcomeTest
		p, err = s.testPayment(reference, user)
	} else {
		p, err = s.livePayment(ctx, op, reference, user)
	}
	if err != nil {
		return nil, "", err
	}

	created := true
	recorded, err := s.payments.InsertPayment(ctx, p)
	if e.Is(err, e.DuplicateReference) {
		log.Info("concurrent verification recorded the payment first")
		created = false
		outcome = metrics.OutcomeDuplicate
		recorded, err = s.payments.FindPaymentByReference(ctx, reference)
		if err == nil && recorded == nil {
			err = e.E(op, e.Internal, "payment vanished after duplicate insert")
		}
		if err == nil && !recorded.BelongsTo(user.UID) {
			return nil, "", e.E(op, e.ReferenceConflict, "reference is already used")
		}
	}
	if err != nil {
		return nil, "", classify(op, err)
	}
	if created {
		log.Info("payment recorded",
			slog.String("payment_id", recorded.ID),
			slog.String("amount", recorded.Amount.StringFixed(2)),
			slog.String("currency", recorded.Currency),
		)
	}

	return s.finish(ctx, log, recorded, user, created), outcome, nil
}

// finish обновляет проекцию пользователя и для нового платежа публикует событие.
func (s *Service) finish(ctx context.Context, log *slog.Logger, p *models.Payment, user *models.User, created bool) *models.VerifyResult {
	projection := models.ProjectionFromPayment(p)
	if user.LastPaymentDate != nil && projection.Date.Before(*user.LastPaymentDate) {
		log.Info("payment is older than the last recorded one, projection unchanged", slog.String("payment_id", p.ID))
		return s.result(ctx, log, p, user, created)
	}

	updated, err := s.users.UpdatePaymentProjection(ctx, user.UID, projection)
	if err != nil {
		err = e.E(e.Op("services.payment.UpdateProjection"), e.ProjectionUpdateFailed, err)
		log.Error("failed to update user payment projection", sl.Err(err), slog.String("payment_id", p.ID))
	} else {
		user = updated
	}
	return s.result(ctx, log, p, user, created)
}

// result для нового платежа публикует событие и собирает ответ.
func (s *Service) result(ctx context.Context, log *slog.Logger, p *models.Payment, user *models.User, created bool) *models.VerifyResult {
	if created && s.events != nil {
		if err := s.events.PublishPaymentVerified(ctx, models.NewPaymentVerifiedEvent(p, user)); err != nil {
			log.Warn("failed to publish payment event", sl.Err(err), slog.String("payment_id", p.ID))
		}
	}

	return &models.VerifyResult{Payment: p, User: user, Created: created}
}

func (s *Service) isTestReference(reference string) bool {
	return s.cfg.TestReferencePrefix != "" && strings.HasPrefix(reference, s.cfg.TestReferencePrefix)
}

func (s *Service) testPayment(reference string, user *models.User) (*models.Payment, error) {
	const op = e.Op("services.payment.testPayment")
	amount, err := s.cfg.TestAmountDecimal()
	if err != nil {
		return nil, e.E(op, e.ConfigurationError, err)
	}
	now := s.now().UTC()
	return &models.Payment{
		Reference: reference,
		UserUID:   user.UID,
		QRToken:   user.QRToken,
		Amount:    amount,
		Currency:  s.cfg.TestCurrency,
		Status:    models.PaymentCompleted,
		Method:    models.MethodTest,
		Metadata: models.Metadata{
			"test": models.BoolValue(true),
		},
		PaidAt:      &now,
		ProcessedAt: &now,
	}, nil
}

func (s *Service) livePayment(ctx context.Context, op e.Op, reference string, user *models.User) (*models.Payment, error) {
	tx, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, classify(op, err)
	}
	if tx.Status != models.ProviderSuccess {
		return nil, e.E(op, e.ProviderRejected, fmt.Sprintf("transaction status is %s", tx.Status))
	}

	now := s.now().UTC()
	paidAt := now
	if tx.PaidAt != nil {
		paidAt = tx.PaidAt.UTC()
	}
	return &models.Payment{
		Reference:             reference,
		UserUID:               user.UID,
		QRToken:               user.QRToken,
		Amount:                models.MinorUnitsToMajor(tx.Amount),
		Currency:              tx.Currency,
		Status:                models.PaymentCompleted,
		Method:                tx.Channel,
		ProviderTransactionID: tx.ProviderTransactionID,
		Metadata:              models.NormalizeMetadata(tx.Metadata),
		PaidAt:                &paidAt,
		ProcessedAt:           &now,
	}, nil
}

// classify оборачивает ошибку зависимости, сохраняя её класс. Неклассифицированные
// ошибки считаются внутренними.
func classify(op e.Op, err error) error {
	if e.KindOf(err) == e.Other {
		return e.E(op, e.Internal, err)
	}
	return e.E(op, err)
}
