package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/qrpay/internal/cache"
	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/lib/sl"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// History возвращает страницу платежей пользователя.
func (s *Service) History(ctx context.Context, userUID string, q models.PageQuery) (*models.PaymentPage, error) {
	const op = e.Op("services.payment.History")
	if userUID == "" {
		return nil, e.E(op, e.InvalidInput, "user identity is required")
	}
	q, err := q.Normalize()
	if err != nil {
		return nil, e.E(op, err)
	}

	items, total, err := s.payments.ListPaymentsByUser(ctx, userUID, q)
	if err != nil {
		return nil, classify(op, err)
	}
	return &models.PaymentPage{
		Items: items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// HasPaidToday сообщает, есть ли у пользователя завершённый платёж начиная
// с местной полуночи относительно now.
func (s *Service) HasPaidToday(ctx context.Context, userUID string, now time.Time) (*models.PaidToday, error) {
	const op = e.Op("services.payment.HasPaidToday")
	if userUID == "" {
		return nil, e.E(op, e.InvalidInput, "user identity is required")
	}
	if _, err := s.users.GetUser(ctx, userUID); err != nil {
		return nil, classify(op, err)
	}

	paid, err := s.payments.ExistsCompletedSince(ctx, userUID, startOfDay(now))
	if err != nil {
		return nil, classify(op, err)
	}
	res := &models.PaidToday{Paid: paid}

	latest, err := s.payments.FindLatestCompletedForUser(ctx, userUID)
	if err != nil {
		return nil, classify(op, err)
	}
	if latest != nil {
		view := latest.View()
		res.LastPayment = &view
	}
	return res, nil
}

// GetPayment возвращает платёж по id. Чужой платёж виден только администратору,
// для остальных он не существует.
func (s *Service) GetPayment(ctx context.Context, id, userUID, role string) (*models.Payment, error) {
	const op = e.Op("services.payment.GetPayment")
	log := s.log.With(slog.String("op", string(op)), slog.String("payment_id", id))
	if id == "" {
		return nil, e.E(op, e.InvalidInput, "payment id is required")
	}

	p, err := s.cachedPayment(ctx, log, id)
	if err != nil {
		return nil, classify(op, err)
	}
	if !p.BelongsTo(userUID) && role != models.RoleAdmin {
		return nil, e.E(op, e.NotFound, "payment not found")
	}
	return p, nil
}

// cachedPayment читает платёж через кэш. Записанный платёж не меняется,
// поэтому кэш не инвалидируется. Ошибки кэша только логируются.
func (s *Service) cachedPayment(ctx context.Context, log *slog.Logger, id string) (*models.Payment, error) {
	key := cache.PaymentKey(id)
	if s.cache != nil {
		var p models.Payment
		found, err := s.cache.Get(ctx, key, &p)
		if err != nil {
			log.Warn("failed to read payment from cache", sl.Err(err))
		}
		if found {
			return &p, nil
		}
	}

	p, err := s.payments.GetPaymentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, p, paymentCacheTTL); err != nil {
			log.Warn("failed to cache payment", sl.Err(err))
		}
	}
	return p, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
