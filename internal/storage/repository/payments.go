package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

const constraintReference = "payments_reference_key"

const paymentColumns = `id, reference, user_uid, COALESCE(qr_token, ''), amount, currency, status, method,
	COALESCE(provider_transaction_id, ''), metadata,
	created_at, paid_at, processed_at, failed_at, refunded_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.Reference, &p.UserUID, &p.QRToken, &p.Amount, &p.Currency, &p.Status, &p.Method,
		&p.ProviderTransactionID, &p.Metadata,
		&p.CreatedAt, &p.PaidAt, &p.ProcessedAt, &p.FailedAt, &p.RefundedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindPaymentByReference возвращает платёж по reference или (nil, nil), если его нет.
func (s *Storage) FindPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	const op = "storage.FindPaymentByReference"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE reference = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// InsertPayment сохраняет платёж. Если платёж с таким reference уже есть,
// возвращает ошибку класса DuplicateReference.
func (s *Storage) InsertPayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	const op = "storage.InsertPayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}

	query := `INSERT INTO payments (id, reference, user_uid, qr_token, amount, currency, status, method,
			      provider_transaction_id, metadata, paid_at, processed_at)
			  VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12)
			  RETURNING ` + paymentColumns
	stored, err := scanPayment(s.DB.QueryRowContext(ctx, query,
		id, p.Reference, p.UserUID, p.QRToken, p.Amount, p.Currency, string(p.Status), p.Method,
		p.ProviderTransactionID, metadata, p.PaidAt, p.ProcessedAt))
	if err != nil {
		if isUniqueViolation(err, constraintReference) {
			return nil, e.E(e.Op(op), e.DuplicateReference, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stored, nil
}

// GetPaymentByID возвращает платёж по идентификатору.
func (s *Storage) GetPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	const op = "storage.GetPaymentByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, e.E(e.Op(op), e.NotFound, "payment not found", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPaymentsByUser возвращает страницу платежей пользователя и их общее количество.
// Колонка сортировки берётся только из белого списка PageQuery.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string, q models.PageQuery) ([]*models.Payment, int, error) {
	const op = "storage.ListPaymentsByUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE user_uid = $1`, userUID).Scan(&total)
	if err != nil {
		if isInvalidText(err) {
			return []*models.Payment{}, 0, nil
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if total == 0 {
		return []*models.Payment{}, 0, nil
	}

	query := fmt.Sprintf(`SELECT %s
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY %s %s, id
			  LIMIT $2 OFFSET $3`, paymentColumns, q.SortColumn(), q.SortDirection())
	rows, err := s.DB.QueryContext(ctx, query, userUID, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Payment, 0, q.Limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// FindLatestCompletedForUser возвращает последний завершённый платёж пользователя или (nil, nil).
func (s *Storage) FindLatestCompletedForUser(ctx context.Context, userUID string) (*models.Payment, error) {
	const op = "storage.FindLatestCompletedForUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE user_uid = $1 AND status = $2
			  ORDER BY COALESCE(paid_at, created_at) DESC
			  LIMIT 1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, userUID, string(models.PaymentCompleted)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ExistsCompletedSince сообщает, есть ли у пользователя завершённый платёж начиная с since.
func (s *Storage) ExistsCompletedSince(ctx context.Context, userUID string, since time.Time) (bool, error) {
	const op = "storage.ExistsCompletedSince"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM payments
			      WHERE user_uid = $1 AND status = $2 AND COALESCE(paid_at, created_at) >= $3
			  )`
	var exists bool
	err := s.DB.QueryRowContext(ctx, query, userUID, string(models.PaymentCompleted), since).Scan(&exists)
	if err != nil {
		if isInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
