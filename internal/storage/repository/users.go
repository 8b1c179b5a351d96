package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

const (
	constraintUsername = "users_username_key"
	constraintQRToken  = "users_qr_token_key"
)

const userColumns = `uid, email, username, password_hash, role, qr_token,
	password_reset_token, password_reset_expires,
	payment_status, last_payment_date, last_payment_amount, last_payment_currency, payment_type,
	deleted_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.QRToken,
		&u.PasswordResetToken, &u.PasswordResetExpires,
		&u.PaymentStatus, &u.LastPaymentDate, &u.LastPaymentAmount, &u.LastPaymentCurrency, &u.PaymentType,
		&u.DeletedAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var newID string
	query := `INSERT INTO users (email, username, password_hash, role, qr_token, payment_status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid;`
	err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.QRToken,
		user.PaymentStatus).Scan(&newID)
	if err != nil {
		if isUniqueViolation(err, constraintUsername) {
			return "", e.E(e.Op(op), e.InvalidInput, "username is already taken", err)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByUsername возвращает активного пользователя по username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1 AND deleted_at IS NULL`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, e.E(e.Op(op), e.UserNotFound, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает активного пользователя по UID.
// Отсутствующий и удалённый пользователь одинаково дают UserNotFound.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1 AND deleted_at IS NULL`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, e.E(e.Op(op), e.UserNotFound, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdatePaymentProjection одной командой обновляет поля последней оплаты
// и возвращает пользователя после обновления.
// Проекция не откатывается: платёж старше уже записанной даты её не меняет,
// в этом случае возвращается текущий пользователь.
func (s *Storage) UpdatePaymentProjection(ctx context.Context, userUID string, p models.PaymentProjection) (*models.User, error) {
	const op = "storage.UpdatePaymentProjection"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE users
			  SET payment_status = $1,
			      payment_type = $2,
			      last_payment_date = $3,
			      last_payment_amount = $4,
			      last_payment_currency = $5
			  WHERE uid = $6 AND deleted_at IS NULL
			    AND (last_payment_date IS NULL OR last_payment_date <= $3)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		p.Status, p.Type, p.Date, p.Amount, p.Currency, userUID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Либо пользователя нет, либо записана более поздняя оплата.
			return s.GetUser(ctx, userUID)
		case isInvalidText(err):
			return nil, e.E(e.Op(op), e.UserNotFound, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateQRToken заменяет QR-токен пользователя.
func (s *Storage) UpdateQRToken(ctx context.Context, userUID, token string) (*models.User, error) {
	const op = "storage.UpdateQRToken"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE users
			  SET qr_token = $1
			  WHERE uid = $2 AND deleted_at IS NULL
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token, userUID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows) || isInvalidText(err):
			return nil, e.E(e.Op(op), e.UserNotFound, err)
		case isUniqueViolation(err, constraintQRToken):
			return nil, e.E(e.Op(op), e.Internal, "qr token collision", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
