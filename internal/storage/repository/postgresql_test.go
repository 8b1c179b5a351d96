package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

var paymentRowColumns = []string{
	"id", "reference", "user_uid", "qr_token", "amount", "currency", "status", "method",
	"provider_transaction_id", "metadata", "created_at", "paid_at", "processed_at", "failed_at", "refunded_at",
}

var userRowColumns = []string{
	"uid", "email", "username", "password_hash", "role", "qr_token",
	"password_reset_token", "password_reset_expires",
	"payment_status", "last_payment_date", "last_payment_amount", "last_payment_currency", "payment_type",
	"deleted_at", "created_at",
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Storage{DB: db}, mock
}

func paymentRow(id, reference string, created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(paymentRowColumns).AddRow(
		id, reference, "u-1", "qr-1", "10.00", "NGN", "completed", "card",
		"", []byte(`{"source":"test"}`), created, created, nil, nil, nil,
	)
}

func TestStorage_InsertPayment_DuplicateReference(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintReference})

	_, err := storage.InsertPayment(context.Background(), &models.Payment{
		Reference: "ref_1",
		UserUID:   "u-1",
		Amount:    decimal.RequireFromString("10.00"),
		Status:    models.PaymentCompleted,
	})

	require.Error(t, err)
	assert.Equal(t, e.DuplicateReference, e.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_InsertPayment_OtherUniqueViolationIsNotDuplicate(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "payments_pkey"})

	_, err := storage.InsertPayment(context.Background(), &models.Payment{Reference: "ref_1"})

	require.Error(t, err)
	assert.NotEqual(t, e.DuplicateReference, e.KindOf(err))
}

func TestStorage_InsertPayment_GeneratesID(t *testing.T) {
	storage, mock := newMockStorage(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments")).
		WithArgs(sqlmock.AnyArg(), "ref_1", "u-1", "qr-1", sqlmock.AnyArg(), "NGN", "completed", "card",
			"", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(paymentRow("11111111-1111-1111-1111-111111111111", "ref_1", created))

	got, err := storage.InsertPayment(context.Background(), &models.Payment{
		Reference: "ref_1",
		UserUID:   "u-1",
		QRToken:   "qr-1",
		Amount:    decimal.RequireFromString("10.00"),
		Currency:  "NGN",
		Status:    models.PaymentCompleted,
		Method:    "card",
		PaidAt:    &created,
	})

	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", got.ID)
	assert.Equal(t, "10.00", got.Amount.StringFixed(2))
	assert.Equal(t, models.PaymentCompleted, got.Status)
	s, ok := got.Metadata["source"].Str()
	assert.True(t, ok)
	assert.Equal(t, "test", s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_FindPaymentByReference_Absent(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(paymentRowColumns))

	got, err := storage.FindPaymentByReference(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorage_FindPaymentByReference_DBError(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments")).
		WillReturnError(errors.New("connection reset"))

	got, err := storage.FindPaymentByReference(context.Background(), "ref")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "storage.FindPaymentByReference")
}

func TestStorage_ListPaymentsByUser_UsesAllowListedSort(t *testing.T) {
	tests := []struct {
		name      string
		query     models.PageQuery
		wantOrder string
	}{
		{
			name:      "amount ascending",
			query:     models.PageQuery{Page: 2, Limit: 5, SortBy: "amount", Order: "asc"},
			wantOrder: "ORDER BY amount ASC, id",
		},
		{
			name:      "unknown column falls back to created_at",
			query:     models.PageQuery{Page: 1, Limit: 5, SortBy: "password_hash; --", Order: "desc"},
			wantOrder: "ORDER BY created_at DESC, id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, mock := newMockStorage(t)
			created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

			mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments")).
				WithArgs("u-1").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
			mock.ExpectQuery(regexp.QuoteMeta(tt.wantOrder)).
				WithArgs("u-1", tt.query.Limit, tt.query.Offset()).
				WillReturnRows(paymentRow("p-1", "ref_1", created))

			items, total, err := storage.ListPaymentsByUser(context.Background(), "u-1", tt.query)
			require.NoError(t, err)
			assert.Equal(t, 7, total)
			assert.Len(t, items, 1)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ListPaymentsByUser_Empty(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := storage.ListPaymentsByUser(context.Background(), "u-1", models.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetUser_NotFound(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("u-404").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := storage.GetUser(context.Background(), "u-404")
	require.Error(t, err)
	assert.Equal(t, e.UserNotFound, e.KindOf(err))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStorage_GetUser_InvalidUUID(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

	_, err := storage.GetUser(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, e.UserNotFound, e.KindOf(err))
}

func TestStorage_UpdatePaymentProjection_SingleStatement(t *testing.T) {
	storage, mock := newMockStorage(t)
	paid := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE users\s+SET payment_status = \$1`).
		WithArgs(models.PaymentStatusActive, models.PaymentTypeOneTime, paid, sqlmock.AnyArg(), "NGN", "u-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			"u-1", "ada@example.com", "ada", "hash", "user", "qr-1",
			nil, nil,
			"active", paid, "10.00", "NGN", "one-time",
			nil, paid,
		))

	u, err := storage.UpdatePaymentProjection(context.Background(), "u-1", models.PaymentProjection{
		Status:   models.PaymentStatusActive,
		Type:     models.PaymentTypeOneTime,
		Date:     paid,
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "NGN",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusActive, u.PaymentStatus)
	require.True(t, u.LastPaymentAmount.Valid)
	assert.Equal(t, "10.00", u.LastPaymentAmount.Decimal.StringFixed(2))
	require.NotNil(t, u.LastPaymentCurrency)
	assert.Equal(t, "NGN", *u.LastPaymentCurrency)
	assert.Nil(t, u.PasswordResetToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UpdatePaymentProjection_OlderPaymentReturnsCurrentUser(t *testing.T) {
	storage, mock := newMockStorage(t)
	older := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	latest := older.Add(24 * time.Hour)

	mock.ExpectQuery(`UPDATE users[\s\S]+last_payment_date <= \$3`).
		WithArgs(models.PaymentStatusActive, models.PaymentTypeOneTime, older, sqlmock.AnyArg(), "NGN", "u-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			"u-1", "ada@example.com", "ada", "hash", "user", "qr-1",
			nil, nil,
			"active", latest, "2500.75", "NGN", "one-time",
			nil, older,
		))

	u, err := storage.UpdatePaymentProjection(context.Background(), "u-1", models.PaymentProjection{
		Status:   models.PaymentStatusActive,
		Type:     models.PaymentTypeOneTime,
		Date:     older,
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "NGN",
	})

	require.NoError(t, err)
	require.NotNil(t, u.LastPaymentDate)
	assert.True(t, latest.Equal(*u.LastPaymentDate))
	assert.Equal(t, "2500.75", u.LastPaymentAmount.Decimal.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CanceledContext(t *testing.T) {
	storage, _ := newMockStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.GetPaymentByID(ctx, "p-1")
	assert.ErrorIs(t, err, context.Canceled)
}
