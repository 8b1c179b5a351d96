package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/qrpay/internal/migrations"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его UID.
func (f *TestDataFactory) CreateUser(t *testing.T, username string) string {
	t.Helper()
	var uid string
	err := f.storage.DB.QueryRow(`INSERT INTO users (email, username, password_hash, role, qr_token)
		VALUES ($1, $2, $3, $4, $5) RETURNING uid`,
		username+"@example.com", username, "hashedpassword", models.RoleUser, uuid.NewString()).Scan(&uid)
	require.NoError(t, err)
	return uid
}

// DeleteUser помечает пользователя удалённым.
func (f *TestDataFactory) DeleteUser(t *testing.T, uid string) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE users SET deleted_at = NOW() WHERE uid = $1`, uid)
	require.NoError(t, err)
}

// NewPayment возвращает завершённый платёж пользователя, готовый к вставке.
func NewPayment(userUID, reference string, amount string, paidAt time.Time) *models.Payment {
	return &models.Payment{
		Reference: reference,
		UserUID:   userUID,
		QRToken:   "qr-" + reference,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "NGN",
		Status:    models.PaymentCompleted,
		Method:    "card",
		Metadata:  models.NormalizeMetadata(map[string]any{"source": "test"}),
		PaidAt:    &paidAt,
	}
}
