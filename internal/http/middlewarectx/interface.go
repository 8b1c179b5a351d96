package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/qrpay/internal/models"
)

// Service описывает интерфейс сервиса для валидации JWT токена.
// Возвращённый пользователь содержит только UID, Username и Role.
type Service interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}
