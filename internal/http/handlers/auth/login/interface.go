package login

import (
	"context"

	"github.com/magabrotheeeer/qrpay/internal/models"
)

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, username, password string) (string, *models.User, error)
}
