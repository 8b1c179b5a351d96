// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
	"github.com/magabrotheeeer/qrpay/internal/lib/jwt"
	"github.com/magabrotheeeer/qrpay/internal/lib/password"
	"github.com/magabrotheeeer/qrpay/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUser возвращает неудалённого пользователя по идентификатору.
	GetUser(ctx context.Context, userUID string) (*models.User, error)

	// UpdateQRToken заменяет QR-токен пользователя.
	UpdateQRToken(ctx context.Context, userUID, token string) (*models.User, error)
}

// TokenMaker выпускает и проверяет JWT.
type TokenMaker interface {
	GenerateToken(userUID, username, role string) (string, error)
	ParseToken(token string) (*jwt.Claims, error)
}

// AuthService отвечает за регистрацию, авторизацию, валидацию JWT и выдачу QR-токенов.
type AuthService struct {
	users    UserRepository
	jwtMaker TokenMaker
	hashCost int
	newToken func() string
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker TokenMaker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		hashCost: bcrypt.DefaultCost,
		newToken: uuid.NewString,
	}
}

// WithHashCost задаёт стоимость bcrypt. В тестах используется bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// Register создает нового пользователя с хэшированием пароля, дефолтной ролью "user"
// и новым QR-токеном.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = e.Op("services.auth.Register")
	hashed, err := password.GetHashWithCost(rawPassword, s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", e.E(op, e.InvalidInput, "password is too long", err)
		}
		return "", e.E(op, e.Internal, err)
	}
	user := models.User{
		Email:         email,
		Username:      username,
		PasswordHash:  hashed,
		Role:          models.RoleUser, // дефолтная роль при регистрации
		QRToken:       s.newToken(),
		PaymentStatus: models.PaymentStatusNone,
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", e.E(op, err)
	}
	return uid, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
// Неизвестный пользователь и неверный пароль неразличимы для вызывающего.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, *models.User, error) {
	const op = e.Op("services.auth.Login")
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if e.Is(err, e.UserNotFound) {
			return "", nil, e.E(op, e.Unauthenticated, "invalid credentials")
		}
		return "", nil, e.E(op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, e.E(op, e.Unauthenticated, "invalid credentials")
	}
	token, err := s.jwtMaker.GenerateToken(user.UID, user.Username, user.Role)
	if err != nil {
		return "", nil, e.E(op, err)
	}
	return token, user, nil
}

// ValidateToken проверяет JWT и возвращает идентификатор, имя и роль пользователя.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, error) {
	const op = e.Op("services.auth.ValidateToken")
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, e.E(op, e.Unauthenticated, err)
	}
	return &models.User{
		UID:      claims.UserUID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// Me возвращает профиль пользователя вместе с QR-токеном.
func (s *AuthService) Me(ctx context.Context, userUID string) (*models.User, error) {
	const op = e.Op("services.auth.Me")
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, e.E(op, err)
	}
	return user, nil
}

// RotateQRToken выдаёт пользователю новый QR-токен. Старый токен перестаёт действовать,
// в уже записанных платежах остаётся прежний.
func (s *AuthService) RotateQRToken(ctx context.Context, userUID string) (*models.User, error) {
	const op = e.Op("services.auth.RotateQRToken")
	user, err := s.users.UpdateQRToken(ctx, userUID, s.newToken())
	if err != nil {
		return nil, e.E(op, err)
	}
	return user, nil
}
