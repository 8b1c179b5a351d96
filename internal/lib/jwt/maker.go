// Package jwt реализует выпуск и проверку JWT токенов доступа.
//
// В токен кладутся идентификатор пользователя, его имя и роль. Остальные
// данные пользователя сервис читает из хранилища.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
)

// Claims данные пользователя, хранящиеся в JWT.
type Claims struct {
	UserUID              string `json:"uid"`      // Идентификатор пользователя
	Username             string `json:"username"` // Имя пользователя
	Role                 string `json:"role"`     // Роль пользователя
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt и пр.
}

// Maker выпускает и проверяет токены.
type Maker struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт Maker на основе секретного ключа и времени жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *Maker {
	return &Maker{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// GenerateToken создаёт подписанный HS256 токен для пользователя.
func (m *Maker) GenerateToken(userUID, username, role string) (string, error) {
	const op = e.Op("jwt.GenerateToken")
	if m.secretKey == "" {
		return "", e.E(op, e.ConfigurationError, "jwt secret key is not set")
	}

	now := m.now()
	claims := Claims{
		UserUID:  userUID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", e.E(op, e.Internal, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
// Любая ошибка проверки относится к классу Unauthenticated.
func (m *Maker) ParseToken(tokenStr string) (*Claims, error) {
	const op = e.Op("jwt.ParseToken")
	if tokenStr == "" {
		return nil, e.E(op, e.Unauthenticated, "empty token")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, e.E(op, e.Unauthenticated, msg, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, e.E(op, e.Unauthenticated, "invalid token")
	}
	if claims.UserUID == "" {
		return nil, e.E(op, e.Unauthenticated, fmt.Sprintf("token for %q has no user id", claims.Username))
	}
	return claims, nil
}
