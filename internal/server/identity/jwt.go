package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAuthenticated роль, которую сервис авторизации выдает вошедшему пользователю
const RoleAuthenticated = "authenticated"

// Claims представляет JWT claims, выпускаемые сервисом авторизации
type Claims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier проверяет подпись токена общим секретом проекта (HS256)
type JWTVerifier struct {
	secret   []byte
	audience string
}

// NewJWTVerifier создает проверку подписи. Пустой audience отключает проверку aud.
func NewJWTVerifier(secret []byte, audience string) *JWTVerifier {
	return &JWTVerifier{secret: secret, audience: audience}
}

// Verify валидирует токен и возвращает значение claim sub
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no user found", ErrInvalidToken)
	}

	return claims.Subject, nil
}

// IssueToken выпускает токен пользователя, совместимый с JWTVerifier.
// Используется в тестах и в CLI для проверки локального сервера.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: RoleAuthenticated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{RoleAuthenticated},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
