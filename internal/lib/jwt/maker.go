// Package jwt реализует выпуск и проверку подписанных JWT токенов.
//
// Maker определяет интерфейс для создания и проверки токенов с именем пользователя.
// MakerImpl - реализация на общем секрете HS256 с фиксированными issuer/audience и TTL.
package jwt

import (
	"errors"
	"time"
)

// DefaultTokenTTL - время жизни токена, если в Options оно не задано.
const DefaultTokenTTL = 2 * time.Hour

var (
	// ErrTokenExpired - срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid - подпись, issuer, audience или формат токена не прошли проверку.
	ErrTokenInvalid = errors.New("invalid token")
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(username string) (string, error)
	ParseToken(tokenStr string) (*Principal, error)
}

// Principal - личность, извлечённая из валидного токена.
type Principal struct {
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// Options задают параметры MakerImpl.
type Options struct {
	SecretKey string
	Issuer    string
	Audience  string
	TTL       time.Duration
	// Now подменяет текущее время, по умолчанию time.Now.
	Now func() time.Time
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey []byte
	issuer    string
	audience  string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl.
func NewJWTMaker(opts Options) *MakerImpl {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MakerImpl{
		secretKey: []byte(opts.SecretKey),
		issuer:    opts.Issuer,
		audience:  opts.Audience,
		tokenTTL:  ttl,
		now:       now,
	}
}
