package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"quiz-app-service/internal/domain"
)

// DefaultTokenTTL is the validity window fixed at issuance.
const DefaultTokenTTL = 2 * time.Hour

// tokenClaims carries the identity pair next to the registered claims.
type tokenClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens. It keeps no server-side state.
type TokenService struct {
	users   UserRepository
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewTokenService(users UserRepository, signKey []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{users: users, signKey: signKey, ttl: ttl, now: time.Now}
}

// NewTokenServiceWithClock is used by tests that need to move time forward.
func NewTokenServiceWithClock(users UserRepository, signKey []byte, ttl time.Duration, now func() time.Time) *TokenService {
	s := NewTokenService(users, signKey, ttl)
	s.now = now
	return s
}

// Issue returns a signed token when the credentials match. ok is false for an unknown
// username or a wrong password; err is reserved for store or signing failures.
func (s *TokenService) Issue(ctx context.Context, username, password string) (token string, ok bool, err error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", false, nil
	}

	now := s.now()
	claims := tokenClaims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return "", false, err
	}
	return signed, true, nil
}

// Verify checks the signature and expiry of raw. An absent or structurally malformed
// token yields domain.ErrTokenMissing; any later failure yields domain.ErrTokenInvalid.
func (s *TokenService) Verify(raw string) (domain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Count(raw, ".") != 2 {
		return domain.Identity{}, domain.ErrTokenMissing
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return domain.Identity{}, domain.ErrTokenMissing
		}
		return domain.Identity{}, domain.ErrTokenInvalid
	}
	if claims.UserID == "" {
		return domain.Identity{}, domain.ErrTokenInvalid
	}
	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
