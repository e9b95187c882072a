// Package token issues session tokens and hashes passwords.
// Clean Architecture: Adapters implementing ports.TokenService and ports.PasswordHasher.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

const issuer = "chemstock"

// JWTService implements ports.TokenService with HS256 signed tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a token service. The secret must not be empty.
func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

type sessionClaims struct {
	Role      string `json:"role"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// Issue signs claims. ExpiresAt on the input is ignored; the service TTL applies.
func (s *JWTService) Issue(claims entities.Claims) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl).Truncate(time.Second)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role:      string(claims.Role),
		ProfileID: claims.ProfileID,
		Name:      claims.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates a token. Any failure is ErrUnauthorized.
func (s *JWTService) Verify(raw string) (*entities.Claims, error) {
	var sc sessionClaims
	_, err := jwt.ParseWithClaims(raw, &sc, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrUnauthorized, err)
	}

	role := entities.Role(sc.Role)
	if sc.Subject == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: malformed claims", entities.ErrUnauthorized)
	}

	return &entities.Claims{
		UserID:    sc.Subject,
		Role:      role,
		ProfileID: sc.ProfileID,
		Name:      sc.Name,
		ExpiresAt: sc.ExpiresAt.Time,
	}, nil
}
