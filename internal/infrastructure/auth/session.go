// Package auth signs and verifies the anonymous session token carried in the
// storefront cookie. The token only proves that the server minted the session
// id; there is no user identity behind it.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/knwn/storefront/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("auth: invalid session token")
	ErrExpiredToken     = errors.New("auth: session token has expired")
	ErrTokenNotYetValid = errors.New("auth: session token is not yet valid")
	ErrMissingSessionID = errors.New("auth: missing session id in claims")
	ErrMissingSecret    = errors.New("auth: session secret is empty")
)

// Claims are the JWT claims of a session token. Subject is the session id.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionID returns the session id carried by the token
func (c *Claims) SessionID() string {
	return c.Subject
}

// Session is a freshly issued session
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// SessionService mints and validates session tokens
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewSessionService creates a session service from configuration
func NewSessionService(cfg config.SessionConfig) (*SessionService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionService{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// TTL returns how long issued tokens stay valid
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue mints a new session with a random id
func (s *SessionService) Issue() (*Session, error) {
	return s.Renew(uuid.NewString())
}

// Renew signs a fresh token for an existing session id, pushing its expiry
// out by the configured TTL.
func (s *SessionService) Renew(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   sessionID,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{ID: sessionID, Token: token, ExpiresAt: expiresAt}, nil
}

// Validate verifies a token and returns its claims
func (s *SessionService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSessionID
	}
	return claims, nil
}

// NeedsRenewal reports whether less than half of the token lifetime is left
func (s *SessionService) NeedsRenewal(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Sub(s.now()) < s.ttl/2
}
