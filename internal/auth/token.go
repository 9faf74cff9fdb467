// Package auth supplies bearer credentials for the ingestion endpoint.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeTelemetryWrite is the scope claim carried by minted tokens.
const ScopeTelemetryWrite = "telemetry:write"

// refreshMargin is how close to expiry a cached token may get before re-minting.
const refreshMargin = time.Minute

// TokenSource yields the bearer credential for the next request.
type TokenSource interface {
	Token() (string, error)
}

// Static is a fixed credential such as the development token.
type Static string

func (s Static) Token() (string, error) { return string(s), nil }

// JWTSource mints HS256 tokens for one subject and caches them until near expiry.
type JWTSource struct {
	secret  []byte
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// NewJWTSource creates a JWTSource. subject is normally the vehicle id.
func NewJWTSource(secret, subject string, ttl time.Duration) (*JWTSource, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret required")
	}
	if ttl <= refreshMargin {
		return nil, fmt.Errorf("token ttl must exceed %s, got %s", refreshMargin, ttl)
	}
	return &JWTSource{secret: []byte(secret), subject: subject, ttl: ttl, now: time.Now}, nil
}

// Token returns the cached token or mints a new one.
func (s *JWTSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.cached != "" && now.Add(refreshMargin).Before(s.expires) {
		return s.cached, nil
	}
	exp := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":   s.subject,
		"scope": ScopeTelemetryWrite,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	s.cached, s.expires = signed, exp
	return signed, nil
}
