// Package identity verifies the session tokens minted by the event's identity
// provider and turns them into a caller principal.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTTL      = 7 * 24 * time.Hour
	MinSecretLength = 32
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrWeakSecret   = errors.New("session secret must be at least 32 characters")
)

// Principal is the authenticated caller carried by a session.
type Principal struct {
	UserID  string
	Role    string
	EventID string
	TeamID  string
}

type Claims struct {
	Auth    bool   `json:"auth"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`
	EventID string `json:"eventId"`
	TeamID  string `json:"teamId,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy that reads time from now.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	clone := *s
	clone.now = now
	return &clone
}

func (s *Sessions) Issue(principal Principal) (string, error) {
	userID := strings.TrimSpace(principal.UserID)
	if userID == "" {
		return "", fmt.Errorf("issue session: user id is required")
	}
	issuedAt := s.now()
	claims := Claims{
		Auth:    true,
		UserID:  userID,
		Role:    strings.ToLower(strings.TrimSpace(principal.Role)),
		EventID: strings.TrimSpace(principal.EventID),
		TeamID:  strings.TrimSpace(principal.TeamID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (s *Sessions) Verify(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.Auth || strings.TrimSpace(claims.UserID) == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		UserID:  claims.UserID,
		Role:    claims.Role,
		EventID: claims.EventID,
		TeamID:  claims.TeamID,
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
