package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/qlndemo/coffeerun/backend/internal/users"
)

const defaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSigningSecret indicates the session manager was built without a key.
	ErrMissingSigningSecret = errors.New("auth: signing secret required")
	// ErrMissingCookieName indicates the session manager was built without a cookie name.
	ErrMissingCookieName = errors.New("auth: cookie name required")
	// ErrMissingSessionToken indicates the request carried no session cookie.
	ErrMissingSessionToken = errors.New("auth: session token required")
	// ErrInvalidSessionToken indicates a malformed, mis-signed, or mis-issued token.
	ErrInvalidSessionToken = errors.New("auth: invalid session token")
	// ErrExpiredSessionToken indicates the session has lapsed.
	ErrExpiredSessionToken = errors.New("auth: session token expired")
)

const sessionIssuer = "coffeerun-api"

// SessionClaims is the JWT payload carried by the session cookie. The core
// treats it as the request-scoped identity; there is no ambient user state.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c SessionClaims) UserID() string {
	return c.Subject
}

// IsAdmin reports whether the session carries the admin role.
func (c SessionClaims) IsAdmin() bool {
	return c.Role == string(users.RoleAdmin)
}

// SessionsConfig configures session JWT issuance and validation.
type SessionsConfig struct {
	SigningSecret []byte
	CookieName    string
	TTL           time.Duration
	Clock         func() time.Time
}

// Sessions issues and validates HS256 session JWTs delivered as HttpOnly
// cookies.
type Sessions struct {
	signingSecret []byte
	cookieName    string
	ttl           time.Duration
	clock         func() time.Time
}

// NewSessions constructs a session manager.
func NewSessions(cfg SessionsConfig) (*Sessions, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingCookieName
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Sessions{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		cookieName:    cookieName,
		ttl:           ttl,
		clock:         clock,
	}, nil
}

// CookieName returns the cookie name configured for session lookups.
func (s *Sessions) CookieName() string {
	return s.cookieName
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue produces a signed session JWT for the user.
func (s *Sessions) Issue(user users.User) (string, error) {
	now := s.clock().UTC()
	claims := SessionClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingSecret)
	if err != nil {
		return "", fmt.Errorf("auth: sign session: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the JWT string and returns the parsed claims.
func (s *Sessions) ValidateToken(tokenString string) (SessionClaims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return SessionClaims{}, ErrMissingSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidSessionToken, t.Method.Alg())
			}
			return s.signingSecret, nil
		},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrExpiredSessionToken
		}
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return SessionClaims{}, ErrInvalidSessionToken
	}
	return *claims, nil
}

// ValidateRequest extracts the session cookie from the request and validates it.
func (s *Sessions) ValidateRequest(r *http.Request) (SessionClaims, error) {
	if r == nil {
		return SessionClaims{}, ErrMissingSessionToken
	}
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie == nil {
		return SessionClaims{}, ErrMissingSessionToken
	}
	return s.ValidateToken(cookie.Value)
}
