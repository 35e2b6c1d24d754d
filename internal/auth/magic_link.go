package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qlndemo/coffeerun/backend/internal/users"
)

const (
	defaultMagicLinkTTL = 15 * time.Minute
	magicTokenBytes     = 32
)

var (
	// ErrInvalidMagicToken covers unknown, used, and expired magic-link tokens.
	// Callers get a single answer so tokens cannot be probed.
	ErrInvalidMagicToken = errors.New("auth: invalid or expired magic link token")

	errMissingMagicDatabase = errors.New("auth: database handle is required")
	errMissingAccounts      = errors.New("auth: account provider is required")
	errMissingMagicIDs      = errors.New("auth: id provider is required")
)

// AccountProvider supplies user lookups for the login flow. Implemented by
// the users service.
type AccountProvider interface {
	GetOrCreateByEmail(ctx context.Context, email string) (users.User, error)
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// IDProvider issues identifiers for magic-link token rows.
type IDProvider interface {
	NewID() (string, error)
}

// MagicLinkConfig describes the dependencies of the passwordless login flow.
type MagicLinkConfig struct {
	Database   *gorm.DB
	Accounts   AccountProvider
	IDProvider IDProvider
	TTL        time.Duration
	Clock      func() time.Time
	Logger     *zap.Logger
}

// MagicLinks implements the passwordless login flow: issue a single-use token
// whose SHA-256 hash is stored at rest, then exchange it once for a session.
type MagicLinks struct {
	db         *gorm.DB
	accounts   AccountProvider
	idProvider IDProvider
	ttl        time.Duration
	clock      func() time.Time
	logger     *zap.Logger
}

// NewMagicLinks constructs the magic-link service.
func NewMagicLinks(cfg MagicLinkConfig) (*MagicLinks, error) {
	if cfg.Database == nil {
		return nil, errMissingMagicDatabase
	}
	if cfg.Accounts == nil {
		return nil, errMissingAccounts
	}
	if cfg.IDProvider == nil {
		return nil, errMissingMagicIDs
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultMagicLinkTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MagicLinks{
		db:         cfg.Database,
		accounts:   cfg.Accounts,
		idProvider: cfg.IDProvider,
		ttl:        ttl,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Issue creates (or finds) the account for the email and mints a raw login
// token. Only the hash is persisted; the raw token goes into the emailed link.
func (m *MagicLinks) Issue(ctx context.Context, email string) (users.User, string, error) {
	user, err := m.accounts.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return users.User{}, "", err
	}

	rawToken, err := generateMagicToken()
	if err != nil {
		return users.User{}, "", err
	}
	tokenID, err := m.idProvider.NewID()
	if err != nil {
		return users.User{}, "", err
	}

	record := users.MagicLinkToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: m.clock().UTC().Add(m.ttl),
	}
	if err := m.db.WithContext(ctx).Create(&record).Error; err != nil {
		return users.User{}, "", fmt.Errorf("auth: store magic token: %w", err)
	}

	m.logger.Info("magic link issued", zap.String("user_id", user.ID))
	return user, rawToken, nil
}

// Verify exchanges a raw token for its account exactly once. Unknown, used,
// and expired tokens all fail the same way.
func (m *MagicLinks) Verify(ctx context.Context, rawToken string) (users.User, error) {
	tokenHash := hashToken(rawToken)

	var record users.MagicLinkToken
	txErr := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("token_hash = ? AND used = ? AND expires_at > ?", tokenHash, false, m.clock().UTC()).
			Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidMagicToken
		}
		if err != nil {
			return fmt.Errorf("auth: load magic token: %w", err)
		}
		return tx.Model(&users.MagicLinkToken{}).
			Where("id = ?", record.ID).
			Update("used", true).Error
	})
	if txErr != nil {
		return users.User{}, txErr
	}

	user, err := m.accounts.GetByID(ctx, record.UserID)
	if err != nil {
		return users.User{}, err
	}
	m.logger.Info("magic link verified", zap.String("user_id", user.ID))
	return user, nil
}

func generateMagicToken() (string, error) {
	buf := make([]byte, magicTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate magic token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
