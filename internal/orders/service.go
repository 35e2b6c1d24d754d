package orders

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qlndemo/coffeerun/backend/internal/roster"
)

const shareTokenBytes = 48

var (
	// ErrOrderNotFound indicates no order matches the given id or share token.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrCoffeeOptionNotFound indicates a selection referenced a missing option.
	// The whole order is aborted; nothing partial is ever persisted.
	ErrCoffeeOptionNotFound = errors.New("orders: coffee option not found")
	// ErrSelectionMismatch indicates a selection paired a coffee option with a
	// colleague who does not own it.
	ErrSelectionMismatch = errors.New("orders: coffee option does not belong to colleague")
	// ErrConflict indicates a share-token collision; the caller can simply retry.
	ErrConflict = errors.New("orders: conflicting write, retry")
	// ErrMissingCreator indicates order creation without an authenticated user id.
	ErrMissingCreator = errors.New("orders: creator id is required")

	errMissingDatabase   = errors.New("orders: database handle is required")
	errMissingIDProvider = errors.New("orders: id provider is required")
	errMissingResolver   = errors.New("orders: selection resolver is required")
)

// IDProvider issues identifiers for new order rows.
type IDProvider interface {
	NewID() (string, error)
}

// SelectionResolver resolves coffee options against the current catalog and
// supplies colleague names for the per-person snapshot. Implemented by the
// roster service.
type SelectionResolver interface {
	ResolveCoffeeOption(ctx context.Context, optionID string) (roster.CoffeeOptionDetail, error)
	ColleagueName(ctx context.Context, colleagueID string) (string, error)
}

// ServiceConfig describes the dependencies of the order service.
type ServiceConfig struct {
	Database   *gorm.DB
	Resolver   SelectionResolver
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service creates and serves immutable orders. Share tokens are capabilities:
// anyone holding one can read the order indefinitely. There is no revocation
// or expiry.
type Service struct {
	db         *gorm.DB
	resolver   SelectionResolver
	idProvider IDProvider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService constructs the order service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Resolver == nil {
		return nil, errMissingResolver
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		resolver:   cfg.Resolver,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Create resolves every selection, consolidates, and persists the order, its
// item snapshots, and its consolidated lines as one atomic unit. Any
// unresolved selection aborts the whole order before anything is written.
func (s *Service) Create(ctx context.Context, creatorID string, selections []Selection) (Order, error) {
	if strings.TrimSpace(creatorID) == "" {
		return Order{}, ErrMissingCreator
	}
	if len(selections) == 0 {
		return Order{}, ErrEmptyOrder
	}

	resolved := make([]ResolvedSelection, 0, len(selections))
	for _, selection := range selections {
		detail, err := s.resolver.ResolveCoffeeOption(ctx, selection.CoffeeOptionID)
		if errors.Is(err, roster.ErrOptionNotFound) {
			return Order{}, fmt.Errorf("%w: %s", ErrCoffeeOptionNotFound, selection.CoffeeOptionID)
		}
		if err != nil {
			return Order{}, err
		}
		if detail.ColleagueID != selection.ColleagueID {
			return Order{}, fmt.Errorf("%w: option %s", ErrSelectionMismatch, selection.CoffeeOptionID)
		}
		colleagueName, err := s.resolver.ColleagueName(ctx, selection.ColleagueID)
		if err != nil {
			return Order{}, err
		}
		resolved = append(resolved, ResolvedSelection{
			ColleagueID:      selection.ColleagueID,
			ColleagueName:    colleagueName,
			CoffeeOptionID:   selection.CoffeeOptionID,
			DrinkTypeName:    detail.DrinkTypeName,
			SizeName:         detail.SizeName,
			SizeAbbreviation: detail.SizeAbbreviation,
			MilkOptionName:   detail.MilkOptionName,
			Sugar:            detail.Sugar,
			Notes:            detail.Notes,
		})
	}

	lines, err := Consolidate(resolved)
	if err != nil {
		return Order{}, err
	}

	orderID, err := s.idProvider.NewID()
	if err != nil {
		return Order{}, err
	}
	shareToken, err := generateShareToken()
	if err != nil {
		return Order{}, err
	}

	createdAt := s.clock().UTC()
	order := Order{
		ID:         orderID,
		ShareToken: shareToken,
		CreatedBy:  creatorID,
		CreatedAt:  createdAt,
	}

	items := make([]OrderItem, 0, len(resolved))
	for _, selection := range resolved {
		itemID, err := s.idProvider.NewID()
		if err != nil {
			return Order{}, err
		}
		items = append(items, OrderItem{
			ID:               itemID,
			OrderID:          orderID,
			ColleagueID:      selection.ColleagueID,
			ColleagueName:    selection.ColleagueName,
			CoffeeOptionID:   selection.CoffeeOptionID,
			DrinkTypeName:    selection.DrinkTypeName,
			SizeName:         selection.SizeName,
			SizeAbbreviation: selection.SizeAbbreviation,
			MilkOptionName:   selection.MilkOptionName,
			Sugar:            selection.Sugar,
			Notes:            selection.Notes,
			CreatedAt:        createdAt,
		})
	}
	for position := range lines {
		lineID, err := s.idProvider.NewID()
		if err != nil {
			return Order{}, err
		}
		lines[position].ID = lineID
		lines[position].OrderID = orderID
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("orders: insert order: %w", err)
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("orders: insert items: %w", err)
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("orders: insert consolidated lines: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return Order{}, txErr
	}

	order.Items = items
	order.Consolidated = lines
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("created_by", creatorID),
		zap.Int("items", len(items)),
		zap.Int("lines", len(lines)))
	return order, nil
}

// GetByID loads an order with its items and consolidated lines.
func (s *Service) GetByID(ctx context.Context, orderID string) (Order, error) {
	return s.load(ctx, "id = ?", orderID)
}

// GetByShareToken loads the identical order record through its share token.
// No authentication is involved; the token is the capability.
func (s *Service) GetByShareToken(ctx context.Context, token string) (Order, error) {
	return s.load(ctx, "share_token = ?", token)
}

func (s *Service) load(ctx context.Context, query string, arg string) (Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("colleague_name, id")
		}).
		Preload("Consolidated", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Where(query, arg).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: load order: %w", err)
	}
	return order, nil
}

// List returns recent orders, newest first, with item counts.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var rows []Order
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("orders: list orders: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	if len(rows) == 0 {
		return summaries, nil
	}

	orderIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.ID)
	}

	type countRow struct {
		OrderID string `gorm:"column:order_id"`
		Count   int    `gorm:"column:count"`
	}
	var counts []countRow
	err = s.db.WithContext(ctx).
		Table("order_items").
		Select("order_id, COUNT(*) AS count").
		Where("order_id IN ?", orderIDs).
		Group("order_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("orders: count items: %w", err)
	}
	countsByOrder := make(map[string]int, len(counts))
	for _, row := range counts {
		countsByOrder[row.OrderID] = row.Count
	}

	for _, row := range rows {
		summaries = append(summaries, Summary{
			ID:         row.ID,
			ShareToken: row.ShareToken,
			CreatedAt:  row.CreatedAt,
			ItemCount:  countsByOrder[row.ID],
		})
	}
	return summaries, nil
}

// generateShareToken returns a cryptographically random URL-safe token. With
// 48 random bytes guessing is infeasible; the token doubles as the anonymous
// read capability.
func generateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("orders: generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
