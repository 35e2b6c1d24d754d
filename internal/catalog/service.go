package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrItemNotFound indicates the referenced catalog item does not exist.
	ErrItemNotFound = errors.New("catalog: item not found")
	// ErrInvalidName indicates an empty or oversized item name.
	ErrInvalidName = errors.New("catalog: invalid name")
	// ErrInvalidAbbreviation indicates a size without a usable abbreviation.
	ErrInvalidAbbreviation = errors.New("catalog: invalid abbreviation")

	errMissingDatabase   = errors.New("catalog: database handle is required")
	errMissingIDProvider = errors.New("catalog: id provider is required")
)

// IDProvider issues identifiers for new catalog rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the catalog service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages the three reference lists backing coffee options.
type Service struct {
	db         *gorm.DB
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, logger: logger}, nil
}

// ListDrinkTypes returns active drink types ordered for display.
func (s *Service) ListDrinkTypes(ctx context.Context) ([]DrinkType, error) {
	var items []DrinkType
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order, name").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: list drink types: %w", err)
	}
	return items, nil
}

// ListSizes returns active sizes ordered for display.
func (s *Service) ListSizes(ctx context.Context) ([]Size, error) {
	var items []Size
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order, name").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: list sizes: %w", err)
	}
	return items, nil
}

// ListMilkOptions returns active milk options ordered for display.
func (s *Service) ListMilkOptions(ctx context.Context) ([]MilkOption, error) {
	var items []MilkOption
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order, name").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: list milk options: %w", err)
	}
	return items, nil
}

// CreateDrinkType inserts a new drink type.
func (s *Service) CreateDrinkType(ctx context.Context, name string, displayOrder int) (DrinkType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DrinkType{}, ErrInvalidName
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return DrinkType{}, err
	}
	item := DrinkType{ID: id, Name: name, DisplayOrder: displayOrder, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return DrinkType{}, fmt.Errorf("catalog: create drink type: %w", err)
	}
	s.logger.Info("drink type created", zap.String("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// CreateSize inserts a new size.
func (s *Service) CreateSize(ctx context.Context, name, abbreviation string, displayOrder int) (Size, error) {
	name = strings.TrimSpace(name)
	abbreviation = strings.TrimSpace(abbreviation)
	if name == "" {
		return Size{}, ErrInvalidName
	}
	if abbreviation == "" {
		return Size{}, ErrInvalidAbbreviation
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Size{}, err
	}
	item := Size{ID: id, Name: name, Abbreviation: abbreviation, DisplayOrder: displayOrder, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return Size{}, fmt.Errorf("catalog: create size: %w", err)
	}
	s.logger.Info("size created", zap.String("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// CreateMilkOption inserts a new milk option.
func (s *Service) CreateMilkOption(ctx context.Context, name string, displayOrder int) (MilkOption, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MilkOption{}, ErrInvalidName
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return MilkOption{}, err
	}
	item := MilkOption{ID: id, Name: name, DisplayOrder: displayOrder, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return MilkOption{}, fmt.Errorf("catalog: create milk option: %w", err)
	}
	s.logger.Info("milk option created", zap.String("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

// ItemUpdate carries optional field updates for a catalog item. Nil fields are
// left unchanged.
type ItemUpdate struct {
	Name         *string
	Abbreviation *string
	DisplayOrder *int
	IsActive     *bool
}

// UpdateDrinkType applies a partial update to a drink type.
func (s *Service) UpdateDrinkType(ctx context.Context, id string, update ItemUpdate) (DrinkType, error) {
	var item DrinkType
	if err := s.applyUpdate(ctx, &item, id, update); err != nil {
		return DrinkType{}, err
	}
	return item, nil
}

// UpdateSize applies a partial update to a size.
func (s *Service) UpdateSize(ctx context.Context, id string, update ItemUpdate) (Size, error) {
	var item Size
	if err := s.applyUpdate(ctx, &item, id, update); err != nil {
		return Size{}, err
	}
	return item, nil
}

// UpdateMilkOption applies a partial update to a milk option.
func (s *Service) UpdateMilkOption(ctx context.Context, id string, update ItemUpdate) (MilkOption, error) {
	var item MilkOption
	if err := s.applyUpdate(ctx, &item, id, update); err != nil {
		return MilkOption{}, err
	}
	return item, nil
}

// DeactivateDrinkType soft-deletes a drink type. Historical orders keep their
// denormalized names, so this never cascades.
func (s *Service) DeactivateDrinkType(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateDrinkType(ctx, id, ItemUpdate{IsActive: &inactive})
	return err
}

// DeactivateSize soft-deletes a size.
func (s *Service) DeactivateSize(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateSize(ctx, id, ItemUpdate{IsActive: &inactive})
	return err
}

// DeactivateMilkOption soft-deletes a milk option.
func (s *Service) DeactivateMilkOption(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateMilkOption(ctx, id, ItemUpdate{IsActive: &inactive})
	return err
}

func (s *Service) applyUpdate(ctx context.Context, model interface{}, id string, update ItemUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("catalog: load item: %w", err)
		}

		changes := map[string]interface{}{}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return ErrInvalidName
			}
			changes["name"] = name
		}
		if update.Abbreviation != nil {
			abbreviation := strings.TrimSpace(*update.Abbreviation)
			if abbreviation == "" {
				return ErrInvalidAbbreviation
			}
			changes["abbreviation"] = abbreviation
		}
		if update.DisplayOrder != nil {
			changes["display_order"] = *update.DisplayOrder
		}
		if update.IsActive != nil {
			changes["is_active"] = *update.IsActive
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(model).Where("id = ?", id).Updates(changes).Error; err != nil {
			return fmt.Errorf("catalog: update item: %w", err)
		}
		return tx.Where("id = ?", id).Take(model).Error
	})
}
