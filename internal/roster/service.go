package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sugarMin = 0
	sugarMax = 10
)

var (
	// ErrColleagueNotFound indicates the referenced colleague does not exist or is inactive.
	ErrColleagueNotFound = errors.New("roster: colleague not found")
	// ErrOptionNotFound indicates the referenced coffee option does not exist.
	ErrOptionNotFound = errors.New("roster: coffee option not found")
	// ErrInvalidName indicates an empty colleague name.
	ErrInvalidName = errors.New("roster: invalid colleague name")
	// ErrSugarOutOfRange indicates a sugar count outside [0,10].
	ErrSugarOutOfRange = errors.New("roster: sugar must be between 0 and 10")
	// ErrCatalogItemUnavailable indicates a referenced catalog item is missing or inactive.
	ErrCatalogItemUnavailable = errors.New("roster: catalog item unavailable")

	errMissingDatabase   = errors.New("roster: database handle is required")
	errMissingIDProvider = errors.New("roster: id provider is required")
)

// IDProvider issues identifiers for new roster rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the roster service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages colleagues and their saved coffee options.
type Service struct {
	db         *gorm.DB
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the roster service.
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

const optionDetailColumns = `coffee_options.id, coffee_options.colleague_id,
coffee_options.drink_type_id, drink_types.name AS drink_type_name,
coffee_options.size_id, sizes.name AS size_name, sizes.abbreviation AS size_abbreviation,
coffee_options.milk_option_id, COALESCE(milk_options.name, '') AS milk_option_name,
coffee_options.sugar, coffee_options.notes, coffee_options.is_default, coffee_options.display_order`

func (s *Service) optionDetailQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("coffee_options").
		Select(optionDetailColumns).
		Joins("JOIN drink_types ON drink_types.id = coffee_options.drink_type_id").
		Joins("JOIN sizes ON sizes.id = coffee_options.size_id").
		Joins("LEFT JOIN milk_options ON milk_options.id = coffee_options.milk_option_id")
}

// ListActive returns active colleagues ordered for display, each with
// catalog-resolved coffee options ordered by display_order.
func (s *Service) ListActive(ctx context.Context) ([]ColleagueDetail, error) {
	var colleagues []Colleague
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order, name").
		Find(&colleagues).Error
	if err != nil {
		return nil, fmt.Errorf("roster: list colleagues: %w", err)
	}

	details := make([]ColleagueDetail, 0, len(colleagues))
	if len(colleagues) == 0 {
		return details, nil
	}

	colleagueIDs := make([]string, 0, len(colleagues))
	for _, colleague := range colleagues {
		colleagueIDs = append(colleagueIDs, colleague.ID)
	}

	var options []CoffeeOptionDetail
	err = s.optionDetailQuery(ctx).
		Where("coffee_options.colleague_id IN ?", colleagueIDs).
		Order("coffee_options.display_order, coffee_options.created_at").
		Scan(&options).Error
	if err != nil {
		return nil, fmt.Errorf("roster: list coffee options: %w", err)
	}

	optionsByColleague := make(map[string][]CoffeeOptionDetail, len(colleagues))
	for _, option := range options {
		optionsByColleague[option.ColleagueID] = append(optionsByColleague[option.ColleagueID], option)
	}

	for _, colleague := range colleagues {
		nested := optionsByColleague[colleague.ID]
		if nested == nil {
			nested = []CoffeeOptionDetail{}
		}
		details = append(details, ColleagueDetail{
			ID:            colleague.ID,
			Name:          colleague.Name,
			UsuallyIn:     colleague.UsuallyIn,
			DisplayOrder:  colleague.DisplayOrder,
			IsActive:      colleague.IsActive,
			CoffeeOptions: nested,
		})
	}
	return details, nil
}

// ResolveCoffeeOption returns the option joined with the catalog names at the
// current time. Order creation snapshots the result.
func (s *Service) ResolveCoffeeOption(ctx context.Context, optionID string) (CoffeeOptionDetail, error) {
	var detail CoffeeOptionDetail
	err := s.optionDetailQuery(ctx).
		Where("coffee_options.id = ?", optionID).
		Scan(&detail).Error
	if err != nil {
		return CoffeeOptionDetail{}, fmt.Errorf("roster: resolve coffee option: %w", err)
	}
	if detail.ID == "" {
		return CoffeeOptionDetail{}, ErrOptionNotFound
	}
	return detail, nil
}

// ColleagueName returns the name of a colleague regardless of active state.
// Used when snapshotting order items.
func (s *Service) ColleagueName(ctx context.Context, colleagueID string) (string, error) {
	var colleague Colleague
	err := s.db.WithContext(ctx).Where("id = ?", colleagueID).Take(&colleague).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrColleagueNotFound
	}
	if err != nil {
		return "", fmt.Errorf("roster: load colleague: %w", err)
	}
	return colleague.Name, nil
}

// CreateColleague registers a new colleague.
func (s *Service) CreateColleague(ctx context.Context, name string, usuallyIn bool, displayOrder int) (Colleague, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Colleague{}, ErrInvalidName
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Colleague{}, err
	}
	colleague := Colleague{
		ID:           id,
		Name:         name,
		UsuallyIn:    usuallyIn,
		DisplayOrder: displayOrder,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&colleague).Error; err != nil {
		return Colleague{}, fmt.Errorf("roster: create colleague: %w", err)
	}
	s.logger.Info("colleague created", zap.String("id", colleague.ID), zap.String("name", colleague.Name))
	return colleague, nil
}

// ColleagueUpdate carries optional field updates. Nil fields are left unchanged.
type ColleagueUpdate struct {
	Name         *string
	UsuallyIn    *bool
	DisplayOrder *int
	IsActive     *bool
}

// UpdateColleague applies a partial update to a colleague.
func (s *Service) UpdateColleague(ctx context.Context, colleagueID string, update ColleagueUpdate) (Colleague, error) {
	var colleague Colleague
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", colleagueID).Take(&colleague).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrColleagueNotFound
		}
		if err != nil {
			return fmt.Errorf("roster: load colleague: %w", err)
		}

		changes := map[string]interface{}{}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return ErrInvalidName
			}
			changes["name"] = name
		}
		if update.UsuallyIn != nil {
			changes["usually_in"] = *update.UsuallyIn
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
		if err := tx.Model(&Colleague{}).Where("id = ?", colleagueID).Updates(changes).Error; err != nil {
			return fmt.Errorf("roster: update colleague: %w", err)
		}
		return tx.Where("id = ?", colleagueID).Take(&colleague).Error
	})
	if txErr != nil {
		return Colleague{}, txErr
	}
	return colleague, nil
}

// DeactivateColleague soft-deletes a colleague. Their rows survive so that
// historical order references stay valid; every read path filters them out.
func (s *Service) DeactivateColleague(ctx context.Context, colleagueID string) error {
	inactive := false
	_, err := s.UpdateColleague(ctx, colleagueID, ColleagueUpdate{IsActive: &inactive})
	return err
}

// OptionInput describes a new coffee option.
type OptionInput struct {
	DrinkTypeID  string
	SizeID       string
	MilkOptionID *string
	Sugar        int
	Notes        string
	IsDefault    bool
	DisplayOrder int
}

// AddCoffeeOption creates a saved drink configuration for a colleague. The
// first option a colleague gets becomes their default; an explicit default
// clears the previous one within the same transaction.
func (s *Service) AddCoffeeOption(ctx context.Context, colleagueID string, input OptionInput) (CoffeeOption, error) {
	if input.Sugar < sugarMin || input.Sugar > sugarMax {
		return CoffeeOption{}, ErrSugarOutOfRange
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return CoffeeOption{}, err
	}

	option := CoffeeOption{
		ID:           id,
		ColleagueID:  colleagueID,
		DrinkTypeID:  input.DrinkTypeID,
		SizeID:       input.SizeID,
		MilkOptionID: input.MilkOptionID,
		Sugar:        input.Sugar,
		Notes:        strings.TrimSpace(input.Notes),
		IsDefault:    input.IsDefault,
		DisplayOrder: input.DisplayOrder,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var colleague Colleague
		err := tx.Where("id = ? AND is_active = ?", colleagueID, true).Take(&colleague).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrColleagueNotFound
		}
		if err != nil {
			return fmt.Errorf("roster: load colleague: %w", err)
		}

		if err := s.checkCatalogRefs(tx, &input.DrinkTypeID, &input.SizeID, input.MilkOptionID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&CoffeeOption{}).Where("colleague_id = ?", colleagueID).Count(&existing).Error; err != nil {
			return fmt.Errorf("roster: count options: %w", err)
		}
		if existing == 0 {
			option.IsDefault = true
		} else if option.IsDefault {
			if err := clearDefaults(tx, colleagueID); err != nil {
				return err
			}
		}

		if err := tx.Create(&option).Error; err != nil {
			return fmt.Errorf("roster: create option: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return CoffeeOption{}, txErr
	}
	s.logger.Info("coffee option added",
		zap.String("colleague_id", colleagueID),
		zap.String("option_id", option.ID),
		zap.Bool("is_default", option.IsDefault))
	return option, nil
}

// OptionUpdate carries optional field updates for a coffee option.
type OptionUpdate struct {
	DrinkTypeID  *string
	SizeID       *string
	MilkOptionID *string
	ClearMilk    bool
	Sugar        *int
	Notes        *string
	DisplayOrder *int
}

// UpdateCoffeeOption applies a partial update to an existing option. Defaults
// are changed only through SetDefaultOption.
func (s *Service) UpdateCoffeeOption(ctx context.Context, optionID string, update OptionUpdate) (CoffeeOption, error) {
	if update.Sugar != nil && (*update.Sugar < sugarMin || *update.Sugar > sugarMax) {
		return CoffeeOption{}, ErrSugarOutOfRange
	}

	var option CoffeeOption
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", optionID).Take(&option).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOptionNotFound
		}
		if err != nil {
			return fmt.Errorf("roster: load option: %w", err)
		}

		var newMilk *string
		if !update.ClearMilk {
			newMilk = update.MilkOptionID
		}
		if err := s.checkCatalogRefs(tx, update.DrinkTypeID, update.SizeID, newMilk); err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if update.DrinkTypeID != nil {
			changes["drink_type_id"] = *update.DrinkTypeID
		}
		if update.SizeID != nil {
			changes["size_id"] = *update.SizeID
		}
		if update.ClearMilk {
			changes["milk_option_id"] = nil
		} else if update.MilkOptionID != nil {
			changes["milk_option_id"] = *update.MilkOptionID
		}
		if update.Sugar != nil {
			changes["sugar"] = *update.Sugar
		}
		if update.Notes != nil {
			changes["notes"] = strings.TrimSpace(*update.Notes)
		}
		if update.DisplayOrder != nil {
			changes["display_order"] = *update.DisplayOrder
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&CoffeeOption{}).Where("id = ?", optionID).Updates(changes).Error; err != nil {
			return fmt.Errorf("roster: update option: %w", err)
		}
		return tx.Where("id = ?", optionID).Take(&option).Error
	})
	if txErr != nil {
		return CoffeeOption{}, txErr
	}
	return option, nil
}

// RemoveCoffeeOption hard-deletes a saved option. Historical orders are
// unaffected because order items carry their own snapshot.
func (s *Service) RemoveCoffeeOption(ctx context.Context, optionID string) error {
	result := s.db.WithContext(ctx).Where("id = ?", optionID).Delete(&CoffeeOption{})
	if result.Error != nil {
		return fmt.Errorf("roster: delete option: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOptionNotFound
	}
	return nil
}

// SetDefaultOption marks one option as the colleague's default, clearing any
// previous default in the same transaction so the single-default invariant
// holds under concurrent writers.
func (s *Service) SetDefaultOption(ctx context.Context, colleagueID, optionID string) (CoffeeOption, error) {
	var option CoffeeOption
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND colleague_id = ?", optionID, colleagueID).Take(&option).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOptionNotFound
		}
		if err != nil {
			return fmt.Errorf("roster: load option: %w", err)
		}
		if err := clearDefaults(tx, colleagueID); err != nil {
			return err
		}
		if err := tx.Model(&CoffeeOption{}).Where("id = ?", optionID).Update("is_default", true).Error; err != nil {
			return fmt.Errorf("roster: set default: %w", err)
		}
		return tx.Where("id = ?", optionID).Take(&option).Error
	})
	if txErr != nil {
		return CoffeeOption{}, txErr
	}
	s.logger.Info("default option set",
		zap.String("colleague_id", colleagueID),
		zap.String("option_id", optionID))
	return option, nil
}

func clearDefaults(tx *gorm.DB, colleagueID string) error {
	err := tx.Model(&CoffeeOption{}).
		Where("colleague_id = ? AND is_default = ?", colleagueID, true).
		Update("is_default", false).Error
	if err != nil {
		return fmt.Errorf("roster: clear defaults: %w", err)
	}
	return nil
}

// checkCatalogRefs verifies the referenced catalog rows exist and are active.
// Nil ids are skipped so update paths only validate what they change.
// Inactive items are excluded from new selections but preserved on history.
func (s *Service) checkCatalogRefs(tx *gorm.DB, drinkTypeID, sizeID, milkOptionID *string) error {
	var count int64
	if drinkTypeID != nil {
		if err := tx.Table("drink_types").Where("id = ? AND is_active = ?", *drinkTypeID, true).Count(&count).Error; err != nil {
			return fmt.Errorf("roster: check drink type: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: drink type %s", ErrCatalogItemUnavailable, *drinkTypeID)
		}
	}
	if sizeID != nil {
		if err := tx.Table("sizes").Where("id = ? AND is_active = ?", *sizeID, true).Count(&count).Error; err != nil {
			return fmt.Errorf("roster: check size: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: size %s", ErrCatalogItemUnavailable, *sizeID)
		}
	}
	if milkOptionID != nil {
		if err := tx.Table("milk_options").Where("id = ? AND is_active = ?", *milkOptionID, true).Count(&count).Error; err != nil {
			return fmt.Errorf("roster: check milk option: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: milk option %s", ErrCatalogItemUnavailable, *milkOptionID)
		}
	}
	return nil
}
