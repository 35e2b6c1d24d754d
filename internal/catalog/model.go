package catalog

import "time"

// DrinkType is a named drink on the menu (Flat White, Long Black, ...).
type DrinkType struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name         string    `gorm:"column:name;size:100;not null" json:"name"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (DrinkType) TableName() string {
	return "drink_types"
}

// Size is a cup size. The abbreviation is what ends up on order summaries.
type Size struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name         string    `gorm:"column:name;size:50;not null" json:"name"`
	Abbreviation string    `gorm:"column:abbreviation;size:10;not null" json:"abbreviation"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Size) TableName() string {
	return "sizes"
}

// MilkOption is an optional milk choice for a drink.
type MilkOption struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name         string    `gorm:"column:name;size:50;not null" json:"name"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (MilkOption) TableName() string {
	return "milk_options"
}
