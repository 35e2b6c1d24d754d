package roster

import "time"

// Colleague is a person who can be included in a coffee run. Colleagues are
// soft-deleted so historical orders keep valid references.
type Colleague struct {
	ID            string         `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name          string         `gorm:"column:name;size:100;not null" json:"name"`
	UsuallyIn     bool           `gorm:"column:usually_in;not null;default:true" json:"usually_in"`
	DisplayOrder  int            `gorm:"column:display_order;not null;default:0" json:"display_order"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CoffeeOptions []CoffeeOption `gorm:"foreignKey:ColleagueID" json:"coffee_options"`
}

// TableName provides the explicit table binding for GORM.
func (Colleague) TableName() string {
	return "colleagues"
}

// CoffeeOption is a colleague's saved drink configuration. At most one option
// per colleague carries IsDefault.
type CoffeeOption struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	ColleagueID  string    `gorm:"column:colleague_id;size:36;not null;index" json:"colleague_id"`
	DrinkTypeID  string    `gorm:"column:drink_type_id;size:36;not null" json:"drink_type_id"`
	SizeID       string    `gorm:"column:size_id;size:36;not null" json:"size_id"`
	MilkOptionID *string   `gorm:"column:milk_option_id;size:36" json:"milk_option_id"`
	Sugar        int       `gorm:"column:sugar;not null;default:0" json:"sugar"`
	Notes        string    `gorm:"column:notes;size:255;not null;default:''" json:"notes"`
	IsDefault    bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (CoffeeOption) TableName() string {
	return "coffee_options"
}

// CoffeeOptionDetail is a coffee option joined with the catalog names as they
// exist right now. Order creation snapshots these values so later catalog
// edits never touch history.
type CoffeeOptionDetail struct {
	ID               string  `gorm:"column:id" json:"id"`
	ColleagueID      string  `gorm:"column:colleague_id" json:"colleague_id"`
	DrinkTypeID      string  `gorm:"column:drink_type_id" json:"drink_type_id"`
	DrinkTypeName    string  `gorm:"column:drink_type_name" json:"drink_type_name"`
	SizeID           string  `gorm:"column:size_id" json:"size_id"`
	SizeName         string  `gorm:"column:size_name" json:"size_name"`
	SizeAbbreviation string  `gorm:"column:size_abbreviation" json:"size_abbreviation"`
	MilkOptionID     *string `gorm:"column:milk_option_id" json:"milk_option_id"`
	MilkOptionName   string  `gorm:"column:milk_option_name" json:"milk_option_name,omitempty"`
	Sugar            int     `gorm:"column:sugar" json:"sugar"`
	Notes            string  `gorm:"column:notes" json:"notes,omitempty"`
	IsDefault        bool    `gorm:"column:is_default" json:"is_default"`
	DisplayOrder     int     `gorm:"column:display_order" json:"display_order"`
}

// ColleagueDetail is a colleague with catalog-resolved coffee options, the
// shape the selection UI consumes.
type ColleagueDetail struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	UsuallyIn     bool                 `json:"usually_in"`
	DisplayOrder  int                  `json:"display_order"`
	IsActive      bool                 `json:"is_active"`
	CoffeeOptions []CoffeeOptionDetail `json:"coffee_options"`
}
