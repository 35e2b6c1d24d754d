package orders

import "time"

// Order is an immutable coffee run. It is created atomically with its items
// and consolidated lines and never updated or deleted afterwards; corrections
// are new orders.
type Order struct {
	ID           string             `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	ShareToken   string             `gorm:"column:share_token;size:64;uniqueIndex;not null" json:"share_token"`
	CreatedBy    string             `gorm:"column:created_by;size:36;not null" json:"created_by"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	Items        []OrderItem        `gorm:"foreignKey:OrderID" json:"items"`
	Consolidated []ConsolidatedLine `gorm:"foreignKey:OrderID" json:"consolidated"`
}

// TableName provides the explicit table binding for GORM.
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one person's chosen drink, snapshotted with the catalog names
// and colleague name as they existed at order creation. Later catalog or
// roster edits never alter these rows.
type OrderItem struct {
	ID               string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	OrderID          string    `gorm:"column:order_id;size:36;not null;index" json:"order_id"`
	ColleagueID      string    `gorm:"column:colleague_id;size:36;not null" json:"colleague_id"`
	ColleagueName    string    `gorm:"column:colleague_name;size:100;not null" json:"colleague_name"`
	CoffeeOptionID   string    `gorm:"column:coffee_option_id;size:36;not null" json:"coffee_option_id"`
	DrinkTypeName    string    `gorm:"column:drink_type_name;size:100;not null" json:"drink_type_name"`
	SizeName         string    `gorm:"column:size_name;size:50;not null" json:"size_name"`
	SizeAbbreviation string    `gorm:"column:size_abbreviation;size:10;not null" json:"size_abbreviation"`
	MilkOptionName   string    `gorm:"column:milk_option_name;size:50;not null;default:''" json:"milk_option_name,omitempty"`
	Sugar            int       `gorm:"column:sugar;not null;default:0" json:"sugar"`
	Notes            string    `gorm:"column:notes;size:255;not null;default:''" json:"notes,omitempty"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (OrderItem) TableName() string {
	return "order_items"
}

// ConsolidatedLine is one deduplicated line of an order summary, computed once
// at order creation and stored alongside the order. Position preserves the
// deterministic sort so reads never re-derive ordering.
type ConsolidatedLine struct {
	ID               string `gorm:"column:id;primaryKey;size:36;not null" json:"-"`
	OrderID          string `gorm:"column:order_id;size:36;not null;index" json:"-"`
	Position         int    `gorm:"column:position;not null" json:"-"`
	Count            int    `gorm:"column:count;not null" json:"count"`
	DrinkTypeName    string `gorm:"column:drink_type_name;size:100;not null" json:"drink_type_name"`
	SizeName         string `gorm:"column:size_name;size:50;not null" json:"size_name"`
	SizeAbbreviation string `gorm:"column:size_abbreviation;size:10;not null" json:"size_abbreviation"`
	MilkOptionName   string `gorm:"column:milk_option_name;size:50;not null;default:''" json:"milk_option_name,omitempty"`
	Sugar            int    `gorm:"column:sugar;not null;default:0" json:"sugar"`
	Notes            string `gorm:"column:notes;size:255;not null;default:''" json:"notes,omitempty"`
	DisplayText      string `gorm:"column:display_text;size:512;not null" json:"display_text"`
}

// TableName provides the explicit table binding for GORM.
func (ConsolidatedLine) TableName() string {
	return "consolidated_lines"
}

// Selection pairs a colleague with the coffee option they want on this run.
type Selection struct {
	ColleagueID    string
	CoffeeOptionID string
}

// ResolvedSelection is a selection after catalog resolution: the six-field
// drink tuple plus the names needed for the per-person snapshot.
type ResolvedSelection struct {
	ColleagueID      string
	ColleagueName    string
	CoffeeOptionID   string
	DrinkTypeName    string
	SizeName         string
	SizeAbbreviation string
	MilkOptionName   string
	Sugar            int
	Notes            string
}

// Summary is the shape of a row on the order history listing.
type Summary struct {
	ID         string    `json:"id"`
	ShareToken string    `json:"share_token"`
	CreatedAt  time.Time `json:"created_at"`
	ItemCount  int       `json:"item_count"`
}
