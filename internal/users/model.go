package users

import "time"

// Role gates catalog and roster mutation endpoints. It never gates
// consolidation or order reads.
type Role string

const (
	// RoleAdmin may mutate the catalog and the colleague roster.
	RoleAdmin Role = "admin"
	// RoleViewer may read everything and create orders.
	RoleViewer Role = "viewer"
)

// User is a registered account, created lazily on first magic-link login.
type User struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Email     string    `gorm:"column:email;size:320;uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"column:role;size:16;not null;default:'viewer'" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// MagicLinkToken stores the SHA-256 hash of an issued login token. The raw
// token only ever travels in the emailed link.
type MagicLinkToken struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index"`
	TokenHash string    `gorm:"column:token_hash;size:64;not null;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Used      bool      `gorm:"column:used;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (MagicLinkToken) TableName() string {
	return "magic_link_tokens"
}
