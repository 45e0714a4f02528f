// Package member resolves vendor identities to internal members.
package member

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Member is a tracked person within a tenant.
type Member struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Name     string       `gorm:"type:text;not null" json:"name"`
	Email    string       `gorm:"type:text;not null;index" json:"email"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

// Identity links a member to the email/username a vendor reports for them.
type Identity struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	MemberID snowflake.ID `gorm:"not null;index" json:"member_id"`

	Vendor         string  `gorm:"type:text;not null" json:"vendor"`
	VendorUsername *string `gorm:"type:text" json:"vendor_username"`
	VendorEmail    *string `gorm:"type:text;index" json:"vendor_email"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Identity) TableName() string { return "member_identities" }
