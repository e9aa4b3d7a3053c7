package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Principal flags shared by users and groups.
const (
	FlagEnabled  = 0
	FlagDisabled = 1
)

// RootOrgUnit is the fully qualified name of the top organizational unit.
const RootOrgUnit = "/"

type User struct {
	ID             string            `gorm:"type:varchar(36);primarykey" json:"id"`
	Name           string            `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	PasswordHash   string            `gorm:"type:varchar(255);not null" json:"-"`
	Description    string            `gorm:"type:varchar(255)" json:"description"`
	Flags          int               `gorm:"not null;default:0" json:"flags"`
	DefaultGroupID string            `gorm:"type:varchar(36)" json:"default_group_id"`
	AdditionalInfo datatypes.JSONMap `gorm:"type:json" json:"additional_info,omitempty"`
	OrgUnit        string            `gorm:"type:varchar(255);not null;default:'/'" json:"org_unit"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	Memberships []UserGroup `gorm:"foreignKey:UserID" json:"-"`
}

// Disabled reports whether the account has been switched off.
func (u *User) Disabled() bool {
	return u.Flags&FlagDisabled != 0
}

// NewID returns a fresh identifier for any broker entity.
func NewID() string {
	return uuid.NewString()
}
