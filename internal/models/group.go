package models

import "time"

// Group flags. FlagDisabled is shared with users.
const (
	GroupFlagRole           = 2
	GroupFlagProjectManager = 4
)

type Group struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Flags       int       `gorm:"not null;default:0" json:"flags"`
	ParentID    *string   `gorm:"type:varchar(36);index" json:"parent_id,omitempty"`
	OrgUnit     string    `gorm:"type:varchar(255);not null;default:'/'" json:"org_unit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Members []UserGroup `gorm:"foreignKey:GroupID" json:"-"`
}

// HasParent reports whether the group is nested under another group.
func (g *Group) HasParent() bool {
	return g.ParentID != nil && *g.ParentID != ""
}

// TableName avoids GROUPS, a reserved word in MySQL 8.
func (Group) TableName() string {
	return "principal_groups"
}
