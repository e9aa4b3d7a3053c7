package models

import "time"

// Resource access flags.
const (
	AccessOwnerRead   = 1
	AccessOwnerWrite  = 2
	AccessGroupRead   = 8
	AccessGroupWrite  = 16
	AccessPublicRead  = 64
	AccessPublicWrite = 128

	AccessDefault = AccessOwnerRead | AccessOwnerWrite | AccessGroupRead | AccessGroupWrite | AccessPublicRead
)

type ResourceType struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Resource is a file or folder of the virtual file system. ProjectID points
// at the project holding it as a pending change, or at the online project
// once it has been published.
type Resource struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Path        string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"path"`
	TypeID      string    `gorm:"type:varchar(36);index;not null" json:"type_id"`
	OwnerID     string    `gorm:"type:varchar(36);not null" json:"owner_id"`
	GroupID     string    `gorm:"type:varchar(36);not null" json:"group_id"`
	AccessFlags int       `gorm:"not null" json:"access_flags"`
	ProjectID   string    `gorm:"type:varchar(36);index;not null" json:"project_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasAccess reports whether all bits of flag are set.
func (r *Resource) HasAccess(flag int) bool {
	return r.AccessFlags&flag == flag
}
