package models

import "time"

type ProjectState string

const (
	ProjectStateUnlocked  ProjectState = "unlocked"
	ProjectStatePublished ProjectState = "published"
	ProjectStateOnline    ProjectState = "online"
)

type Project struct {
	ID            string       `gorm:"type:varchar(36);primarykey" json:"id"`
	Name          string       `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Description   string       `gorm:"type:varchar(255)" json:"description"`
	OwnerID       string       `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	GroupID       string       `gorm:"type:varchar(36);index;not null" json:"group_id"`
	Flags         int          `gorm:"not null;default:0" json:"flags"`
	TaskID        string       `gorm:"type:varchar(128)" json:"task_id"`
	State         ProjectState `gorm:"type:varchar(20);not null;default:'unlocked'" json:"state"`
	PublishedAt   *time.Time   `json:"published_at,omitempty"`
	PublishedByID *string      `gorm:"type:varchar(36)" json:"published_by_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsOnline reports whether this is the published, publicly visible project.
func (p *Project) IsOnline() bool {
	return p.State == ProjectStateOnline
}
