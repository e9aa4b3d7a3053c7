package models

import "time"

// UserGroup is the membership relation between users and groups.
type UserGroup struct {
	UserID    string    `gorm:"type:varchar(36);primarykey" json:"user_id"`
	GroupID   string    `gorm:"type:varchar(36);primarykey" json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}
