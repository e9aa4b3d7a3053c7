package dto

import (
	"time"

	"github.com/yukikurage/cms-resource-broker/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Flags          int                    `json:"flags"`
	Disabled       bool                   `json:"disabled"`
	DefaultGroupID string                 `json:"default_group_id,omitempty"`
	AdditionalInfo map[string]interface{} `json:"additional_info,omitempty"`
	OrgUnit        string                 `json:"org_unit"`
	CreatedAt      time.Time              `json:"created_at"`
}

// GroupDTO represents a group in API responses
type GroupDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Flags       int     `json:"flags"`
	ParentID    *string `json:"parent_id,omitempty"`
	OrgUnit     string  `json:"org_unit"`
}

// CurrentUserDTO describes the acting user and its roles
type CurrentUserDTO struct {
	User          UserDTO `json:"user"`
	Anonymous     bool    `json:"anonymous"`
	Admin         bool    `json:"admin"`
	ProjectLeader bool    `json:"project_leader"`
}

// LoginRequest holds login credentials
type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is the body of POST /api/users
type CreateUserRequest struct {
	Name           string                 `json:"name" binding:"required,max=128"`
	Password       string                 `json:"password" binding:"required"`
	Group          string                 `json:"group" binding:"required"`
	Description    string                 `json:"description"`
	AdditionalInfo map[string]interface{} `json:"additional_info"`
	Flags          int                    `json:"flags"`
}

// UpdateUserRequest is the body of PUT /api/users/:name
type UpdateUserRequest struct {
	Description    string                 `json:"description"`
	Flags          int                    `json:"flags"`
	DefaultGroup   string                 `json:"default_group"`
	AdditionalInfo map[string]interface{} `json:"additional_info"`
	OrgUnit        string                 `json:"org_unit"`
}

// SetPasswordRequest is the body of PUT /api/users/:name/password
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// CreateGroupRequest is the body of POST /api/groups
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description"`
	Flags       int    `json:"flags"`
	Parent      string `json:"parent"`
}

// UpdateGroupRequest is the body of PUT /api/groups/:name
type UpdateGroupRequest struct {
	Description string `json:"description"`
	Flags       int    `json:"flags"`
	Parent      string `json:"parent"`
	OrgUnit     string `json:"org_unit"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Name:           user.Name,
		Description:    user.Description,
		Flags:          user.Flags,
		Disabled:       user.Disabled(),
		DefaultGroupID: user.DefaultGroupID,
		AdditionalInfo: user.AdditionalInfo,
		OrgUnit:        user.OrgUnit,
		CreatedAt:      user.CreatedAt,
	}
}

// ToUserDTOs converts a list of users
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = ToUserDTO(user)
	}
	return dtos
}

// ToGroupDTO converts a Group model to GroupDTO
func ToGroupDTO(group models.Group) GroupDTO {
	return GroupDTO{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Flags:       group.Flags,
		ParentID:    group.ParentID,
		OrgUnit:     group.OrgUnit,
	}
}

// ToGroupDTOs converts a list of groups
func ToGroupDTOs(groups []models.Group) []GroupDTO {
	dtos := make([]GroupDTO, len(groups))
	for i, group := range groups {
		dtos[i] = ToGroupDTO(group)
	}
	return dtos
}
