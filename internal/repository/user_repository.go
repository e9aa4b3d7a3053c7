package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/cms-resource-broker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserGroupRepository is a GORM implementation of UserGroupStore
type GormUserGroupRepository struct {
	db *gorm.DB
}

// NewUserGroupRepository creates a new UserGroupStore
func NewUserGroupRepository(db *gorm.DB) UserGroupStore {
	return &GormUserGroupRepository{db: db}
}

// CreateUser creates a user and, when a default group is set, its membership
func (r *GormUserGroupRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Unscoped().Model(&models.User{}).Where("name = ?", user.Name))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: user %q already exists", ErrConflict, user.Name)
		}

		if user.DefaultGroupID != "" {
			if err := tx.First(&models.Group{}, "id = ?", user.DefaultGroupID).Error; err != nil {
				return fmt.Errorf("default group: %w", translate(err))
			}
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if user.DefaultGroupID == "" {
			return nil
		}
		return tx.Create(&models.UserGroup{UserID: user.ID, GroupID: user.DefaultGroupID}).Error
	}))
}

// FindUserByName finds a user by name
func (r *GormUserGroupRepository) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByID finds a user by ID
func (r *GormUserGroupRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateUser updates a user
func (r *GormUserGroupRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return err
		}
		if user.DefaultGroupID != "" {
			if err := tx.First(&models.Group{}, "id = ?", user.DefaultGroupID).Error; err != nil {
				return fmt.Errorf("default group: %w", translate(err))
			}
		}
		return tx.Save(user).Error
	}))
}

// DeleteUser soft deletes a user and removes its memberships in a transaction
func (r *GormUserGroupRepository) DeleteUser(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, "id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, "id = ?", id).Error
	}))
}

// ListUsers lists all users
func (r *GormUserGroupRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreateGroup creates a new group
func (r *GormUserGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = models.NewID()
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Model(&models.Group{}).Where("name = ?", group.Name))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: group %q already exists", ErrConflict, group.Name)
		}

		if group.HasParent() {
			if err := tx.First(&models.Group{}, "id = ?", *group.ParentID).Error; err != nil {
				return fmt.Errorf("parent group: %w", translate(err))
			}
		}

		return tx.Create(group).Error
	}))
}

// FindGroupByName finds a group by name
func (r *GormUserGroupRepository) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&group).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// FindGroupByID finds a group by ID
func (r *GormUserGroupRepository) FindGroupByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// UpdateGroup updates a group. Re-parenting must not create a cycle.
func (r *GormUserGroupRepository) UpdateGroup(ctx context.Context, group *models.Group) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Group{}, "id = ?", group.ID).Error; err != nil {
			return err
		}

		parentID := group.ParentID
		for parentID != nil && *parentID != "" {
			if *parentID == group.ID {
				return fmt.Errorf("%w: group %q cannot be its own ancestor", ErrConflict, group.Name)
			}
			var parent models.Group
			if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
				return fmt.Errorf("parent group: %w", translate(err))
			}
			parentID = parent.ParentID
		}

		return tx.Save(group).Error
	}))
}

// DeleteGroup deletes a group and its memberships in a transaction
func (r *GormUserGroupRepository) DeleteGroup(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, "id = ?", id).Error; err != nil {
			return err
		}

		hasChildren, err := exists(tx.Model(&models.Group{}).Where("parent_id = ?", id))
		if err != nil {
			return err
		}
		if hasChildren {
			return fmt.Errorf("%w: group %q has subgroups", ErrConflict, group.Name)
		}

		inUse, err := exists(tx.Model(&models.Project{}).Where("group_id = ?", id))
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: group %q is assigned to a project", ErrConflict, group.Name)
		}

		if err := tx.Where("group_id = ?", id).Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("default_group_id = ?", id).
			Update("default_group_id", "").Error; err != nil {
			return err
		}

		return tx.Delete(&models.Group{}, "id = ?", id).Error
	}))
}

// ListGroups lists all groups
func (r *GormUserGroupRepository) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Order("name").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// ListChildGroups lists the direct subgroups of a group
func (r *GormUserGroupRepository) ListChildGroups(ctx context.Context, parentID string) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// ListGroupsInOrgUnit lists the groups of an organizational unit
func (r *GormUserGroupRepository) ListGroupsInOrgUnit(ctx context.Context, orgUnit string, includeSubUnits bool) ([]models.Group, error) {
	query := r.db.WithContext(ctx).Model(&models.Group{})
	if includeSubUnits {
		query = query.Where("org_unit = ? OR org_unit LIKE ?", strings.TrimSuffix(orgUnit, "/"), SubUnitPrefix(orgUnit)+"%")
	} else {
		query = query.Where("org_unit = ?", orgUnit)
	}

	var groups []models.Group
	if err := query.Order("org_unit, name").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// ListGroupsOfUser lists all groups a user is a member of
func (r *GormUserGroupRepository) ListGroupsOfUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_groups ON user_groups.group_id = principal_groups.id").
		Where("user_groups.user_id = ?", userID).
		Order("principal_groups.name").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// ListUsersOfGroup lists all members of a group
func (r *GormUserGroupRepository) ListUsersOfGroup(ctx context.Context, groupID string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_groups ON user_groups.user_id = users.id").
		Where("user_groups.group_id = ?", groupID).
		Order("users.name").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IsMember checks a single membership
func (r *GormUserGroupRepository) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.UserGroup{}).
		Where("user_id = ? AND group_id = ?", userID, groupID))
}

// AddMember adds a membership, ignoring an existing one
func (r *GormUserGroupRepository) AddMember(ctx context.Context, userID, groupID string) error {
	member := models.UserGroup{
		UserID:    userID,
		GroupID:   groupID,
		CreatedAt: time.Now(),
	}
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error)
}

// RemoveMember removes a membership
func (r *GormUserGroupRepository) RemoveMember(ctx context.Context, userID, groupID string) error {
	return translate(r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Delete(&models.UserGroup{}).Error)
}
