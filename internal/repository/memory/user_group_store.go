package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
	"gorm.io/gorm"
)

// UserGroupStore provides an in-memory implementation of repository.UserGroupStore
type UserGroupStore struct {
	db *memdb.MemDB
}

// CreateUser creates a user and its default group membership
func (s *UserGroupStore) CreateUser(ctx context.Context, user *models.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := found(txn, tableUsers, "name", user.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: user %q already exists", repository.ErrConflict, user.Name)
	}
	if user.DefaultGroupID != "" {
		if _, err := first[models.Group](txn, tableGroups, indexID, user.DefaultGroupID); err != nil {
			return fmt.Errorf("default group: %w", err)
		}
	}

	if user.ID == "" {
		user.ID = models.NewID()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	row := *user
	if err := txn.Insert(tableUsers, &row); err != nil {
		return err
	}
	if user.DefaultGroupID != "" {
		if err := txn.Insert(tableUserGroups, &models.UserGroup{UserID: user.ID, GroupID: user.DefaultGroupID, CreatedAt: now}); err != nil {
			return err
		}
	}

	txn.Commit()
	return nil
}

// FindUserByName finds a live user by name
func (s *UserGroupStore) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	txn := s.db.Txn(false)
	return liveUser(first[models.User](txn, tableUsers, "name", name))
}

// FindUserByID finds a live user by ID
func (s *UserGroupStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	txn := s.db.Txn(false)
	return liveUser(first[models.User](txn, tableUsers, indexID, id))
}

// UpdateUser replaces a live user
func (s *UserGroupStore) UpdateUser(ctx context.Context, user *models.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	current, err := liveUser(first[models.User](txn, tableUsers, indexID, user.ID))
	if err != nil {
		return err
	}
	if user.DefaultGroupID != "" {
		if _, err := first[models.Group](txn, tableGroups, indexID, user.DefaultGroupID); err != nil {
			return fmt.Errorf("default group: %w", err)
		}
	}
	if user.Name != current.Name {
		taken, err := found(txn, tableUsers, "name", user.Name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: user %q already exists", repository.ErrConflict, user.Name)
		}
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()
	row := *user
	if err := txn.Insert(tableUsers, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// DeleteUser marks a user deleted and removes its memberships
func (s *UserGroupStore) DeleteUser(ctx context.Context, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	user, err := liveUser(first[models.User](txn, tableUsers, indexID, id))
	if err != nil {
		return err
	}
	if _, err := txn.DeleteAll(tableUserGroups, "user", id); err != nil {
		return err
	}

	user.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	if err := txn.Insert(tableUsers, user); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// ListUsers lists all live users ordered by name
func (s *UserGroupStore) ListUsers(ctx context.Context) ([]models.User, error) {
	txn := s.db.Txn(false)
	users, err := list[models.User](txn, tableUsers, "name_prefix", "")
	if err != nil {
		return nil, err
	}
	return liveUsers(users), nil
}

// CreateGroup creates a group
func (s *UserGroupStore) CreateGroup(ctx context.Context, group *models.Group) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := found(txn, tableGroups, "name", group.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: group %q already exists", repository.ErrConflict, group.Name)
	}
	if group.HasParent() {
		if _, err := first[models.Group](txn, tableGroups, indexID, *group.ParentID); err != nil {
			return fmt.Errorf("parent group: %w", err)
		}
	}

	if group.ID == "" {
		group.ID = models.NewID()
	}
	now := time.Now()
	group.CreatedAt, group.UpdatedAt = now, now
	row := *group
	if err := txn.Insert(tableGroups, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// FindGroupByName finds a group by name
func (s *UserGroupStore) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	return first[models.Group](s.db.Txn(false), tableGroups, "name", name)
}

// FindGroupByID finds a group by ID
func (s *UserGroupStore) FindGroupByID(ctx context.Context, id string) (*models.Group, error) {
	return first[models.Group](s.db.Txn(false), tableGroups, indexID, id)
}

// UpdateGroup replaces a group, refusing parent cycles
func (s *UserGroupStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	current, err := first[models.Group](txn, tableGroups, indexID, group.ID)
	if err != nil {
		return err
	}
	if group.Name != current.Name {
		taken, err := found(txn, tableGroups, "name", group.Name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: group %q already exists", repository.ErrConflict, group.Name)
		}
	}

	parentID := group.ParentID
	for parentID != nil && *parentID != "" {
		if *parentID == group.ID {
			return fmt.Errorf("%w: group %q cannot be its own ancestor", repository.ErrConflict, group.Name)
		}
		parent, err := first[models.Group](txn, tableGroups, indexID, *parentID)
		if err != nil {
			return fmt.Errorf("parent group: %w", err)
		}
		parentID = parent.ParentID
	}

	group.CreatedAt = current.CreatedAt
	group.UpdatedAt = time.Now()
	row := *group
	if err := txn.Insert(tableGroups, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// DeleteGroup deletes a leaf group that no project uses
func (s *UserGroupStore) DeleteGroup(ctx context.Context, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	group, err := first[models.Group](txn, tableGroups, indexID, id)
	if err != nil {
		return err
	}

	hasChildren, err := found(txn, tableGroups, "parent", id)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("%w: group %q has subgroups", repository.ErrConflict, group.Name)
	}

	inUse, err := found(txn, tableProjects, "group", id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: group %q is assigned to a project", repository.ErrConflict, group.Name)
	}

	if _, err := txn.DeleteAll(tableUserGroups, "group", id); err != nil {
		return err
	}

	users, err := list[models.User](txn, tableUsers, "name_prefix", "")
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].DefaultGroupID != id {
			continue
		}
		users[i].DefaultGroupID = ""
		if err := txn.Insert(tableUsers, &users[i]); err != nil {
			return err
		}
	}

	if err := txn.Delete(tableGroups, group); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// ListGroups lists all groups ordered by name
func (s *UserGroupStore) ListGroups(ctx context.Context) ([]models.Group, error) {
	return list[models.Group](s.db.Txn(false), tableGroups, "name_prefix", "")
}

// ListChildGroups lists the direct subgroups of a group
func (s *UserGroupStore) ListChildGroups(ctx context.Context, parentID string) ([]models.Group, error) {
	groups, err := list[models.Group](s.db.Txn(false), tableGroups, "parent", parentID)
	if err != nil {
		return nil, err
	}
	sortByName(groups)
	return groups, nil
}

// ListGroupsInOrgUnit lists the groups of an organizational unit
func (s *UserGroupStore) ListGroupsInOrgUnit(ctx context.Context, orgUnit string, includeSubUnits bool) ([]models.Group, error) {
	txn := s.db.Txn(false)
	if !includeSubUnits {
		groups, err := list[models.Group](txn, tableGroups, "org_unit", orgUnit)
		if err != nil {
			return nil, err
		}
		sortGroups(groups)
		return groups, nil
	}

	// The prefix index also matches siblings such as "/salesforce" for
	// "/sales", so candidates are narrowed to whole path segments.
	candidates, err := list[models.Group](txn, tableGroups, "org_unit_prefix", strings.TrimSuffix(orgUnit, "/"))
	if err != nil {
		return nil, err
	}
	groups := candidates[:0]
	for _, g := range candidates {
		if repository.InOrgUnit(g.OrgUnit, orgUnit) {
			groups = append(groups, g)
		}
	}
	sortGroups(groups)
	return groups, nil
}

// ListGroupsOfUser lists the groups a user is a member of
func (s *UserGroupStore) ListGroupsOfUser(ctx context.Context, userID string) ([]models.Group, error) {
	txn := s.db.Txn(false)
	memberships, err := list[models.UserGroup](txn, tableUserGroups, "user", userID)
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(memberships))
	for _, m := range memberships {
		group, err := first[models.Group](txn, tableGroups, indexID, m.GroupID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	sortByName(groups)
	return groups, nil
}

// ListUsersOfGroup lists the live members of a group
func (s *UserGroupStore) ListUsersOfGroup(ctx context.Context, groupID string) ([]models.User, error) {
	txn := s.db.Txn(false)
	memberships, err := list[models.UserGroup](txn, tableUserGroups, "group", groupID)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(memberships))
	for _, m := range memberships {
		user, err := first[models.User](txn, tableUsers, indexID, m.UserID)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	slices.SortFunc(users, func(a, b models.User) int { return strings.Compare(a.Name, b.Name) })
	return liveUsers(users), nil
}

// IsMember checks a single membership
func (s *UserGroupStore) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	return found(s.db.Txn(false), tableUserGroups, indexID, userID, groupID)
}

// AddMember adds a membership; an existing membership is left untouched
func (s *UserGroupStore) AddMember(ctx context.Context, userID, groupID string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	member, err := found(txn, tableUserGroups, indexID, userID, groupID)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	if _, err := liveUser(first[models.User](txn, tableUsers, indexID, userID)); err != nil {
		return err
	}
	if _, err := first[models.Group](txn, tableGroups, indexID, groupID); err != nil {
		return err
	}

	if err := txn.Insert(tableUserGroups, &models.UserGroup{UserID: userID, GroupID: groupID, CreatedAt: time.Now()}); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// RemoveMember removes a membership
func (s *UserGroupStore) RemoveMember(ctx context.Context, userID, groupID string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tableUserGroups, indexID, userID, groupID); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// liveUser hides logically deleted users.
func liveUser(user *models.User, err error) (*models.User, error) {
	if err != nil {
		return nil, err
	}
	if user.DeletedAt.Valid {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, tableUsers)
	}
	return user, nil
}

func liveUsers(users []models.User) []models.User {
	out := users[:0]
	for _, u := range users {
		if !u.DeletedAt.Valid {
			out = append(out, u)
		}
	}
	return out
}

// sortGroups orders groups by organizational unit, then name.
func sortGroups(groups []models.Group) {
	slices.SortFunc(groups, func(a, b models.Group) int {
		if c := strings.Compare(a.OrgUnit, b.OrgUnit); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

func sortByName(groups []models.Group) {
	slices.SortFunc(groups, func(a, b models.Group) int { return strings.Compare(a.Name, b.Name) })
}
