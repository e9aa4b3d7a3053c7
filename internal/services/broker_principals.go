package services

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/yukikurage/cms-resource-broker/internal/access"
	"github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

const maxPasswordBytes = 72

// IsAdmin reports whether the acting user is an administrator
func (b *ResourceBroker) IsAdmin(ctx context.Context, caller Caller) (ok bool, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalSelf)
	if err != nil {
		return false, err
	}
	defer c.end(&err)

	return b.evaluator.IsAdmin(c.principal), nil
}

// IsProjectLeader reports whether the acting user may lead projects
func (b *ResourceBroker) IsProjectLeader(ctx context.Context, caller Caller) (ok bool, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalSelf)
	if err != nil {
		return false, err
	}
	defer c.end(&err)

	return b.evaluator.IsProjectLeader(c.principal), nil
}

// AnonymousUser returns the guest user
func (b *ResourceBroker) AnonymousUser(ctx context.Context, caller Caller) (user *models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalSelf)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	return c.user(b.cfg.GuestUser)
}

// CurrentUser returns the acting user
func (b *ResourceBroker) CurrentUser(ctx context.Context, caller Caller) (user *models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalSelf)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	return c.principal.User, nil
}

// ReadUser reads a user by name
func (b *ResourceBroker) ReadUser(ctx context.Context, caller Caller, name string) (user *models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, arg{"user name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	return c.user(name)
}

// ReadUserWithPassword reads a user after verifying its password. Unknown
// users, disabled users and wrong passwords are indistinguishable.
func (b *ResourceBroker) ReadUserWithPassword(ctx context.Context, caller Caller, name, password string) (user *models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalAuthenticate, arg{"user name", name}, arg{"password", password})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	user, err = b.stores.UserGroups.FindUserByName(ctx, name)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, c.deny(ruleCredentials)
		}
		return nil, c.fail(err, "user %q", name)
	}
	if user.Disabled() || !checkPassword(user.PasswordHash, password) {
		return nil, c.deny(ruleCredentials)
	}
	return user, nil
}

// GetGroupsOfUser lists the groups of a user
func (b *ResourceBroker) GetGroupsOfUser(ctx context.Context, caller Caller, name string) (groups []models.Group, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, arg{"user name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	user, err := c.user(name)
	if err != nil {
		return nil, err
	}
	groups, err = b.stores.UserGroups.ListGroupsOfUser(ctx, user.ID)
	if err != nil {
		return nil, c.fail(err, "groups of %q", name)
	}
	return groups, nil
}

// ReadGroup reads a group by name
func (b *ResourceBroker) ReadGroup(ctx context.Context, caller Caller, name string) (group *models.Group, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, arg{"group name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	return c.group(name)
}

// GetUsersOfGroup lists the members of a group
func (b *ResourceBroker) GetUsersOfGroup(ctx context.Context, caller Caller, name string) (users []models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, arg{"group name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	group, err := c.group(name)
	if err != nil {
		return nil, err
	}
	users, err = b.stores.UserGroups.ListUsersOfGroup(ctx, group.ID)
	if err != nil {
		return nil, c.fail(err, "users of %q", name)
	}
	return users, nil
}

// UserInGroup reports whether a user is a member of a group
func (b *ResourceBroker) UserInGroup(ctx context.Context, caller Caller, userName, groupName string) (ok bool, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, arg{"user name", userName}, arg{"group name", groupName})
	if err != nil {
		return false, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return false, err
	}
	user, group, err := c.membership(userName, groupName)
	if err != nil {
		return false, err
	}
	ok, err = b.stores.UserGroups.IsMember(ctx, user.ID, group.ID)
	if err != nil {
		return false, c.fail(err, "membership of %q in %q", userName, groupName)
	}
	return ok, nil
}

// GetUsers lists every user
func (b *ResourceBroker) GetUsers(ctx context.Context, caller Caller) (users []models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	users, err = b.stores.UserGroups.ListUsers(ctx)
	if err != nil {
		return nil, c.fail(err, "users")
	}
	return users, nil
}

// GetGroups lists every group
func (b *ResourceBroker) GetGroups(ctx context.Context, caller Caller) (groups []models.Group, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	groups, err = b.stores.UserGroups.ListGroups(ctx)
	if err != nil {
		return nil, c.fail(err, "groups")
	}
	return groups, nil
}

// GetChild lists the direct subgroups of a group
func (b *ResourceBroker) GetChild(ctx context.Context, caller Caller, name string) (groups []models.Group, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, arg{"group name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	parent, err := c.group(name)
	if err != nil {
		return nil, err
	}
	groups, err = b.stores.UserGroups.ListChildGroups(ctx, parent.ID)
	if err != nil {
		return nil, c.fail(err, "subgroups of %q", name)
	}
	return groups, nil
}

// GetGroupsOfOrgUnit lists the groups of an organizational unit, and of
// its sub units when includeSubUnits is set
func (b *ResourceBroker) GetGroupsOfOrgUnit(ctx context.Context, caller Caller, orgUnit string, includeSubUnits bool) (groups []models.Group, err error) {
	c, err := b.begin(ctx, caller, access.OpDirectoryRead, orgUnitArg(orgUnit))
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	groups, err = b.stores.UserGroups.ListGroupsInOrgUnit(ctx, orgUnit, includeSubUnits)
	if err != nil {
		return nil, c.fail(err, "groups of %q", orgUnit)
	}
	return groups, nil
}

// AddUser creates a user with a hashed password and its default group
// membership
func (b *ResourceBroker) AddUser(ctx context.Context, caller Caller, name, password, groupName, description string, additionalInfo map[string]interface{}, flags int) (user *models.User, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite,
		arg{"user name", name}, passwordArg(password), arg{"group name", groupName})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	group, err := c.group(groupName)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(password, b.cfg.BcryptCost)
	if err != nil {
		return nil, c.fail(err, "password of %q", name)
	}

	user = &models.User{
		Name:           name,
		PasswordHash:   hash,
		Description:    description,
		Flags:          flags,
		DefaultGroupID: group.ID,
		AdditionalInfo: additionalInfo,
		OrgUnit:        models.RootOrgUnit,
	}
	if err := b.stores.UserGroups.CreateUser(ctx, user); err != nil {
		return nil, c.fail(err, "user %q already exists", name)
	}
	return user, nil
}

// DeleteUser logically deletes a user. Built-in users and the acting user
// cannot be deleted.
func (b *ResourceBroker) DeleteUser(ctx context.Context, caller Caller, name string) (err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"user name", name})
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	user, err := c.user(name)
	if err != nil {
		return err
	}
	if b.builtinUser(name) {
		return errors.NewConflict(string(c.op), "user %q is built in", name)
	}
	if user.ID == c.principal.User.ID {
		return errors.NewConflict(string(c.op), "users cannot delete themselves")
	}

	if err := b.stores.UserGroups.DeleteUser(ctx, user.ID); err != nil {
		return c.fail(err, "user %q", name)
	}
	return nil
}

// WriteUser stores the mutable attributes of the named user
func (b *ResourceBroker) WriteUser(ctx context.Context, caller Caller, user *models.User) (err error) {
	if user == nil {
		user = &models.User{}
	}
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"user name", user.Name}, orgUnitArg(orgUnitOrRoot(user.OrgUnit)))
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	current, err := c.user(user.Name)
	if err != nil {
		return err
	}

	current.Description = user.Description
	current.Flags = user.Flags
	current.DefaultGroupID = user.DefaultGroupID
	current.AdditionalInfo = user.AdditionalInfo
	current.OrgUnit = orgUnitOrRoot(user.OrgUnit)
	if err := b.stores.UserGroups.UpdateUser(ctx, current); err != nil {
		return c.fail(err, "user %q", user.Name)
	}
	*user = *current
	return nil
}

// AddGroup creates a group, nested under parentName when given
func (b *ResourceBroker) AddGroup(ctx context.Context, caller Caller, name, description string, flags int, parentName string) (group *models.Group, err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"group name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}

	group = &models.Group{
		Name:        name,
		Description: description,
		Flags:       flags,
		OrgUnit:     models.RootOrgUnit,
	}
	if parentName != "" {
		parent, err := c.group(parentName)
		if err != nil {
			return nil, err
		}
		group.ParentID = &parent.ID
		group.OrgUnit = parent.OrgUnit
	}

	if err := b.stores.UserGroups.CreateGroup(ctx, group); err != nil {
		return nil, c.fail(err, "group %q already exists", name)
	}
	return group, nil
}

// WriteGroup stores the mutable attributes of the named group
func (b *ResourceBroker) WriteGroup(ctx context.Context, caller Caller, group *models.Group) (err error) {
	if group == nil {
		group = &models.Group{}
	}
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"group name", group.Name}, orgUnitArg(orgUnitOrRoot(group.OrgUnit)))
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	current, err := c.group(group.Name)
	if err != nil {
		return err
	}

	current.Description = group.Description
	current.Flags = group.Flags
	current.ParentID = group.ParentID
	current.OrgUnit = orgUnitOrRoot(group.OrgUnit)
	if err := b.stores.UserGroups.UpdateGroup(ctx, current); err != nil {
		return c.fail(err, "group %q", group.Name)
	}
	*group = *current
	return nil
}

// DeleteGroup deletes a group without subgroups. Built-in groups and
// groups of projects cannot be deleted.
func (b *ResourceBroker) DeleteGroup(ctx context.Context, caller Caller, name string) (err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"group name", name})
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	group, err := c.group(name)
	if err != nil {
		return err
	}
	if b.builtinGroup(name) {
		return errors.NewConflict(string(c.op), "group %q is built in", name)
	}

	if err := b.stores.UserGroups.DeleteGroup(ctx, group.ID); err != nil {
		return c.fail(err, "group %q", name)
	}
	return nil
}

// AddUserToGroup adds a membership. Adding an existing member succeeds.
func (b *ResourceBroker) AddUserToGroup(ctx context.Context, caller Caller, userName, groupName string) (err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"user name", userName}, arg{"group name", groupName})
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	user, group, err := c.membership(userName, groupName)
	if err != nil {
		return err
	}
	if err := b.stores.UserGroups.AddMember(ctx, user.ID, group.ID); err != nil {
		return c.fail(err, "membership of %q in %q", userName, groupName)
	}
	return nil
}

// RemoveUserFromGroup removes a membership. Removing a non-member succeeds.
func (b *ResourceBroker) RemoveUserFromGroup(ctx context.Context, caller Caller, userName, groupName string) (err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalWrite, arg{"user name", userName}, arg{"group name", groupName})
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	user, group, err := c.membership(userName, groupName)
	if err != nil {
		return err
	}
	if err := b.stores.UserGroups.RemoveMember(ctx, user.ID, group.ID); err != nil {
		return c.fail(err, "membership of %q in %q", userName, groupName)
	}
	return nil
}

// SetPassword replaces the password of a user. Administrators may reset
// any password, other users only their own.
func (b *ResourceBroker) SetPassword(ctx context.Context, caller Caller, name, newPassword string) (err error) {
	c, err := b.begin(ctx, caller, access.OpPrincipalPassword, arg{"user name", name}, passwordArg(newPassword))
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{TargetUser: name}); err != nil {
		return err
	}
	user, err := c.user(name)
	if err != nil {
		return err
	}

	hash, err := hashPassword(newPassword, b.cfg.BcryptCost)
	if err != nil {
		return c.fail(err, "password of %q", name)
	}
	user.PasswordHash = hash
	if err := b.stores.UserGroups.UpdateUser(ctx, user); err != nil {
		return c.fail(err, "user %q", name)
	}
	return nil
}

func (b *ResourceBroker) builtinUser(name string) bool {
	return name == b.cfg.AdminUser || name == b.cfg.GuestUser
}

func (b *ResourceBroker) builtinGroup(name string) bool {
	return slices.Contains([]string{
		b.cfg.AdminGroup,
		b.cfg.ProjectLeaderGroup,
		b.cfg.UsersGroup,
		b.cfg.GuestGroup,
	}, name)
}

func (c *call) user(name string) (*models.User, error) {
	user, err := c.b.stores.UserGroups.FindUserByName(c.ctx, name)
	if err != nil {
		return nil, c.fail(err, "user %q", name)
	}
	return user, nil
}

func (c *call) group(name string) (*models.Group, error) {
	group, err := c.b.stores.UserGroups.FindGroupByName(c.ctx, name)
	if err != nil {
		return nil, c.fail(err, "group %q", name)
	}
	return group, nil
}

func (c *call) membership(userName, groupName string) (*models.User, *models.Group, error) {
	user, err := c.user(userName)
	if err != nil {
		return nil, nil, err
	}
	group, err := c.group(groupName)
	if err != nil {
		return nil, nil, err
	}
	return user, group, nil
}

// orgUnitArg accepts fully qualified unit names. LIKE wildcards are
// rejected since sub unit listings match by prefix.
func orgUnitArg(orgUnit string) check {
	return func(op access.Operation) error {
		if !strings.HasPrefix(orgUnit, models.RootOrgUnit) {
			return errors.NewValidation(string(op), "organizational unit %q must start with %q", orgUnit, models.RootOrgUnit)
		}
		if strings.ContainsAny(orgUnit, "%_") {
			return errors.NewValidation(string(op), "organizational unit %q contains wildcard characters", orgUnit)
		}
		return nil
	}
}

// passwordArg rejects passwords bcrypt cannot hash.
func passwordArg(password string) check {
	return func(op access.Operation) error {
		if password == "" {
			return errors.NewValidation(string(op), "password is required")
		}
		if len(password) > maxPasswordBytes {
			return errors.NewValidation(string(op), "password exceeds %d bytes", maxPasswordBytes)
		}
		return nil
	}
}

func orgUnitOrRoot(orgUnit string) string {
	if orgUnit == "" {
		return models.RootOrgUnit
	}
	return orgUnit
}
