package services

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

// DefaultResourceTypes are created by Bootstrap.
var DefaultResourceTypes = []string{"folder", "plain", "page", "image"}

// Bootstrap creates the built-in groups, the administrator and guest users,
// the online project and the default resource types. Existing entries are
// left untouched, so running it twice is harmless.
func Bootstrap(ctx context.Context, stores *repository.Stores, cfg config.BrokerConfig, log zerolog.Logger) error {
	s := seeder{ctx: ctx, stores: stores, cfg: cfg, log: log}

	admins, err := s.group(cfg.AdminGroup, "The administrators", models.GroupFlagRole)
	if err != nil {
		return err
	}
	if _, err := s.group(cfg.ProjectLeaderGroup, "The project leaders", models.GroupFlagRole|models.GroupFlagProjectManager); err != nil {
		return err
	}
	users, err := s.group(cfg.UsersGroup, "All users", models.GroupFlagRole)
	if err != nil {
		return err
	}
	guests, err := s.group(cfg.GuestGroup, "The guest users", models.GroupFlagRole)
	if err != nil {
		return err
	}

	admin, err := s.user(cfg.AdminUser, cfg.AdminPassword, "The administrator", admins)
	if err != nil {
		return err
	}
	if err := stores.UserGroups.AddMember(ctx, admin.ID, users.ID); err != nil {
		return fmt.Errorf("bootstrap: add %q to %q: %w", admin.Name, users.Name, err)
	}
	// The guest never logs in, so its password is a random secret.
	if _, err := s.user(cfg.GuestUser, models.NewID(), "The guest user", guests); err != nil {
		return err
	}

	if err := s.online(admin, users); err != nil {
		return err
	}
	for _, name := range DefaultResourceTypes {
		if err := s.resourceType(name); err != nil {
			return err
		}
	}
	return nil
}

type seeder struct {
	ctx    context.Context
	stores *repository.Stores
	cfg    config.BrokerConfig
	log    zerolog.Logger
}

func (s seeder) group(name, description string, flags int) (*models.Group, error) {
	group, err := s.stores.UserGroups.FindGroupByName(s.ctx, name)
	if err == nil {
		return group, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("bootstrap: group %q: %w", name, err)
	}

	group = &models.Group{
		Name:        name,
		Description: description,
		Flags:       flags,
		OrgUnit:     models.RootOrgUnit,
	}
	if err := s.stores.UserGroups.CreateGroup(s.ctx, group); err != nil {
		return nil, fmt.Errorf("bootstrap: create group %q: %w", name, err)
	}
	s.log.Info().Str("group", name).Msg("group created")
	return group, nil
}

func (s seeder) user(name, password, description string, group *models.Group) (*models.User, error) {
	user, err := s.stores.UserGroups.FindUserByName(s.ctx, name)
	if err == nil {
		return user, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("bootstrap: user %q: %w", name, err)
	}

	hash, err := hashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: password of %q: %w", name, err)
	}
	user = &models.User{
		Name:           name,
		PasswordHash:   hash,
		Description:    description,
		DefaultGroupID: group.ID,
		OrgUnit:        models.RootOrgUnit,
	}
	if err := s.stores.UserGroups.CreateUser(s.ctx, user); err != nil {
		return nil, fmt.Errorf("bootstrap: create user %q: %w", name, err)
	}
	s.log.Info().Str("user", name).Msg("user created")
	return user, nil
}

func (s seeder) online(owner *models.User, group *models.Group) error {
	_, err := s.stores.Projects.OnlineProject(s.ctx)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("bootstrap: online project: %w", err)
	}

	project := &models.Project{
		Name:        s.cfg.OnlineProject,
		Description: "The online project",
		OwnerID:     owner.ID,
		GroupID:     group.ID,
		State:       models.ProjectStateOnline,
	}
	if err := s.stores.Projects.CreateProject(s.ctx, project); err != nil {
		return fmt.Errorf("bootstrap: create online project: %w", err)
	}
	s.log.Info().Str("project", project.Name).Msg("online project created")
	return nil
}

func (s seeder) resourceType(name string) error {
	_, err := s.stores.Resources.FindResourceType(s.ctx, name)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("bootstrap: resource type %q: %w", name, err)
	}
	if err := s.stores.Resources.CreateResourceType(s.ctx, &models.ResourceType{Name: name}); err != nil {
		return fmt.Errorf("bootstrap: create resource type %q: %w", name, err)
	}
	return nil
}
