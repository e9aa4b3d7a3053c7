package services

import (
	"context"
	stderrors "errors"

	"github.com/yukikurage/cms-resource-broker/internal/access"
	"github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

// OnlineProject returns the published project visible to everyone
func (b *ResourceBroker) OnlineProject(ctx context.Context, caller Caller) (project *models.Project, err error) {
	c, err := b.begin(ctx, caller, access.OpProjectRead)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	online, err := c.online()
	if err != nil {
		return nil, err
	}
	if err := c.authorize(access.Request{Project: online}); err != nil {
		return nil, err
	}
	return online, nil
}

// AccessProject reports whether the caller may work in the named project.
// A missing project is not an error.
func (b *ResourceBroker) AccessProject(ctx context.Context, caller Caller, name string) (ok bool, err error) {
	c, err := b.begin(ctx, caller, access.OpProjectList, arg{"project name", name})
	if err != nil {
		return false, err
	}
	defer c.end(&err)

	project, err := b.stores.Projects.FindProjectByName(ctx, name)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, c.fail(err, "project %q", name)
	}
	return b.evaluator.CanAccessProject(c.principal, project), nil
}

// ReadProject reads a project by name
func (b *ResourceBroker) ReadProject(ctx context.Context, caller Caller, name string) (project *models.Project, err error) {
	c, err := b.begin(ctx, caller, access.OpProjectRead, arg{"project name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	project, err = b.stores.Projects.FindProjectByName(ctx, name)
	if err != nil {
		// The guest may only see the online project, so a missing name is
		// denied the same way an existing offline project is.
		if stderrors.Is(err, repository.ErrNotFound) && b.evaluator.IsAnonymous(c.principal) {
			return nil, c.deny(access.RuleAnonymousOnline)
		}
		return nil, c.fail(err, "project %q", name)
	}
	if err := c.authorize(access.Request{Project: project}); err != nil {
		return nil, err
	}
	return project, nil
}

// CreateProject creates an unlocked project owned by ownerName and shared
// with groupName
func (b *ResourceBroker) CreateProject(ctx context.Context, caller Caller, name, description, task, ownerName, groupName string, flags int) (project *models.Project, err error) {
	c, err := b.begin(ctx, caller, access.OpProjectCreate,
		arg{"project name", name}, arg{"owner", ownerName}, arg{"group", groupName})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}

	owner, err := b.stores.UserGroups.FindUserByName(ctx, ownerName)
	if err != nil {
		return nil, c.fail(err, "user %q", ownerName)
	}
	group, err := b.stores.UserGroups.FindGroupByName(ctx, groupName)
	if err != nil {
		return nil, c.fail(err, "group %q", groupName)
	}

	project = &models.Project{
		Name:        name,
		Description: description,
		OwnerID:     owner.ID,
		GroupID:     group.ID,
		Flags:       flags,
		TaskID:      task,
		State:       models.ProjectStateUnlocked,
	}
	if err := b.stores.Projects.CreateProject(ctx, project); err != nil {
		return nil, c.fail(err, "project %q", name)
	}

	b.log.Info().Str("project", project.Name).Str("actor", caller.User).Msg("project created")
	return project, nil
}

// GetAllAccessibleProjects lists the projects the caller may work in
func (b *ResourceBroker) GetAllAccessibleProjects(ctx context.Context, caller Caller) (projects []models.Project, err error) {
	c, err := b.begin(ctx, caller, access.OpProjectList)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}

	all, err := b.stores.Projects.ListProjects(ctx)
	if err != nil {
		return nil, c.fail(err, "projects")
	}

	projects = []models.Project{}
	for i := range all {
		if b.evaluator.CanAccessProject(c.principal, &all[i]) {
			projects = append(projects, all[i])
		}
	}
	return projects, nil
}

// PublishProject moves every pending change of a project into the online
// project. Either all changes become visible or none do.
func (b *ResourceBroker) PublishProject(ctx context.Context, caller Caller, name string) (project *models.Project, err error) {
	c, err := b.begin(ctx, caller, access.OpProjectPublish, arg{"project name", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	target, err := b.stores.Projects.FindProjectByName(ctx, name)
	if err != nil {
		return nil, c.fail(err, "project %q", name)
	}
	if err := c.authorize(access.Request{Project: target}); err != nil {
		return nil, err
	}
	if target.IsOnline() {
		return nil, errors.NewConflict(string(c.op), "the online project cannot be published")
	}

	lock := b.locks.get(target.ID)
	lock.Lock()
	defer lock.Unlock()

	project, err = b.stores.Projects.Publish(ctx, target.ID, c.principal.User.ID)
	if err != nil {
		return nil, c.fail(err, "project %q cannot be published", name)
	}

	b.metrics.Published()
	b.log.Info().Str("project", project.Name).Str("actor", caller.User).Msg("project published")
	return project, nil
}

// DeleteProject deletes a project and discards its pending changes
func (b *ResourceBroker) DeleteProject(ctx context.Context, caller Caller, name string) (err error) {
	c, err := b.begin(ctx, caller, access.OpProjectDelete, arg{"project name", name})
	if err != nil {
		return err
	}
	defer c.end(&err)

	target, err := b.stores.Projects.FindProjectByName(ctx, name)
	if err != nil {
		return c.fail(err, "project %q", name)
	}
	if err := c.authorize(access.Request{Project: target}); err != nil {
		return err
	}
	if target.IsOnline() {
		return errors.NewConflict(string(c.op), "the online project cannot be deleted")
	}

	lock := b.locks.get(target.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := b.stores.Projects.DeleteProject(ctx, target.ID); err != nil {
		return c.fail(err, "project %q", name)
	}

	b.log.Info().Str("project", target.Name).Str("actor", caller.User).Msg("project deleted")
	return nil
}
