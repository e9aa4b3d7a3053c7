package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

// ProjectStore provides an in-memory implementation of repository.ProjectStore
type ProjectStore struct {
	db *memdb.MemDB
}

// CreateProject creates a new project. Only one online project may exist.
func (s *ProjectStore) CreateProject(ctx context.Context, project *models.Project) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := found(txn, tableProjects, "name", project.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: project %q already exists", repository.ErrConflict, project.Name)
	}

	if project.State == "" {
		project.State = models.ProjectStateUnlocked
	}
	if project.IsOnline() {
		online, err := found(txn, tableProjects, "state", string(models.ProjectStateOnline))
		if err != nil {
			return err
		}
		if online {
			return fmt.Errorf("%w: online project already exists", repository.ErrConflict)
		}
	}

	if project.ID == "" {
		project.ID = models.NewID()
	}
	now := time.Now()
	project.CreatedAt, project.UpdatedAt = now, now
	row := *project
	if err := txn.Insert(tableProjects, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// FindProjectByName finds a project by name
func (s *ProjectStore) FindProjectByName(ctx context.Context, name string) (*models.Project, error) {
	return first[models.Project](s.db.Txn(false), tableProjects, "name", name)
}

// FindProjectByID finds a project by ID
func (s *ProjectStore) FindProjectByID(ctx context.Context, id string) (*models.Project, error) {
	return first[models.Project](s.db.Txn(false), tableProjects, indexID, id)
}

// OnlineProject returns the online project
func (s *ProjectStore) OnlineProject(ctx context.Context) (*models.Project, error) {
	return first[models.Project](s.db.Txn(false), tableProjects, "state", string(models.ProjectStateOnline))
}

// ListProjects lists all projects in creation order
func (s *ProjectStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := list[models.Project](s.db.Txn(false), tableProjects, "id_prefix", "")
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(projects, func(a, b models.Project) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return projects, nil
}

// DeleteProject deletes a project and all of its pending changes
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	project, err := first[models.Project](txn, tableProjects, indexID, id)
	if err != nil {
		return err
	}
	if project.IsOnline() {
		return fmt.Errorf("%w: the online project cannot be deleted", repository.ErrConflict)
	}

	pending, err := list[models.Resource](txn, tableResources, "project", id)
	if err != nil {
		return err
	}
	for _, resource := range pending {
		if _, err := txn.DeleteAll(tableMetainfos, "resource", resource.ID); err != nil {
			return err
		}
	}
	if _, err := txn.DeleteAll(tableMetainfos, "project", id); err != nil {
		return err
	}
	if _, err := txn.DeleteAll(tableResources, "project", id); err != nil {
		return err
	}
	if _, err := txn.DeleteAll(tableProjects, indexID, id); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// Publish flushes the pending changes of a project into the online project
func (s *ProjectStore) Publish(ctx context.Context, projectID, publisherID string) (*models.Project, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	published, err := first[models.Project](txn, tableProjects, indexID, projectID)
	if err != nil {
		return nil, err
	}
	if published.State != models.ProjectStateUnlocked {
		return nil, fmt.Errorf("%w: project %q is %s", repository.ErrConflict, published.Name, published.State)
	}

	online, err := first[models.Project](txn, tableProjects, "state", string(models.ProjectStateOnline))
	if err != nil {
		return nil, fmt.Errorf("online project: %w", err)
	}

	now := time.Now()
	resources, err := list[models.Resource](txn, tableResources, "project", projectID)
	if err != nil {
		return nil, err
	}
	for i := range resources {
		resources[i].ProjectID = online.ID
		resources[i].UpdatedAt = now
		if err := txn.Insert(tableResources, &resources[i]); err != nil {
			return nil, err
		}
	}

	pending, err := list[models.Metainformation](txn, tableMetainfos, "project", projectID)
	if err != nil {
		return nil, err
	}
	for i := range pending {
		meta := pending[i]
		if _, err := txn.DeleteAll(tableMetainfos, indexID, meta.ResourceID, projectID, meta.Name); err != nil {
			return nil, err
		}
		if meta.Deleted {
			if _, err := txn.DeleteAll(tableMetainfos, indexID, meta.ResourceID, online.ID, meta.Name); err != nil {
				return nil, err
			}
			continue
		}
		meta.ProjectID = online.ID
		if err := txn.Insert(tableMetainfos, &meta); err != nil {
			return nil, err
		}
	}

	published.State = models.ProjectStatePublished
	published.PublishedAt = &now
	published.PublishedByID = &publisherID
	published.UpdatedAt = now
	if err := txn.Insert(tableProjects, published); err != nil {
		return nil, err
	}

	txn.Commit()

	out := *published
	return &out, nil
}
