package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

// ResourceStore provides an in-memory implementation of repository.ResourceStore
type ResourceStore struct {
	db *memdb.MemDB
}

// CreateResourceType creates a resource type
func (s *ResourceStore) CreateResourceType(ctx context.Context, rt *models.ResourceType) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := found(txn, tableResourceTypes, "name", rt.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: resource type %q already exists", repository.ErrConflict, rt.Name)
	}

	if rt.ID == "" {
		rt.ID = models.NewID()
	}
	rt.CreatedAt = time.Now()
	row := *rt
	if err := txn.Insert(tableResourceTypes, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// FindResourceType finds a resource type by name
func (s *ResourceStore) FindResourceType(ctx context.Context, name string) (*models.ResourceType, error) {
	return first[models.ResourceType](s.db.Txn(false), tableResourceTypes, "name", name)
}

// ListResourceTypes lists all resource types ordered by name
func (s *ResourceStore) ListResourceTypes(ctx context.Context) ([]models.ResourceType, error) {
	return list[models.ResourceType](s.db.Txn(false), tableResourceTypes, "name_prefix", "")
}

// CreateResource creates a resource
func (s *ResourceStore) CreateResource(ctx context.Context, resource *models.Resource) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := found(txn, tableResources, "path", resource.Path)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: resource %q already exists", repository.ErrConflict, resource.Path)
	}
	if _, err := first[models.ResourceType](txn, tableResourceTypes, indexID, resource.TypeID); err != nil {
		return fmt.Errorf("resource type: %w", err)
	}

	if resource.ID == "" {
		resource.ID = models.NewID()
	}
	now := time.Now()
	resource.CreatedAt, resource.UpdatedAt = now, now
	row := *resource
	if err := txn.Insert(tableResources, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// FindResource finds a resource that is either online or pending in projectID
func (s *ResourceStore) FindResource(ctx context.Context, path, projectID, onlineID string) (*models.Resource, error) {
	resource, err := first[models.Resource](s.db.Txn(false), tableResources, "path", path)
	if err != nil {
		return nil, err
	}
	if resource.ProjectID != projectID && resource.ProjectID != onlineID {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, tableResources)
	}
	return resource, nil
}
