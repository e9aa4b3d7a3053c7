package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/cms-resource-broker/internal/models"
	"gorm.io/gorm"
)

// GormResourceRepository is a GORM implementation of ResourceStore
type GormResourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository creates a new ResourceStore
func NewResourceRepository(db *gorm.DB) ResourceStore {
	return &GormResourceRepository{db: db}
}

// CreateResourceType creates a resource type
func (r *GormResourceRepository) CreateResourceType(ctx context.Context, rt *models.ResourceType) error {
	if rt.ID == "" {
		rt.ID = models.NewID()
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Model(&models.ResourceType{}).Where("name = ?", rt.Name))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: resource type %q already exists", ErrConflict, rt.Name)
		}
		return tx.Create(rt).Error
	}))
}

// FindResourceType finds a resource type by name
func (r *GormResourceRepository) FindResourceType(ctx context.Context, name string) (*models.ResourceType, error) {
	var rt models.ResourceType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&rt).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

// ListResourceTypes lists all resource types
func (r *GormResourceRepository) ListResourceTypes(ctx context.Context) ([]models.ResourceType, error) {
	var types []models.ResourceType
	if err := r.db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// CreateResource creates a resource
func (r *GormResourceRepository) CreateResource(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = models.NewID()
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Model(&models.Resource{}).Where("path = ?", resource.Path))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: resource %q already exists", ErrConflict, resource.Path)
		}
		if err := tx.First(&models.ResourceType{}, "id = ?", resource.TypeID).Error; err != nil {
			return fmt.Errorf("resource type: %w", translate(err))
		}
		return tx.Create(resource).Error
	}))
}

// FindResource finds a resource that is either online or pending in projectID
func (r *GormResourceRepository) FindResource(ctx context.Context, path, projectID, onlineID string) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).
		Where("path = ? AND project_id IN ?", path, []string{projectID, onlineID}).
		First(&resource).Error; err != nil {
		return nil, translate(err)
	}
	return &resource, nil
}
