package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/cms-resource-broker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectStore
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectStore
func NewProjectRepository(db *gorm.DB) ProjectStore {
	return &GormProjectRepository{db: db}
}

// CreateProject creates a new project. Only one online project may exist.
func (r *GormProjectRepository) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = models.NewID()
	}
	if project.State == "" {
		project.State = models.ProjectStateUnlocked
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Model(&models.Project{}).Where("name = ?", project.Name))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: project %q already exists", ErrConflict, project.Name)
		}

		if project.IsOnline() {
			online, err := exists(tx.Model(&models.Project{}).Where("state = ?", models.ProjectStateOnline))
			if err != nil {
				return err
			}
			if online {
				return fmt.Errorf("%w: online project already exists", ErrConflict)
			}
		}

		return tx.Create(project).Error
	}))
}

// FindProjectByName finds a project by name
func (r *GormProjectRepository) FindProjectByName(ctx context.Context, name string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&project).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// FindProjectByID finds a project by ID
func (r *GormProjectRepository) FindProjectByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// OnlineProject returns the online project
func (r *GormProjectRepository) OnlineProject(ctx context.Context) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Where("state = ?", models.ProjectStateOnline).
		First(&project).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// ListProjects lists all projects
func (r *GormProjectRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).Order("created_at").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// DeleteProject deletes a project and all of its pending changes in a transaction
func (r *GormProjectRepository) DeleteProject(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", id).Error; err != nil {
			return err
		}
		if project.IsOnline() {
			return fmt.Errorf("%w: the online project cannot be deleted", ErrConflict)
		}

		// Metainformation on resources that never left this project
		var pendingResources []string
		if err := tx.Model(&models.Resource{}).Where("project_id = ?", id).Pluck("id", &pendingResources).Error; err != nil {
			return err
		}
		if len(pendingResources) > 0 {
			if err := tx.Where("resource_id IN ?", pendingResources).Delete(&models.Metainformation{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Metainformation{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Resource{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, "id = ?", id).Error
	}))
}

// Publish flushes the pending changes of a project into the online project
func (r *GormProjectRepository) Publish(ctx context.Context, projectID, publisherID string) (*models.Project, error) {
	var published models.Project

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&published, "id = ?", projectID).Error; err != nil {
			return err
		}
		if published.State != models.ProjectStateUnlocked {
			return fmt.Errorf("%w: project %q is %s", ErrConflict, published.Name, published.State)
		}

		var online models.Project
		if err := tx.Where("state = ?", models.ProjectStateOnline).First(&online).Error; err != nil {
			return fmt.Errorf("online project: %w", translate(err))
		}

		if err := tx.Model(&models.Resource{}).
			Where("project_id = ?", projectID).
			Update("project_id", online.ID).Error; err != nil {
			return err
		}

		var pending []models.Metainformation
		if err := tx.Where("project_id = ?", projectID).Find(&pending).Error; err != nil {
			return err
		}

		var upserts []models.Metainformation
		for _, meta := range pending {
			if meta.Deleted {
				if err := tx.Where("resource_id = ? AND project_id = ? AND name = ?", meta.ResourceID, online.ID, meta.Name).
					Delete(&models.Metainformation{}).Error; err != nil {
					return err
				}
				continue
			}
			meta.ProjectID = online.ID
			upserts = append(upserts, meta)
		}

		if len(upserts) > 0 {
			if err := tx.Clauses(metainformationUpsert).Create(&upserts).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&models.Metainformation{}).Error; err != nil {
			return err
		}

		now := time.Now()
		published.State = models.ProjectStatePublished
		published.PublishedAt = &now
		published.PublishedByID = &publisherID
		return tx.Save(&published).Error
	})
	if err != nil {
		return nil, translate(err)
	}

	return &published, nil
}

var metainformationUpsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "resource_id"}, {Name: "project_id"}, {Name: "name"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "deleted", "updated_at"}),
}
