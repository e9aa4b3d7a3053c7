package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/cms-resource-broker/internal/models"
	"gorm.io/gorm"
)

// GormMetadefinitionRepository is a GORM implementation of MetadefinitionStore
type GormMetadefinitionRepository struct {
	db *gorm.DB
}

// NewMetadefinitionRepository creates a new MetadefinitionStore
func NewMetadefinitionRepository(db *gorm.DB) MetadefinitionStore {
	return &GormMetadefinitionRepository{db: db}
}

// CreateMetadefinition creates a definition
func (r *GormMetadefinitionRepository) CreateMetadefinition(ctx context.Context, def *models.Metadefinition) error {
	if def.ID == "" {
		def.ID = models.NewID()
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Model(&models.Metadefinition{}).Where("name = ? AND type_id = ?", def.Name, def.TypeID))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: metadefinition %q already exists", ErrConflict, def.Name)
		}
		return tx.Create(def).Error
	}))
}

// FindMetadefinition finds a definition by name and type
func (r *GormMetadefinitionRepository) FindMetadefinition(ctx context.Context, name, typeID string) (*models.Metadefinition, error) {
	var def models.Metadefinition
	if err := r.db.WithContext(ctx).
		Where("name = ? AND type_id = ?", name, typeID).
		First(&def).Error; err != nil {
		return nil, translate(err)
	}
	return &def, nil
}

// ListMetadefinitions lists the definitions of a type
func (r *GormMetadefinitionRepository) ListMetadefinitions(ctx context.Context, typeID string, kind *models.MetadefinitionKind) ([]models.Metadefinition, error) {
	query := r.db.WithContext(ctx).Where("type_id = ?", typeID)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}

	defs := []models.Metadefinition{}
	if err := query.Order("name").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

// UpdateMetadefinition rewrites an unreferenced definition
func (r *GormMetadefinitionRepository) UpdateMetadefinition(ctx context.Context, def *models.Metadefinition) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Metadefinition
		if err := tx.First(&current, "id = ?", def.ID).Error; err != nil {
			return err
		}
		if err := ensureUnreferenced(tx, &current); err != nil {
			return err
		}
		if def.Name != current.Name || def.TypeID != current.TypeID {
			taken, err := exists(tx.Model(&models.Metadefinition{}).
				Where("name = ? AND type_id = ? AND id <> ?", def.Name, def.TypeID, def.ID))
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: metadefinition %q already exists", ErrConflict, def.Name)
			}
		}
		return tx.Save(def).Error
	}))
}

// DeleteMetadefinition deletes an unreferenced definition
func (r *GormMetadefinitionRepository) DeleteMetadefinition(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var def models.Metadefinition
		if err := tx.First(&def, "id = ?", id).Error; err != nil {
			return err
		}
		if err := ensureUnreferenced(tx, &def); err != nil {
			return err
		}
		return tx.Delete(&models.Metadefinition{}, "id = ?", id).Error
	}))
}

// ensureUnreferenced fails when any live value uses the definition.
func ensureUnreferenced(tx *gorm.DB, def *models.Metadefinition) error {
	used, err := exists(tx.Model(&models.Metainformation{}).
		Joins("JOIN resources ON resources.id = metainformations.resource_id").
		Where("metainformations.name = ? AND resources.type_id = ? AND metainformations.deleted = ?", def.Name, def.TypeID, false))
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: metadefinition %q is in use", ErrConflict, def.Name)
	}
	return nil
}

// GormPropertyRepository is a GORM implementation of PropertyStore
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new PropertyStore
func NewPropertyRepository(db *gorm.DB) PropertyStore {
	return &GormPropertyRepository{db: db}
}

// ReadValue reads one value, preferring the pending value of projectID
func (r *GormPropertyRepository) ReadValue(ctx context.Context, resourceID, projectID, onlineID, name string) (string, error) {
	var rows []models.Metainformation
	if err := r.db.WithContext(ctx).
		Where("resource_id = ? AND name = ? AND project_id IN ?", resourceID, name, []string{projectID, onlineID}).
		Find(&rows).Error; err != nil {
		return "", err
	}

	values := Overlay(rows, projectID, onlineID)
	value, ok := values[name]
	if !ok {
		return "", fmt.Errorf("%w: metainformation %q", ErrNotFound, name)
	}
	return value, nil
}

// ReadAll reads all values visible from projectID
func (r *GormPropertyRepository) ReadAll(ctx context.Context, resourceID, projectID, onlineID string) (map[string]string, error) {
	return readAll(r.db.WithContext(ctx), resourceID, projectID, onlineID)
}

// WriteValues upserts values in a single statement
func (r *GormPropertyRepository) WriteValues(ctx context.Context, resourceID, projectID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.Metainformation, 0, len(values))
	for name, value := range values {
		rows = append(rows, models.Metainformation{
			ResourceID: resourceID,
			ProjectID:  projectID,
			Name:       name,
			Value:      value,
			UpdatedAt:  now,
		})
	}

	return translate(r.db.WithContext(ctx).Clauses(metainformationUpsert).Create(&rows).Error)
}

// DeleteValues records tombstones for visible values. In the online
// project the rows are removed directly.
func (r *GormPropertyRepository) DeleteValues(ctx context.Context, resourceID, projectID, onlineID string, names []string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		visible, err := readAll(tx, resourceID, projectID, onlineID)
		if err != nil {
			return err
		}

		targets := make([]string, 0, len(visible))
		if names == nil {
			for name := range visible {
				targets = append(targets, name)
			}
		} else {
			for _, name := range names {
				if _, ok := visible[name]; ok {
					targets = append(targets, name)
				}
			}
		}
		if len(targets) == 0 {
			return nil
		}

		if projectID == onlineID {
			return tx.Where("resource_id = ? AND project_id = ? AND name IN ?", resourceID, onlineID, targets).
				Delete(&models.Metainformation{}).Error
		}

		now := time.Now()
		tombstones := make([]models.Metainformation, 0, len(targets))
		for _, name := range targets {
			tombstones = append(tombstones, models.Metainformation{
				ResourceID: resourceID,
				ProjectID:  projectID,
				Name:       name,
				Deleted:    true,
				UpdatedAt:  now,
			})
		}
		return tx.Clauses(metainformationUpsert).Create(&tombstones).Error
	}))
}

func readAll(db *gorm.DB, resourceID, projectID, onlineID string) (map[string]string, error) {
	var rows []models.Metainformation
	if err := db.
		Where("resource_id = ? AND project_id IN ?", resourceID, []string{projectID, onlineID}).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return Overlay(rows, projectID, onlineID), nil
}

// Overlay merges the online rows with the pending rows of projectID.
func Overlay(rows []models.Metainformation, projectID, onlineID string) map[string]string {
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.ProjectID == onlineID && !row.Deleted {
			values[row.Name] = row.Value
		}
	}
	if projectID == onlineID {
		return values
	}
	for _, row := range rows {
		if row.ProjectID != projectID {
			continue
		}
		if row.Deleted {
			delete(values, row.Name)
		} else {
			values[row.Name] = row.Value
		}
	}
	return values
}
