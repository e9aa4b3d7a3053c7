package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

// MetadefinitionStore provides an in-memory implementation of repository.MetadefinitionStore
type MetadefinitionStore struct {
	db *memdb.MemDB
}

// CreateMetadefinition creates a definition
func (s *MetadefinitionStore) CreateMetadefinition(ctx context.Context, def *models.Metadefinition) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := found(txn, tableMetadefinitions, "name_type", def.Name, def.TypeID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: metadefinition %q already exists", repository.ErrConflict, def.Name)
	}

	if def.ID == "" {
		def.ID = models.NewID()
	}
	now := time.Now()
	def.CreatedAt, def.UpdatedAt = now, now
	row := *def
	if err := txn.Insert(tableMetadefinitions, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// FindMetadefinition finds a definition by name and type
func (s *MetadefinitionStore) FindMetadefinition(ctx context.Context, name, typeID string) (*models.Metadefinition, error) {
	return first[models.Metadefinition](s.db.Txn(false), tableMetadefinitions, "name_type", name, typeID)
}

// ListMetadefinitions lists the definitions of a type, ordered by name
func (s *MetadefinitionStore) ListMetadefinitions(ctx context.Context, typeID string, kind *models.MetadefinitionKind) ([]models.Metadefinition, error) {
	txn := s.db.Txn(false)
	it, err := txn.Get(tableMetadefinitions, "name_type_prefix", "")
	if err != nil {
		return nil, err
	}

	defs := []models.Metadefinition{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		def := raw.(*models.Metadefinition)
		if def.TypeID != typeID || (kind != nil && def.Kind != *kind) {
			continue
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

// UpdateMetadefinition rewrites an unreferenced definition
func (s *MetadefinitionStore) UpdateMetadefinition(ctx context.Context, def *models.Metadefinition) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	current, err := first[models.Metadefinition](txn, tableMetadefinitions, indexID, def.ID)
	if err != nil {
		return err
	}
	if err := ensureUnreferenced(txn, current); err != nil {
		return err
	}
	if def.Name != current.Name || def.TypeID != current.TypeID {
		taken, err := found(txn, tableMetadefinitions, "name_type", def.Name, def.TypeID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: metadefinition %q already exists", repository.ErrConflict, def.Name)
		}
	}

	def.CreatedAt = current.CreatedAt
	def.UpdatedAt = time.Now()
	if err := txn.Delete(tableMetadefinitions, current); err != nil {
		return err
	}
	row := *def
	if err := txn.Insert(tableMetadefinitions, &row); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// DeleteMetadefinition deletes an unreferenced definition
func (s *MetadefinitionStore) DeleteMetadefinition(ctx context.Context, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	def, err := first[models.Metadefinition](txn, tableMetadefinitions, indexID, id)
	if err != nil {
		return err
	}
	if err := ensureUnreferenced(txn, def); err != nil {
		return err
	}
	if err := txn.Delete(tableMetadefinitions, def); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

// ensureUnreferenced fails when any live value uses the definition.
func ensureUnreferenced(txn *memdb.Txn, def *models.Metadefinition) error {
	resources, err := list[models.Resource](txn, tableResources, "type", def.TypeID)
	if err != nil {
		return err
	}
	for _, resource := range resources {
		values, err := list[models.Metainformation](txn, tableMetainfos, "resource", resource.ID)
		if err != nil {
			return err
		}
		for _, v := range values {
			if v.Name == def.Name && !v.Deleted {
				return fmt.Errorf("%w: metadefinition %q is in use", repository.ErrConflict, def.Name)
			}
		}
	}
	return nil
}

// PropertyStore provides an in-memory implementation of repository.PropertyStore
type PropertyStore struct {
	db *memdb.MemDB
}

// ReadValue reads one value, preferring the pending value of projectID
func (s *PropertyStore) ReadValue(ctx context.Context, resourceID, projectID, onlineID, name string) (string, error) {
	values, err := readAll(s.db.Txn(false), resourceID, projectID, onlineID)
	if err != nil {
		return "", err
	}
	value, ok := values[name]
	if !ok {
		return "", fmt.Errorf("%w: metainformation %q", repository.ErrNotFound, name)
	}
	return value, nil
}

// ReadAll reads all values visible from projectID
func (s *PropertyStore) ReadAll(ctx context.Context, resourceID, projectID, onlineID string) (map[string]string, error) {
	return readAll(s.db.Txn(false), resourceID, projectID, onlineID)
}

// WriteValues upserts values in one transaction
func (s *PropertyStore) WriteValues(ctx context.Context, resourceID, projectID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	now := time.Now()
	for name, value := range values {
		row := &models.Metainformation{
			ResourceID: resourceID,
			ProjectID:  projectID,
			Name:       name,
			Value:      value,
			UpdatedAt:  now,
		}
		if err := txn.Insert(tableMetainfos, row); err != nil {
			return err
		}
	}

	txn.Commit()
	return nil
}

// DeleteValues records tombstones for visible values. In the online
// project the values are removed directly.
func (s *PropertyStore) DeleteValues(ctx context.Context, resourceID, projectID, onlineID string, names []string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	visible, err := readAll(txn, resourceID, projectID, onlineID)
	if err != nil {
		return err
	}

	var targets []string
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

	now := time.Now()
	for _, name := range targets {
		if projectID == onlineID {
			if _, err := txn.DeleteAll(tableMetainfos, indexID, resourceID, onlineID, name); err != nil {
				return err
			}
			continue
		}
		tombstone := &models.Metainformation{
			ResourceID: resourceID,
			ProjectID:  projectID,
			Name:       name,
			Deleted:    true,
			UpdatedAt:  now,
		}
		if err := txn.Insert(tableMetainfos, tombstone); err != nil {
			return err
		}
	}

	txn.Commit()
	return nil
}

func readAll(txn *memdb.Txn, resourceID, projectID, onlineID string) (map[string]string, error) {
	rows, err := list[models.Metainformation](txn, tableMetainfos, "resource", resourceID)
	if err != nil {
		return nil, err
	}
	return repository.Overlay(rows, projectID, onlineID), nil
}
