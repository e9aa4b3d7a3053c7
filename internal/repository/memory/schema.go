package memory

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

const (
	tableUsers           = "users"
	tableGroups          = "groups"
	tableUserGroups      = "user_groups"
	tableProjects        = "projects"
	tableResourceTypes   = "resource_types"
	tableResources       = "resources"
	tableMetadefinitions = "metadefinitions"
	tableMetainfos       = "metainformations"

	indexID = "id"
)

func idIndex(field string) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:    indexID,
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: field},
	}
}

func stringIndex(name, field string, unique bool) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:         name,
		Unique:       unique,
		AllowMissing: !unique,
		Indexer:      &memdb.StringFieldIndex{Field: field},
	}
}

func compoundIndex(name string, unique bool, fields ...string) *memdb.IndexSchema {
	indexes := make([]memdb.Indexer, len(fields))
	for i, f := range fields {
		indexes[i] = &memdb.StringFieldIndex{Field: f}
	}
	return &memdb.IndexSchema{
		Name:    name,
		Unique:  unique,
		Indexer: &memdb.CompoundIndex{Indexes: indexes},
	}
}

func brokerSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex("ID"),
					"name":  stringIndex("name", "Name", true),
				},
			},
			tableGroups: {
				Name: tableGroups,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:    idIndex("ID"),
					"name":     stringIndex("name", "Name", true),
					"parent":   stringIndex("parent", "ParentID", false),
					"org_unit": stringIndex("org_unit", "OrgUnit", false),
				},
			},
			tableUserGroups: {
				Name: tableUserGroups,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: compoundIndex(indexID, true, "UserID", "GroupID"),
					"user":  stringIndex("user", "UserID", false),
					"group": stringIndex("group", "GroupID", false),
				},
			},
			tableProjects: {
				Name: tableProjects,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex("ID"),
					"name":  stringIndex("name", "Name", true),
					"state": stringIndex("state", "State", false),
					"group": stringIndex("group", "GroupID", false),
				},
			},
			tableResourceTypes: {
				Name: tableResourceTypes,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex("ID"),
					"name":  stringIndex("name", "Name", true),
				},
			},
			tableResources: {
				Name: tableResources,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:   idIndex("ID"),
					"path":    stringIndex("path", "Path", true),
					"project": stringIndex("project", "ProjectID", false),
					"type":    stringIndex("type", "TypeID", false),
				},
			},
			tableMetadefinitions: {
				Name: tableMetadefinitions,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:     idIndex("ID"),
					"name_type": compoundIndex("name_type", true, "Name", "TypeID"),
					"type":      stringIndex("type", "TypeID", false),
				},
			},
			tableMetainfos: {
				Name: tableMetainfos,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:            compoundIndex(indexID, true, "ResourceID", "ProjectID", "Name"),
					"resource_project": compoundIndex("resource_project", false, "ResourceID", "ProjectID"),
					"resource":         stringIndex("resource", "ResourceID", false),
					"project":          stringIndex("project", "ProjectID", false),
				},
			},
		},
	}
}

// New opens an empty in-memory backend. All stores share one database so
// that publish can commit resources and metainformation in one transaction.
func New() (*repository.Stores, error) {
	db, err := memdb.NewMemDB(brokerSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}

	return &repository.Stores{
		UserGroups:      &UserGroupStore{db: db},
		Projects:        &ProjectStore{db: db},
		Resources:       &ResourceStore{db: db},
		Metadefinitions: &MetadefinitionStore{db: db},
		Properties:      &PropertyStore{db: db},
		Close:           func() error { return nil },
	}, nil
}

// first returns a copy of the first object matching the query.
func first[T any](txn *memdb.Txn, table, index string, args ...interface{}) (*T, error) {
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, table)
	}
	obj := *raw.(*T)
	return &obj, nil
}

// list returns copies of all objects matching the query.
func list[T any](txn *memdb.Txn, table, index string, args ...interface{}) ([]T, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*T))
	}
	return out, nil
}

func found(txn *memdb.Txn, table, index string, args ...interface{}) (bool, error) {
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}
