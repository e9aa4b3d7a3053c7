package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// exists reports whether query matches at least one row.
func exists(query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NewStores wires the gorm implementations of every store onto db
func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		UserGroups:      NewUserGroupRepository(db),
		Projects:        NewProjectRepository(db),
		Resources:       NewResourceRepository(db),
		Metadefinitions: NewMetadefinitionRepository(db),
		Properties:      NewPropertyRepository(db),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
