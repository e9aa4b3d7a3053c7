package database

import (
	"fmt"

	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// secondaryIndexes back the lookups the stores run outside primary keys
var secondaryIndexes = []index{
	// Overlay reads and publish
	{"metainformations", "idx_metainformations_project_id", "project_id"},
	{"metainformations", "idx_metainformations_name", "name"},

	// Membership lookups from the group side
	{"user_groups", "idx_user_groups_group_id", "group_id"},

	// Organizational unit listings
	{"principal_groups", "idx_principal_groups_org_unit", "org_unit"},

	// Online project lookup
	{"projects", "idx_projects_state", "state"},
}

// AddIndexes adds the secondary indexes that AutoMigrate does not declare
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range secondaryIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// MigrateDatabase runs the schema migration and adds indexes
func MigrateDatabase(db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		return err
	}
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	return nil
}
