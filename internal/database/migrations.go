package database

import (
	"fmt"
	"log"

	"github.com/yukikurage/task-hierarchy-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by the hierarchy queries
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns string
	}{
		// Projects of an owner and paginated children of a parent
		{"idx_tasks_owner_parent_created", "owner_id, parent_id, created_at"},
		// Child counts and split context
		{"idx_tasks_parent_created", "parent_id, created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			log.Printf("Index %s already exists, skipping", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on tasks(%s)", idx.name, idx.columns)
	}

	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
