package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/task-hierarchy-api/internal/database"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := validateNewTask(task); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID for its owner
func (r *GormTaskRepository) FindByID(ctx context.Context, id string, ownerID uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Delete removes a task and re-parents its children to the root in one transaction
func (r *GormTaskRepository) Delete(ctx context.Context, id string, ownerID uint64) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Model(&models.Task{}).
			Where("parent_id = ?", task.ID).
			Update("parent_id", models.RootTaskID).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND owner_id = ?", task.ID, ownerID).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// ListTopLevel lists the owner's projects
func (r *GormTaskRepository) ListTopLevel(ctx context.Context, ownerID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", ownerID, models.RootTaskID).
		Scopes(database.CreationOrder).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListChildren lists one page of a task's children
func (r *GormTaskRepository) ListChildren(ctx context.Context, ownerID uint64, parentID string, page, pageSize int) ([]models.Task, error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, err
	}

	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", ownerID, parentID).
		Scopes(database.CreationOrder, database.Paginate(page, pageSize)).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindChildren returns all direct children of a task
func (r *GormTaskRepository) FindChildren(ctx context.Context, parentID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Scopes(database.CreationOrder).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountChildren counts the direct children of a task
func (r *GormTaskRepository) CountChildren(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// CountChildrenByParent counts direct children for each of the given parents
func (r *GormTaskRepository) CountChildrenByParent(ctx context.Context, parentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ParentID string
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("parent_id, COUNT(*) AS total").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.ParentID] = row.Total
	}
	return counts, nil
}

// Update applies a partial update to a task. Only the provided columns are
// written. The moved task and every ancestor visited by the cycle check are
// locked until the write commits, so crossed moves serialize.
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task, fields TaskFields) (*models.Task, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Task
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
			First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := applyFields(ctx, &current, fields, r.parentLookup(tx, task.OwnerID)); err != nil {
			return err
		}

		columns := changedColumns(&current, fields)
		if len(columns) == 0 {
			return nil
		}
		return tx.Model(&models.Task{}).
			Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
			Updates(columns).Error
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, task.ID, task.OwnerID)
}

// UpdateStatus sets the status of a task
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, task *models.Task, status models.TaskStatus) (*models.Task, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
		Update("status", status).Error
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, task.ID, task.OwnerID)
}

func (r *GormTaskRepository) parentLookup(db *gorm.DB, ownerID uint64) parentLookup {
	return func(ctx context.Context, id string) (string, error) {
		var task models.Task
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "parent_id").
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrNotFound
			}
			return "", err
		}
		return task.ParentID, nil
	}
}
