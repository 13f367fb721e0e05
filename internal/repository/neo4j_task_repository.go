package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/yukikurage/task-hierarchy-api/internal/models"
)

// Neo4jTaskRepository stores tasks as :Task nodes. The parent link is kept
// both as the parent_id property (the sentinel for projects) and as a
// HAS_PARENT relationship between real tasks.
type Neo4jTaskRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jTaskRepository creates a TaskRepository backed by Neo4j
func NewNeo4jTaskRepository(driver neo4j.DriverWithContext, database string) *Neo4jTaskRepository {
	return &Neo4jTaskRepository{driver: driver, database: database}
}

// EnsureSchema creates the uniqueness constraint and lookup indexes
func (r *Neo4jTaskRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
		"CREATE INDEX task_owner_parent IF NOT EXISTS FOR (t:Task) ON (t.owner_id, t.parent_id)",
		"CREATE INDEX task_parent IF NOT EXISTS FOR (t:Task) ON (t.parent_id)",
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range statements {
		res, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to apply schema %q: %w", stmt, err)
		}
	}
	return nil
}

func (r *Neo4jTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := validateNewTask(task); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			"CREATE (t:Task {id: $id, title: $title, description: $description, status: $status, "+
				"owner_id: $owner_id, parent_id: $parent_id, created_at: $created_at, updated_at: $updated_at})",
			taskParams(task),
		); err != nil {
			return nil, err
		}
		return nil, linkParent(ctx, tx, task.ID, task.ParentID)
	})
	return err
}

func (r *Neo4jTaskRepository) FindByID(ctx context.Context, id string, ownerID uint64) (*models.Task, error) {
	tasks, err := r.readTasks(ctx,
		"MATCH (t:Task {id: $id, owner_id: $owner_id}) RETURN t",
		map[string]any{"id": id, "owner_id": int64(ownerID)},
	)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

// Delete promotes the children of the task to projects and removes the node
func (r *Neo4jTaskRepository) Delete(ctx context.Context, id string, ownerID uint64) (bool, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"id": id, "owner_id": int64(ownerID), "root": models.RootTaskID}

		res, err := tx.Run(ctx, "MATCH (t:Task {id: $id, owner_id: $owner_id}) RETURN count(t) AS total", params)
		if err != nil {
			return false, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, err
		}
		if total, _ := record.AsMap()["total"].(int64); total == 0 {
			return false, nil
		}

		if _, err := tx.Run(ctx, "MATCH (c:Task {parent_id: $id}) SET c.parent_id = $root", params); err != nil {
			return false, err
		}
		if _, err := tx.Run(ctx, "MATCH (t:Task {id: $id, owner_id: $owner_id}) DETACH DELETE t", params); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (r *Neo4jTaskRepository) ListTopLevel(ctx context.Context, ownerID uint64) ([]models.Task, error) {
	return r.readTasks(ctx,
		"MATCH (t:Task {owner_id: $owner_id, parent_id: $root}) RETURN t ORDER BY t.created_at, t.id",
		map[string]any{"owner_id": int64(ownerID), "root": models.RootTaskID},
	)
}

func (r *Neo4jTaskRepository) ListChildren(ctx context.Context, ownerID uint64, parentID string, page, pageSize int) ([]models.Task, error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, err
	}
	return r.readTasks(ctx,
		"MATCH (t:Task {owner_id: $owner_id, parent_id: $parent_id}) RETURN t "+
			"ORDER BY t.created_at, t.id SKIP $skip LIMIT $limit",
		map[string]any{
			"owner_id":  int64(ownerID),
			"parent_id": parentID,
			"skip":      int64((page - 1) * pageSize),
			"limit":     int64(pageSize),
		},
	)
}

func (r *Neo4jTaskRepository) FindChildren(ctx context.Context, parentID string) ([]models.Task, error) {
	return r.readTasks(ctx,
		"MATCH (t:Task {parent_id: $parent_id}) RETURN t ORDER BY t.created_at, t.id",
		map[string]any{"parent_id": parentID},
	)
}

func (r *Neo4jTaskRepository) CountChildren(ctx context.Context, parentID string) (int64, error) {
	counts, err := r.CountChildrenByParent(ctx, []string{parentID})
	if err != nil {
		return 0, err
	}
	return counts[parentID], nil
}

func (r *Neo4jTaskRepository) CountChildrenByParent(ctx context.Context, parentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task) WHERE t.parent_id IN $parent_ids RETURN t.parent_id AS parent_id, count(t) AS total",
			map[string]any{"parent_ids": parentIDs},
		)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			values := res.Record().AsMap()
			parentID, _ := values["parent_id"].(string)
			total, _ := values["total"].(int64)
			counts[parentID] = total
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *Neo4jTaskRepository) Update(ctx context.Context, task *models.Task, fields TaskFields) (*models.Task, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		updated := *task
		if err := applyFields(ctx, &updated, fields, txParentLookup(tx, task.OwnerID)); err != nil {
			return nil, err
		}

		props := changedColumns(&updated, fields)
		props["updated_at"] = time.Now().UnixNano()
		if _, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id, owner_id: $owner_id}) SET t += $props",
			map[string]any{"id": task.ID, "owner_id": int64(task.OwnerID), "props": props},
		); err != nil {
			return nil, err
		}

		if fields.ParentID != nil {
			if _, err := tx.Run(ctx,
				"MATCH (t:Task {id: $id})-[rel:HAS_PARENT]->() DELETE rel",
				map[string]any{"id": task.ID},
			); err != nil {
				return nil, err
			}
			if err := linkParent(ctx, tx, task.ID, updated.ParentID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, task.ID, task.OwnerID)
}

func (r *Neo4jTaskRepository) UpdateStatus(ctx context.Context, task *models.Task, status models.TaskStatus) (*models.Task, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx,
			"MATCH (t:Task {id: $id, owner_id: $owner_id}) SET t.status = $status, t.updated_at = $updated_at",
			map[string]any{
				"id":         task.ID,
				"owner_id":   int64(task.OwnerID),
				"status":     string(status),
				"updated_at": time.Now().UnixNano(),
			},
		)
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, task.ID, task.OwnerID)
}

func (r *Neo4jTaskRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

func (r *Neo4jTaskRepository) readTasks(ctx context.Context, cypher string, params map[string]any) ([]models.Task, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		tasks := []models.Task{}
		for res.Next(ctx) {
			task, err := taskFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Task), nil
}

func txParentLookup(tx neo4j.ManagedTransaction, ownerID uint64) parentLookup {
	return func(ctx context.Context, id string) (string, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id, owner_id: $owner_id}) RETURN t.parent_id AS parent_id",
			map[string]any{"id": id, "owner_id": int64(ownerID)},
		)
		if err != nil {
			return "", err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return "", err
			}
			return "", ErrNotFound
		}
		parentID, _ := res.Record().AsMap()["parent_id"].(string)
		return parentID, nil
	}
}

func linkParent(ctx context.Context, tx neo4j.ManagedTransaction, id, parentID string) error {
	if models.IsRootTaskID(parentID) {
		return nil
	}
	_, err := tx.Run(ctx,
		"MATCH (t:Task {id: $id}), (p:Task {id: $parent_id}) CREATE (t)-[:HAS_PARENT]->(p)",
		map[string]any{"id": id, "parent_id": parentID},
	)
	return err
}

func taskParams(task *models.Task) map[string]any {
	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"status":      string(task.Status),
		"owner_id":    int64(task.OwnerID),
		"parent_id":   task.ParentID,
		"created_at":  task.CreatedAt.UnixNano(),
		"updated_at":  task.UpdatedAt.UnixNano(),
	}
}

func taskFromRecord(record *neo4j.Record) (models.Task, error) {
	value, ok := record.Get("t")
	if !ok {
		return models.Task{}, fmt.Errorf("record has no task column")
	}
	node, ok := value.(neo4j.Node)
	if !ok {
		return models.Task{}, fmt.Errorf("unexpected task value %T", value)
	}

	props := node.Props
	task := models.Task{}
	task.ID, _ = props["id"].(string)
	task.Title, _ = props["title"].(string)
	task.Description, _ = props["description"].(string)
	task.ParentID, _ = props["parent_id"].(string)
	if status, ok := props["status"].(string); ok {
		task.Status = models.TaskStatus(status)
	}
	if ownerID, ok := props["owner_id"].(int64); ok {
		task.OwnerID = uint64(ownerID)
	}
	if createdAt, ok := props["created_at"].(int64); ok {
		task.CreatedAt = time.Unix(0, createdAt)
	}
	if updatedAt, ok := props["updated_at"].(int64); ok {
		task.UpdatedAt = time.Unix(0, updatedAt)
	}
	return task, nil
}
