package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusCreated    TaskStatus = "created"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCreated, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// RootTaskID is the parent of every project. No row ever carries this id.
var RootTaskID = uuid.Nil.String()

// IsRootTaskID reports whether id denotes the "no parent" sentinel.
func IsRootTaskID(id string) bool {
	return id == RootTaskID
}

type Task struct {
	ID          string     `gorm:"type:char(36);primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	OwnerID     uint64     `gorm:"not null;index" json:"owner_id"`
	ParentID    string     `gorm:"type:char(36);not null;index" json:"parent_id"`
	CreatedAt   time.Time  `gorm:"precision:6;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"precision:6" json:"updated_at"`

	// Relations
	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

// IsProject reports whether the task sits directly under the sentinel root.
func (t *Task) IsProject() bool {
	return IsRootTaskID(t.ParentID)
}

// BeforeCreate fills in the identifier and the defaults that keep the tree well-formed.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ParentID == "" {
		t.ParentID = RootTaskID
	}
	if t.Status == "" {
		t.Status = TaskStatusCreated
	}
	return nil
}
