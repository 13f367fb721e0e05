package database

import (
	"gorm.io/gorm"
)

// Paginate applies offset/limit pagination for a 1-based page
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// CreationOrder orders rows by creation time, breaking ties by id
func CreationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
