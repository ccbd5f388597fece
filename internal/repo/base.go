package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm handle shared by the commerce-store repositories.
// Repositories embed it and reach the connection through DB so every query
// is scoped to the caller's context.
type Base struct {
	db *gorm.DB
}

// NewBase wraps a gorm connection for embedding in a repository.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection scoped to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
