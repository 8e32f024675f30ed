package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with the GORM transaction the caller is running in.
// Tx is nil outside of a transaction; repos then fall back to their own handle.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
