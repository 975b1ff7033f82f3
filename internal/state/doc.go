// Package state provides the catalog, sales ledger and session store
// implementations.
package state

import (
	"errors"

	"github.com/user/vendbot/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Compile-time interface compliance checks.
var _ types.CatalogStore = (*CatalogStore)(nil)
var _ types.SalesLedger = (*SalesLedger)(nil)
var _ types.SessionStore = (*MemorySessionStore)(nil)
var _ types.SessionStore = (*RedisSessionStore)(nil)
