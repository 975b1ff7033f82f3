// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// CatalogStore owns Item records.
type CatalogStore interface {
	Create(ctx context.Context, item *Item) (ItemID, error)
	List(ctx context.Context) ([]ItemSummary, error)
	Get(ctx context.Context, id ItemID) (*Item, error)
}

// SessionStore holds in-flight authoring sessions keyed by actor.
type SessionStore interface {
	Get(ctx context.Context, actor ActorID) (*Session, bool, error)
	Set(ctx context.Context, session *Session) error
	Delete(ctx context.Context, actor ActorID) error
}

// SalesLedger records processed payments. Claim reports false when the
// link id was already recorded.
type SalesLedger interface {
	Claim(ctx context.Context, sale *Sale) (bool, error)
	Release(ctx context.Context, link LinkID) error
	List(ctx context.Context, limit int) ([]*Sale, error)
	Summarize(ctx context.Context, since time.Time) (SalesSummary, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Notifier sends messages to chat actors. It is implemented by the chat
// transport.
type Notifier interface {
	SendText(ctx context.Context, to ActorID, text string) error
	SendVideo(ctx context.Context, to ActorID, fileID, caption string) error
	SendPhoto(ctx context.Context, to ActorID, code *VisualCode, caption string) error
}
