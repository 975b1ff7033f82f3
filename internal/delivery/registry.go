// internal/delivery/registry.go
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/vendbot/internal/types"
)

// Handler hands the purchased content of item to a buyer.
type Handler func(ctx context.Context, n types.Notifier, to types.ActorID, item *types.Item) error

// Registry routes content delivery to the handler registered for the
// item's content type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.ContentType]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[types.ContentType]Handler),
	}
}

// NewDefaultRegistry returns a registry with the video and link handlers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(types.ContentVideo, DeliverVideo)
	r.Register(types.ContentLink, DeliverLink)
	return r
}

// Register sets the handler for a content type, replacing any existing one.
func (r *Registry) Register(ct types.ContentType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[ct] = handler
}

// Deliver calls the handler for the item's content type.
// Returns an error if no handler is registered for it.
func (r *Registry) Deliver(ctx context.Context, n types.Notifier, to types.ActorID, item *types.Item) error {
	r.mu.RLock()
	handler, ok := r.handlers[item.ContentType()]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no delivery handler for content type: %q", item.ContentType())
	}
	return handler(ctx, n, to, item)
}

// DeliverVideo sends the stored video with the item label as caption.
func DeliverVideo(ctx context.Context, n types.Notifier, to types.ActorID, item *types.Item) error {
	p, ok := item.Payload.(types.VideoPayload)
	if !ok || p.FileID == "" {
		return fmt.Errorf("item %s has no video", item.ID)
	}
	return n.SendVideo(ctx, to, p.FileID, item.Label)
}

// DeliverLink sends the item URL as text.
func DeliverLink(ctx context.Context, n types.Notifier, to types.ActorID, item *types.Item) error {
	p, ok := item.Payload.(types.LinkPayload)
	if !ok || p.URL == "" {
		return fmt.Errorf("item %s has no link", item.ID)
	}
	return n.SendText(ctx, to, "Your link:\n"+p.URL)
}
