package fulfillment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/vendbot/internal/state"
	"github.com/user/vendbot/internal/types"
)

type fakeCatalog struct {
	items map[types.ItemID]*types.Item
}

func newFakeCatalog(items ...*types.Item) *fakeCatalog {
	c := &fakeCatalog{items: make(map[types.ItemID]*types.Item)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *fakeCatalog) Create(_ context.Context, item *types.Item) (types.ItemID, error) {
	item.ID = types.ItemID(len(c.items) + 1)
	c.items[item.ID] = item
	return item.ID, nil
}

func (c *fakeCatalog) List(context.Context) ([]types.ItemSummary, error) { return nil, nil }

func (c *fakeCatalog) Get(_ context.Context, id types.ItemID) (*types.Item, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, state.ErrNotFound
	}
	return item, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	sales    map[types.LinkID]*types.Sale
	released []types.LinkID
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{sales: make(map[types.LinkID]*types.Sale)}
}

func (l *fakeLedger) Claim(_ context.Context, sale *types.Sale) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.sales[sale.LinkID]; ok {
		return false, nil
	}
	l.sales[sale.LinkID] = sale
	return true, nil
}

func (l *fakeLedger) Release(_ context.Context, link types.LinkID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sales, link)
	l.released = append(l.released, link)
	return nil
}

func (l *fakeLedger) List(context.Context, int) ([]*types.Sale, error) { return nil, nil }

func (l *fakeLedger) Summarize(context.Context, time.Time) (types.SalesSummary, error) {
	return types.SalesSummary{}, nil
}

func (l *fakeLedger) Prune(context.Context, time.Time) (int64, error) { return 0, nil }

type sent struct {
	kind    string
	to      types.ActorID
	text    string
	caption string
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[string]error
}

func (n *recordingNotifier) record(s sent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[s.kind]; ok {
		return err
	}
	n.sent = append(n.sent, s)
	return nil
}

func (n *recordingNotifier) SendText(_ context.Context, to types.ActorID, text string) error {
	return n.record(sent{kind: "text", to: to, text: text})
}

func (n *recordingNotifier) SendVideo(_ context.Context, to types.ActorID, fileID, caption string) error {
	return n.record(sent{kind: "video", to: to, text: fileID, caption: caption})
}

func (n *recordingNotifier) SendPhoto(_ context.Context, to types.ActorID, _ *types.VisualCode, caption string) error {
	return n.record(sent{kind: "photo", to: to, caption: caption})
}

func (n *recordingNotifier) all() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sent, len(n.sent))
	copy(out, n.sent)
	return out
}

type recordingQueue struct {
	jobs []*Job
	err  error
}

func (q *recordingQueue) Enqueue(_ string, job *Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

var errQueueFull = errors.New("fulfillment queue full for buyer:555")
