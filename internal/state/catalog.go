package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/user/vendbot/internal/types"
)

// CatalogStore is a SQL-backed store of sellable items.
type CatalogStore struct {
	db *DB
}

// NewCatalogStore creates a CatalogStore on the given database.
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Create inserts an item and returns its assigned id. The item's ID field
// is updated in place.
func (s *CatalogStore) Create(ctx context.Context, item *types.Item) (types.ItemID, error) {
	var contentRef, url sql.NullString
	switch p := item.Payload.(type) {
	case types.VideoPayload:
		contentRef = sql.NullString{String: p.FileID, Valid: true}
	case types.LinkPayload:
		url = sql.NullString{String: p.URL, Valid: true}
	default:
		return 0, fmt.Errorf("create item: unsupported payload %T", item.Payload)
	}

	var id int64
	err := s.db.sql.QueryRowContext(ctx, s.db.rebind(`
		INSERT INTO items (label, content_type, content_ref, url, price_minor)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		item.Label, string(item.ContentType()), contentRef, url, item.PriceMinor,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	item.ID = types.ItemID(id)
	return item.ID, nil
}

// List returns summaries of all items ordered by id.
func (s *CatalogStore) List(ctx context.Context) ([]types.ItemSummary, error) {
	rows, err := s.db.sql.QueryContext(ctx, `SELECT id, label, price_minor FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []types.ItemSummary{}
	for rows.Next() {
		var sum types.ItemSummary
		var id int64
		if err := rows.Scan(&id, &sum.Label, &sum.PriceMinor); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		sum.ID = types.ItemID(id)
		items = append(items, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Get returns the item with the given id, or ErrNotFound.
func (s *CatalogStore) Get(ctx context.Context, id types.ItemID) (*types.Item, error) {
	var (
		label, contentType string
		contentRef, url    sql.NullString
		price              int64
	)
	err := s.db.sql.QueryRowContext(ctx, s.db.rebind(`
		SELECT label, content_type, content_ref, url, price_minor
		FROM items WHERE id = ?`), int64(id),
	).Scan(&label, &contentType, &contentRef, &url, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}

	payload, err := payloadFromRow(types.ContentType(contentType), contentRef, url)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return &types.Item{ID: id, Label: label, Payload: payload, PriceMinor: price}, nil
}

// payloadFromRow turns the nullable sibling columns into the tagged variant.
func payloadFromRow(ct types.ContentType, contentRef, url sql.NullString) (types.Payload, error) {
	switch ct {
	case types.ContentVideo:
		if !contentRef.Valid || contentRef.String == "" {
			return nil, errors.New("video item has no content reference")
		}
		return types.VideoPayload{FileID: contentRef.String}, nil
	case types.ContentLink:
		if !url.Valid || url.String == "" {
			return nil, errors.New("link item has no url")
		}
		return types.LinkPayload{URL: url.String}, nil
	}
	return nil, fmt.Errorf("unknown content type %q", ct)
}
