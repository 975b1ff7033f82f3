package state

import (
	"context"
	"fmt"
	"time"

	"github.com/user/vendbot/internal/types"
)

// SalesLedger records processed payment links. The link id primary key is
// what makes fulfillment run at most once per payment.
type SalesLedger struct {
	db *DB
}

// NewSalesLedger creates a SalesLedger on the given database.
func NewSalesLedger(db *DB) *SalesLedger {
	return &SalesLedger{db: db}
}

// Claim records the sale. It returns false, without error, if the link id
// was already recorded.
func (l *SalesLedger) Claim(ctx context.Context, sale *types.Sale) (bool, error) {
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	res, err := l.db.sql.ExecContext(ctx, l.db.rebind(`
		INSERT INTO sales (link_id, payment_id, buyer_id, item_id, amount_minor, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (link_id) DO NOTHING`),
		string(sale.LinkID), sale.PaymentID, int64(sale.BuyerID), int64(sale.ItemID),
		sale.AmountMinor, sale.CreatedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("claim sale %s: %w", sale.LinkID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim sale %s: %w", sale.LinkID, err)
	}
	return n == 1, nil
}

// Release removes a claim so a redelivered event can be processed again.
func (l *SalesLedger) Release(ctx context.Context, link types.LinkID) error {
	if _, err := l.db.sql.ExecContext(ctx, l.db.rebind(`DELETE FROM sales WHERE link_id = ?`), string(link)); err != nil {
		return fmt.Errorf("release sale %s: %w", link, err)
	}
	return nil
}

// List returns the most recent sales, newest first.
func (l *SalesLedger) List(ctx context.Context, limit int) ([]*types.Sale, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.sql.QueryContext(ctx, l.db.rebind(`
		SELECT link_id, payment_id, buyer_id, item_id, amount_minor, created_at
		FROM sales ORDER BY created_at DESC, link_id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []*types.Sale
	for rows.Next() {
		var (
			link            string
			buyer, item, at int64
			sale            types.Sale
		)
		if err := rows.Scan(&link, &sale.PaymentID, &buyer, &item, &sale.AmountMinor, &at); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sale.LinkID = types.LinkID(link)
		sale.BuyerID = types.ActorID(buyer)
		sale.ItemID = types.ItemID(item)
		sale.CreatedAt = time.Unix(at, 0)
		sales = append(sales, &sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

// Summarize counts sales and sums amounts recorded at or after since.
func (l *SalesLedger) Summarize(ctx context.Context, since time.Time) (types.SalesSummary, error) {
	var sum types.SalesSummary
	err := l.db.sql.QueryRowContext(ctx, l.db.rebind(`
		SELECT COUNT(*), COALESCE(SUM(amount_minor), 0)
		FROM sales WHERE created_at >= ?`), since.Unix(),
	).Scan(&sum.Count, &sum.TotalMinor)
	if err != nil {
		return types.SalesSummary{}, fmt.Errorf("summarize sales: %w", err)
	}
	return sum, nil
}

// Prune deletes sales recorded before the given time.
func (l *SalesLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.sql.ExecContext(ctx, l.db.rebind(`DELETE FROM sales WHERE created_at < ?`), before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune sales: %w", err)
	}
	return res.RowsAffected()
}
