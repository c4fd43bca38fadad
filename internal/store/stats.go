package store

import (
	"context"
	"fmt"

	"github.com/erazemk/rewear/internal/model"
)

// GetStats counts users, items and swaps for the admin dashboard.
func GetStats(ctx context.Context, q Querier) (*model.Stats, error) {
	s := &model.Stats{}
	err := q.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM items),
		   (SELECT COUNT(*) FROM items WHERE is_approved = 0 AND status = ?),
		   (SELECT COUNT(*) FROM items WHERE is_approved = 1 AND status = ?),
		   (SELECT COUNT(*) FROM swaps),
		   (SELECT COUNT(*) FROM swaps WHERE status IN (?, ?))`,
		model.ItemStatusPending, model.ItemStatusAvailable,
		model.SwapStatusAccepted, model.SwapStatusCompleted,
	).Scan(&s.TotalUsers, &s.TotalItems, &s.PendingItems, &s.ActiveItems, &s.TotalSwaps, &s.CompletedSwaps)
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	return s, nil
}
