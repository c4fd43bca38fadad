package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/rewear/internal/model"
)

// AppendLedger records a balance change. Use AdjustPoints to change a
// balance; this only writes the audit row.
func AppendLedger(ctx context.Context, q Querier, userID string, delta int, reason model.LedgerReason, swapID string) error {
	var swap sql.NullString
	if swapID != "" {
		swap = sql.NullString{String: swapID, Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO points_ledger (user_id, delta, reason, swap_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, delta, string(reason), swap, now(),
	)
	if err != nil {
		return fmt.Errorf("recording ledger entry: %w", err)
	}
	return nil
}

// ListLedger returns a user's ledger entries, newest first.
func ListLedger(ctx context.Context, q Querier, userID string) ([]model.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, delta, reason, swap_id, created_at
		 FROM points_ledger WHERE user_id = ? ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var swapID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &swapID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		e.SwapID = swapID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LedgerBalance returns the sum of a user's ledger deltas. It equals the
// stored balance whenever every change went through AdjustPoints.
func LedgerBalance(ctx context.Context, q Querier, userID string) (int, error) {
	var sum int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM points_ledger WHERE user_id = ?`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("summing ledger: %w", err)
	}
	return sum, nil
}
