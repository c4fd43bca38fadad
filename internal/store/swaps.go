package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/rewear/internal/model"
)

const swapColumns = `s.id, s.requester_id, s.item_requested_id, s.item_offered_id, s.points_used,
	s.swap_type, s.status, s.message, s.created_at, s.updated_at, s.completed_at, u.name`

func scanSwap(row scanner) (*model.Swap, error) {
	s := &model.Swap{}
	var offered sql.NullString
	var requesterName string
	if err := row.Scan(&s.ID, &s.RequesterID, &s.ItemRequestedID, &offered, &s.PointsUsed,
		&s.Type, &s.Status, &s.Message, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt,
		&requesterName); err != nil {
		return nil, err
	}
	s.ItemOfferedID = offered.String
	s.Requester = &model.UserSummary{ID: s.RequesterID, Name: requesterName}
	return s, nil
}

// InsertSwap persists a new swap and assigns its ID and timestamps.
func InsertSwap(ctx context.Context, q Querier, s *model.Swap) error {
	s.ID = newID()
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt

	var offered sql.NullString
	if s.ItemOfferedID != "" {
		offered = sql.NullString{String: s.ItemOfferedID, Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO swaps (id, requester_id, item_requested_id, item_offered_id, points_used,
		                    swap_type, status, message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RequesterID, s.ItemRequestedID, offered, s.PointsUsed,
		s.Type, s.Status, s.Message, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating swap: %w", err)
	}
	return nil
}

// GetSwap returns a swap by ID with the requester summary but without item summaries.
func GetSwap(ctx context.Context, q Querier, id string) (*model.Swap, error) {
	s, err := scanSwap(q.QueryRowContext(ctx,
		`SELECT `+swapColumns+` FROM swaps s JOIN users u ON u.id = s.requester_id WHERE s.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting swap: %w", err)
	}
	return s, nil
}

// GetSwapDetail returns a swap populated with requester and item summaries.
func GetSwapDetail(ctx context.Context, q Querier, id string) (*model.Swap, error) {
	s, err := GetSwap(ctx, q, id)
	if err != nil || s == nil {
		return s, err
	}
	swaps := []model.Swap{*s}
	if err := populateSwaps(ctx, q, swaps); err != nil {
		return nil, err
	}
	return &swaps[0], nil
}

// TransitionSwap moves a pending swap to status. It is a compare-and-swap on
// the pending state: if the swap is no longer pending nothing is written and
// model.ErrAlreadyProcessed is returned.
func TransitionSwap(ctx context.Context, q Querier, id string, status model.SwapStatus, completedAt *time.Time) error {
	result, err := q.ExecContext(ctx,
		`UPDATE swaps SET status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, completedAt, now(), id, model.SwapStatusPending,
	)
	if err != nil {
		return fmt.Errorf("updating swap status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return model.ErrAlreadyProcessed
	}
	return nil
}

// ListSwapsByRequester returns swaps requested by a user, newest first.
func ListSwapsByRequester(ctx context.Context, q Querier, userID string) ([]model.Swap, error) {
	return listSwaps(ctx, q, `WHERE s.requester_id = ?`, 0, userID)
}

// ListPendingSwapsForOwner returns pending swaps targeting items owned by a user.
func ListPendingSwapsForOwner(ctx context.Context, q Querier, ownerID string) ([]model.Swap, error) {
	return listSwaps(ctx, q,
		`JOIN items i ON i.id = s.item_requested_id WHERE i.owner_id = ? AND s.status = ?`, 0,
		ownerID, model.SwapStatusPending,
	)
}

// ListPendingSwapsForItem returns pending swaps that request or offer an item.
func ListPendingSwapsForItem(ctx context.Context, q Querier, itemID string) ([]model.Swap, error) {
	return listSwaps(ctx, q,
		`WHERE (s.item_requested_id = ? OR s.item_offered_id = ?) AND s.status = ?`, 0,
		itemID, itemID, model.SwapStatusPending,
	)
}

// ListRecentSwaps returns the newest swaps across the platform.
func ListRecentSwaps(ctx context.Context, q Querier, limit int) ([]model.Swap, error) {
	return listSwaps(ctx, q, ``, limit)
}

// CountSwapsForItem returns how many swaps of any status reference an item.
func CountSwapsForItem(ctx context.Context, q Querier, itemID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swaps WHERE item_requested_id = ? OR item_offered_id = ?`,
		itemID, itemID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting swaps for item: %w", err)
	}
	return n, nil
}

// listSwaps runs a swap query with the given join/where clause and
// populates the results. A positive limit caps the number of rows.
func listSwaps(ctx context.Context, q Querier, clause string, limit int, args ...any) ([]model.Swap, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps s JOIN users u ON u.id = s.requester_id ` +
		clause + ` ORDER BY s.created_at DESC, s.rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing swaps: %w", err)
	}
	defer rows.Close()

	var swaps []model.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning swap: %w", err)
		}
		swaps = append(swaps, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing swaps: %w", err)
	}
	rows.Close()

	if err := populateSwaps(ctx, q, swaps); err != nil {
		return nil, err
	}
	return swaps, nil
}

// populateSwaps attaches item summaries to swaps in place.
func populateSwaps(ctx context.Context, q Querier, swaps []model.Swap) error {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range swaps {
		for _, id := range []string{s.ItemRequestedID, s.ItemOfferedID} {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	summaries, err := ItemSummaries(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range swaps {
		swaps[i].ItemRequested = summaries[swaps[i].ItemRequestedID]
		if swaps[i].ItemOfferedID != "" {
			swaps[i].ItemOffered = summaries[swaps[i].ItemOfferedID]
		}
	}
	return nil
}
