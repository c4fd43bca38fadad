package swap

import (
	"context"
	"fmt"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
)

// Decision is an admin moderation decision on a listing.
type Decision string

// Moderation decisions.
const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionRemove  Decision = "remove"
)

// DeleteItem deletes an item on behalf of its owner. Pending swaps that
// request or offer the item are withdrawn first. An item referenced by swap
// history is marked removed instead of deleted. It reports whether the row
// was actually deleted.
func (s *Service) DeleteItem(ctx context.Context, itemID, actorID string) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, model.NotFound("item")
	}
	if item.OwnerID != actorID {
		return false, model.ErrNotAuthorized
	}

	outcomes, err := s.withdrawPending(ctx, tx, itemID)
	if err != nil {
		return false, err
	}

	refs, err := store.CountSwapsForItem(ctx, tx, itemID)
	if err != nil {
		return false, err
	}
	deleted := refs == 0
	if deleted {
		err = store.DeleteItem(ctx, tx, itemID)
	} else {
		err = store.UpdateItemStatus(ctx, tx, itemID, model.ItemStatusRemoved, nil)
	}
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing item delete: %w", err)
	}
	for _, out := range outcomes {
		s.recordOutcome(out)
	}
	return deleted, nil
}

// Moderate applies an admin decision to an item. Approval and rejection
// decide items awaiting moderation; anything else fails with
// model.ErrNotAwaitingModeration. Removal takes any listing off the
// marketplace. Rejection and removal withdraw the item's pending swaps.
// A swapped item keeps its status, since it has already changed hands.
func (s *Service) Moderate(ctx context.Context, itemID string, d Decision) (*model.Item, error) {
	switch d {
	case DecisionApprove, DecisionReject, DecisionRemove:
	default:
		return nil, fmt.Errorf("unknown moderation decision %q", d)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NotFound("item")
	}

	awaiting := !item.IsApproved && item.Status == model.ItemStatusPending
	status, approved := model.ItemStatusRemoved, false
	switch d {
	case DecisionApprove:
		if !awaiting {
			return nil, model.ErrNotAwaitingModeration
		}
		status, approved = model.ItemStatusAvailable, true
	case DecisionReject:
		if !awaiting {
			return nil, model.ErrNotAwaitingModeration
		}
	}
	if item.Status == model.ItemStatusSwapped {
		status = item.Status
	}

	var outcomes []*Outcome
	if !approved {
		if outcomes, err = s.withdrawPending(ctx, tx, itemID); err != nil {
			return nil, err
		}
	}

	if err := store.UpdateItemStatus(ctx, tx, itemID, status, &approved); err != nil {
		return nil, err
	}
	if item, err = store.GetItem(ctx, tx, itemID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing moderation: %w", err)
	}
	s.recorder().RecordItemModerated(string(d))
	for _, out := range outcomes {
		s.recordOutcome(out)
	}
	return item, nil
}

// AdjustBalance applies an admin points adjustment through the ledger and
// returns the new balance.
func (s *Service) AdjustBalance(ctx context.Context, userID string, delta int) (int, error) {
	if delta == 0 {
		return 0, model.Invalid("delta", "adjustment must be non-zero")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	balance, err := store.AdjustPoints(ctx, tx, userID, delta, model.LedgerAdminAdjustment, "")
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing adjustment: %w", err)
	}
	s.recorder().RecordPointsMoved(string(model.LedgerAdminAdjustment), delta)
	return balance, nil
}
