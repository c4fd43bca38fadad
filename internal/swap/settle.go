package swap

import (
	"fmt"
	"time"

	"github.com/erazemk/rewear/internal/model"
)

// Action is a lifecycle transition applied to a pending swap.
type Action string

// Actions. Withdraw is the system cancellation used when an item leaves the
// marketplace through deletion or moderation; it has no actor check.
const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionWithdraw Action = "withdraw"
)

// Parties is everything a transition reads. ItemOffered is nil for points swaps.
type Parties struct {
	Swap          *model.Swap
	ItemRequested *model.Item
	ItemOffered   *model.Item
	Requester     *model.User
	Owner         *model.User
}

// PointsMove is one balance change produced by a transition.
type PointsMove struct {
	UserID string
	Delta  int
	Reason model.LedgerReason
}

// ItemChange is one item status change produced by a transition.
type ItemChange struct {
	ItemID string
	Status model.ItemStatus
}

// Outcome is the complete effect of a transition. Persisting it must be atomic.
type Outcome struct {
	Status      model.SwapStatus
	CompletedAt *time.Time
	Items       []ItemChange
	Points      []PointsMove
}

// Settle computes the outcome of applying action to p on behalf of actorID.
// It does not modify p.
//
// Points swaps hold the requester's points from the moment of the request,
// so accepting credits the owner and rejecting or cancelling refunds the
// requester. Direct swaps move no points.
func Settle(p Parties, action Action, actorID string, at time.Time) (*Outcome, error) {
	if p.Swap == nil || p.ItemRequested == nil {
		return nil, model.NotFound("swap")
	}
	if p.Swap.ItemRequestedID != p.ItemRequested.ID {
		return nil, fmt.Errorf("settling swap %s: requested item mismatch", p.Swap.ID)
	}
	ownerID := p.ItemRequested.OwnerID

	switch action {
	case ActionAccept, ActionReject:
		if actorID != ownerID {
			return nil, model.ErrNotAuthorized
		}
	case ActionCancel:
		if actorID != p.Swap.RequesterID {
			return nil, model.ErrNotAuthorized
		}
	case ActionWithdraw:
	default:
		return nil, fmt.Errorf("unknown swap action %q", action)
	}

	if p.Swap.Status != model.SwapStatusPending {
		return nil, model.ErrAlreadyProcessed
	}

	out := &Outcome{}
	switch action {
	case ActionAccept:
		if p.ItemRequested.Status != model.ItemStatusAvailable {
			return nil, model.ErrItemUnavailable
		}
		if p.Swap.ItemOfferedID != "" {
			if p.ItemOffered == nil || p.ItemOffered.Status != model.ItemStatusAvailable {
				return nil, model.ErrItemUnavailable
			}
		}

		done := at.UTC()
		out.Status = model.SwapStatusAccepted
		out.CompletedAt = &done
		out.Items = append(out.Items, ItemChange{p.ItemRequested.ID, model.ItemStatusSwapped})
		if p.Swap.ItemOfferedID != "" {
			out.Items = append(out.Items, ItemChange{p.ItemOffered.ID, model.ItemStatusSwapped})
		}
		if p.Swap.PointsUsed > 0 {
			out.Points = append(out.Points, PointsMove{ownerID, p.Swap.PointsUsed, model.LedgerSwapCredit})
		}

	case ActionReject, ActionCancel, ActionWithdraw:
		out.Status = model.SwapStatusCancelled
		if action == ActionReject {
			out.Status = model.SwapStatusRejected
		}
		if p.Swap.PointsUsed > 0 {
			out.Points = append(out.Points, PointsMove{p.Swap.RequesterID, p.Swap.PointsUsed, model.LedgerSwapRefund})
		}
	}
	return out, nil
}
