package swap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/rewear/internal/metrics"
	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
)

// Service runs swap and item lifecycle operations as single transactions.
type Service struct {
	DB      *sql.DB
	Metrics metrics.Recorder

	// Now is the clock used for completion timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewService returns a Service over db. rec may be nil.
func NewService(db *sql.DB, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{DB: db, Metrics: rec, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) recorder() metrics.Recorder {
	if s.Metrics == nil {
		return metrics.Nop{}
	}
	return s.Metrics
}

// RequestSwap validates and persists a new pending swap. For points swaps
// the requester's points are held in the same transaction.
func (s *Service) RequestSwap(ctx context.Context, r Request) (*model.Swap, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	requested, err := store.GetItem(ctx, tx, r.ItemRequestedID)
	if err != nil {
		return nil, err
	}
	requester, err := store.GetUser(ctx, tx, r.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, model.NotFound("user")
	}
	var offered *model.Item
	if r.Type == model.SwapTypeDirect && r.ItemOfferedID != "" {
		if offered, err = store.GetItem(ctx, tx, r.ItemOfferedID); err != nil {
			return nil, err
		}
	}

	if err := Check(r, requested, requester, offered); err != nil {
		return nil, err
	}

	sw := NewSwap(r)
	if err := store.InsertSwap(ctx, tx, sw); err != nil {
		return nil, err
	}
	if sw.PointsUsed > 0 {
		// The guarded debit fails if a concurrent request already spent the balance.
		if _, err := store.AdjustPoints(ctx, tx, r.RequesterID, -sw.PointsUsed, model.LedgerSwapHold, sw.ID); err != nil {
			return nil, err
		}
	}

	detail, err := store.GetSwapDetail(ctx, tx, sw.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing swap request: %w", err)
	}

	rec := s.recorder()
	rec.RecordSwapRequested(string(sw.Type))
	if sw.PointsUsed > 0 {
		rec.RecordPointsMoved(string(model.LedgerSwapHold), sw.PointsUsed)
	}
	return detail, nil
}

// Accept accepts a pending swap on behalf of the requested item's owner.
func (s *Service) Accept(ctx context.Context, swapID, actorID string) (*model.Swap, error) {
	return s.transition(ctx, swapID, ActionAccept, actorID)
}

// Reject rejects a pending swap on behalf of the requested item's owner.
func (s *Service) Reject(ctx context.Context, swapID, actorID string) (*model.Swap, error) {
	return s.transition(ctx, swapID, ActionReject, actorID)
}

// Cancel cancels a pending swap on behalf of its requester.
func (s *Service) Cancel(ctx context.Context, swapID, actorID string) (*model.Swap, error) {
	return s.transition(ctx, swapID, ActionCancel, actorID)
}

func (s *Service) transition(ctx context.Context, swapID string, action Action, actorID string) (*model.Swap, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	sw, err := store.GetSwap(ctx, tx, swapID)
	if err != nil {
		return nil, err
	}
	if sw == nil {
		return nil, model.NotFound("swap")
	}

	out, err := s.settle(ctx, tx, sw, action, actorID)
	if err != nil {
		return nil, err
	}
	outcomes := []*Outcome{out}

	// Swapped items can never be accepted again, so the other pending
	// swaps on them are withdrawn and their held points refunded.
	if action == ActionAccept {
		for _, ch := range out.Items {
			withdrawn, err := s.withdrawPending(ctx, tx, ch.ItemID)
			if err != nil {
				return nil, err
			}
			outcomes = append(outcomes, withdrawn...)
		}
	}

	detail, err := store.GetSwapDetail(ctx, tx, swapID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing swap %s: %w", action, err)
	}
	for _, o := range outcomes {
		s.recordOutcome(o)
	}
	return detail, nil
}

// settle loads the parties of sw, computes the outcome and writes it
// through q. The status write is a compare-and-swap on pending, so it
// goes first and nothing else is written if another transition won.
func (s *Service) settle(ctx context.Context, q store.Querier, sw *model.Swap, action Action, actorID string) (*Outcome, error) {
	p, err := loadParties(ctx, q, sw)
	if err != nil {
		return nil, err
	}

	out, err := Settle(p, action, actorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := store.TransitionSwap(ctx, q, sw.ID, out.Status, out.CompletedAt); err != nil {
		return nil, err
	}
	for _, ch := range out.Items {
		if err := store.UpdateItemStatus(ctx, q, ch.ItemID, ch.Status, nil); err != nil {
			return nil, err
		}
	}
	for _, m := range out.Points {
		if _, err := store.AdjustPoints(ctx, q, m.UserID, m.Delta, m.Reason, sw.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadParties(ctx context.Context, q store.Querier, sw *model.Swap) (Parties, error) {
	p := Parties{Swap: sw}
	var err error

	if p.ItemRequested, err = store.GetItem(ctx, q, sw.ItemRequestedID); err != nil {
		return p, err
	}
	if p.ItemRequested == nil {
		return p, model.NotFound("item")
	}
	if sw.ItemOfferedID != "" {
		if p.ItemOffered, err = store.GetItem(ctx, q, sw.ItemOfferedID); err != nil {
			return p, err
		}
	}
	if p.Requester, err = store.GetUser(ctx, q, sw.RequesterID); err != nil {
		return p, err
	}
	if p.Owner, err = store.GetUser(ctx, q, p.ItemRequested.OwnerID); err != nil {
		return p, err
	}
	return p, nil
}

// withdrawPending cancels every pending swap involving itemID with refunds.
func (s *Service) withdrawPending(ctx context.Context, q store.Querier, itemID string) ([]*Outcome, error) {
	pending, err := store.ListPendingSwapsForItem(ctx, q, itemID)
	if err != nil {
		return nil, err
	}

	var outcomes []*Outcome
	for i := range pending {
		out, err := s.settle(ctx, q, &pending[i], ActionWithdraw, "")
		if err != nil {
			return nil, fmt.Errorf("withdrawing swap %s: %w", pending[i].ID, err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (s *Service) recordOutcome(out *Outcome) {
	rec := s.recorder()
	rec.RecordSwapSettled(string(out.Status))
	for _, m := range out.Points {
		rec.RecordPointsMoved(string(m.Reason), m.Delta)
	}
}
