// Package swap implements swap request validation, the swap lifecycle and
// the points settlement that accompanies each transition.
package swap

import (
	"unicode/utf8"

	"github.com/erazemk/rewear/internal/model"
)

// Request is a parsed swap request from a user.
type Request struct {
	RequesterID     string
	ItemRequestedID string
	Type            model.SwapType
	ItemOfferedID   string
	PointsUsed      int
	Message         string
}

// Validate checks the request shape before any state is loaded.
func (r Request) Validate() error {
	if _, err := model.ParseSwapType(string(r.Type)); err != nil {
		return err
	}
	if r.ItemRequestedID == "" {
		return model.Invalid("itemRequestedId", "item requested is required")
	}
	if r.PointsUsed < 0 {
		return model.Invalid("pointsUsed", "points used must not be negative")
	}
	if utf8.RuneCountInString(r.Message) > model.MaxSwapMessageLength {
		return model.Invalid("message", "message must be at most 500 characters")
	}
	return nil
}

// Check runs the ordered eligibility checks against loaded state. offered
// is nil when the request names no offered item or it does not exist.
func Check(r Request, requested *model.Item, requester *model.User, offered *model.Item) error {
	if requested == nil || !requested.Browsable() {
		return model.ErrItemUnavailable
	}
	if requested.OwnerID == r.RequesterID {
		return model.ErrSelfSwap
	}

	switch r.Type {
	case model.SwapTypePoints:
		if r.PointsUsed < requested.PointsValue {
			return model.ErrInsufficientOfferedPoints
		}
		if requester == nil || requester.Points < r.PointsUsed {
			return model.ErrInsufficientBalance
		}
	case model.SwapTypeDirect:
		if r.ItemOfferedID == "" || offered == nil ||
			offered.OwnerID != r.RequesterID ||
			offered.Status != model.ItemStatusAvailable {
			return model.ErrInvalidOfferedItem
		}
	}
	return nil
}

// NewSwap builds the pending swap for a checked request. Direct swaps carry
// no points and points swaps carry no offered item.
func NewSwap(r Request) *model.Swap {
	s := &model.Swap{
		RequesterID:     r.RequesterID,
		ItemRequestedID: r.ItemRequestedID,
		Type:            r.Type,
		Status:          model.SwapStatusPending,
		Message:         r.Message,
	}
	if r.Type == model.SwapTypeDirect {
		s.ItemOfferedID = r.ItemOfferedID
	} else {
		s.PointsUsed = r.PointsUsed
	}
	return s
}
