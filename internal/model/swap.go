package model

import "time"

// Swap is a request to exchange an item, either for another item or for points.
type Swap struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requesterId"`
	ItemRequestedID string     `json:"itemRequestedId"`
	ItemOfferedID   string     `json:"itemOfferedId,omitempty"`
	PointsUsed      int        `json:"pointsUsed"`
	Type            SwapType   `json:"swapType"`
	Status          SwapStatus `json:"status"`
	Message         string     `json:"message"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`

	// Joined fields (not always populated).
	Requester     *UserSummary `json:"requester,omitempty"`
	ItemRequested *ItemSummary `json:"itemRequested,omitempty"`
	ItemOffered   *ItemSummary `json:"itemOffered,omitempty"`
}

// SwapType selects how the requester pays for the requested item.
type SwapType string

// Swap types.
const (
	SwapTypeDirect SwapType = "direct"
	SwapTypePoints SwapType = "points"
)

// ParseSwapType validates a swap type string.
func ParseSwapType(s string) (SwapType, error) {
	switch t := SwapType(s); t {
	case SwapTypeDirect, SwapTypePoints:
		return t, nil
	}
	return "", Invalid("swapType", "invalid swap type")
}

// SwapStatus is the lifecycle state of a swap.
type SwapStatus string

// Swap statuses. SwapStatusCompleted is kept for stored data and filters
// but no transition produces it.
const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusAccepted  SwapStatus = "accepted"
	SwapStatusRejected  SwapStatus = "rejected"
	SwapStatusCompleted SwapStatus = "completed"
	SwapStatusCancelled SwapStatus = "cancelled"
)

// ParseSwapStatus validates a swap status string.
func ParseSwapStatus(s string) (SwapStatus, error) {
	switch st := SwapStatus(s); st {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected, SwapStatusCompleted, SwapStatusCancelled:
		return st, nil
	}
	return "", Invalid("status", "invalid swap status")
}

// Terminal reports whether no further transition is possible.
func (s SwapStatus) Terminal() bool {
	return s != SwapStatusPending
}

// MaxSwapMessageLength is the longest accepted swap message, in characters.
const MaxSwapMessageLength = 500
