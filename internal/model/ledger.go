package model

import "time"

// LedgerEntry is one signed change to a user's points balance.
type LedgerEntry struct {
	ID        int64        `json:"id"`
	UserID    string       `json:"userId"`
	Delta     int          `json:"delta"`
	Reason    LedgerReason `json:"reason"`
	SwapID    string       `json:"swapId,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// LedgerReason says why a balance changed.
type LedgerReason string

// Ledger reasons.
const (
	LedgerSignup          LedgerReason = "signup"
	LedgerSwapHold        LedgerReason = "swap_hold"
	LedgerSwapCredit      LedgerReason = "swap_credit"
	LedgerSwapRefund      LedgerReason = "swap_refund"
	LedgerAdminAdjustment LedgerReason = "admin_adjustment"
)

// Stats summarizes platform activity for administrators.
type Stats struct {
	TotalUsers     int `json:"totalUsers"`
	TotalItems     int `json:"totalItems"`
	PendingItems   int `json:"pendingItems"`
	ActiveItems    int `json:"activeItems"`
	TotalSwaps     int `json:"totalSwaps"`
	CompletedSwaps int `json:"completedSwaps"`
}
