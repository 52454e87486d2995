package model

import "time"

// CreditAccount is a user's credit balance. Balance is never negative.
type CreditAccount struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

// RedemptionRecord marks that ItemID's price has been debited for UserID.
// At most one record exists per (UserID, ItemID).
type RedemptionRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ItemID     string    `json:"item_id"`
	Price      int       `json:"price"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// RedeemStatus is the outcome of a redemption attempt.
type RedeemStatus string

const (
	RedeemUnlocked            RedeemStatus = "unlocked"
	RedeemAlreadyUnlocked     RedeemStatus = "already_unlocked"
	RedeemInsufficientCredits RedeemStatus = "insufficient_credits"
)

// RedeemResult reports a redemption attempt. Shortfall is set only for
// RedeemInsufficientCredits; Record is set for both unlocked statuses.
type RedeemResult struct {
	Status    RedeemStatus      `json:"status"`
	Balance   int               `json:"balance"`
	Shortfall int               `json:"shortfall,omitempty"`
	Record    *RedemptionRecord `json:"record,omitempty"`
}
