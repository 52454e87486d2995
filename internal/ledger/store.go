package ledger

import (
	"context"
	"time"

	"github.com/gcbaptista/notes-discovery/model"
)

// Store persists balances and redemption records. Each method is atomic on
// its own: Redeem either debits and records together or changes nothing.
//
// Redeem reports an unaffordable price as a RedeemInsufficientCredits result,
// not as an error; errors are reserved for storage failures.
type Store interface {
	Redeem(ctx context.Context, userID, itemID string, price int, at time.Time) (model.RedeemResult, error)
	Balance(ctx context.Context, userID string) (int, error)
	OpenAccount(ctx context.Context, userID string, openingBalance int) (model.CreditAccount, error)
	Redemptions(ctx context.Context, userID string) ([]model.RedemptionRecord, error)
	// Redemption returns the record of userID's unlock of itemID, or nil if
	// there is none.
	Redemption(ctx context.Context, userID, itemID string) (*model.RedemptionRecord, error)
	Close() error
}
