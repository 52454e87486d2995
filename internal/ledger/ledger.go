// Package ledger owns user credit balances and the permanent record of which
// premium items each user has unlocked.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gcbaptista/notes-discovery/config"
	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/model"
)

// PriceCatalog resolves the configured credit price of a premium item.
// It returns an item-not-found error for unknown ids and a configuration
// error for items that are not premium.
type PriceCatalog interface {
	PremiumPrice(ctx context.Context, itemID string) (int, error)
}

// Ledger serializes operations per account on top of a Store.
type Ledger struct {
	store    Store
	catalog  PriceCatalog
	locks    *accountLocks
	settings config.LedgerSettings
	now      func() time.Time
	log      *logger.Logger
}

// New creates a ledger. A nil catalog skips the configured-price check,
// leaving only the positive-price rule.
func New(store Store, catalog PriceCatalog, settings config.LedgerSettings, log *logger.Logger) *Ledger {
	return &Ledger{
		store:    store,
		catalog:  catalog,
		locks:    newAccountLocks(settings.LockTimeout, settings.MaxLockRetries, settings.RetryBackoff),
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.OrNop(log).With("component", "ledger"),
	}
}

// SetCatalog replaces the price catalog. Used when the catalog is built after
// the ledger.
func (l *Ledger) SetCatalog(catalog PriceCatalog) {
	l.catalog = catalog
}

// Redeem debits price from userID's balance and records the unlock of itemID,
// both or neither.
//
// A repeated redemption of the same item returns RedeemAlreadyUnlocked and
// leaves the balance alone, without consulting the catalog. An unaffordable
// price returns a RedeemInsufficientCredits result together with an
// *errors.InsufficientCreditsError carrying the shortfall. A non-positive
// price, or one that differs from the item's configured price, is an
// *errors.ConfigurationError. If the account stays busy past the lock
// timeout and its retries, the error is a retryable
// *errors.LedgerContentionError.
func (l *Ledger) Redeem(ctx context.Context, userID, itemID string, price int) (model.RedeemResult, error) {
	start := time.Now()
	defer func() { redeemDuration.Observe(time.Since(start).Seconds()) }()

	if err := validateIDs(userID, itemID); err != nil {
		redemptionsTotal.WithLabelValues("rejected").Inc()
		return model.RedeemResult{}, err
	}
	if price <= 0 {
		redemptionsTotal.WithLabelValues("rejected").Inc()
		return model.RedeemResult{}, internalErrors.NewConfigurationError("price", fmt.Sprintf("must be positive, got %d", price))
	}

	ctx, cancel := context.WithTimeout(ctx, l.settings.RedeemTimeout)
	defer cancel()

	release, err := l.locks.acquire(ctx, userID)
	if err != nil {
		redemptionsTotal.WithLabelValues("contention").Inc()
		l.log.Warn("Account busy, redemption not attempted", "user_id", userID, "item_id", itemID, "error", err)
		return model.RedeemResult{}, err
	}
	defer release()

	// An existing unlock is answered before the catalog is consulted, so a
	// replay succeeds even after the item left the corpus or was repriced.
	existing, err := l.store.Redemption(ctx, userID, itemID)
	if err != nil {
		return model.RedeemResult{}, l.storeFailure(userID, itemID, err, start)
	}
	if existing != nil {
		balance, err := l.store.Balance(ctx, userID)
		if err != nil {
			return model.RedeemResult{}, l.storeFailure(userID, itemID, err, start)
		}
		redemptionsTotal.WithLabelValues(string(model.RedeemAlreadyUnlocked)).Inc()
		l.log.Debug("Item already unlocked", "user_id", userID, "item_id", itemID)
		return model.RedeemResult{Status: model.RedeemAlreadyUnlocked, Balance: balance, Record: existing}, nil
	}

	if l.catalog != nil {
		configured, err := l.catalog.PremiumPrice(ctx, itemID)
		if err != nil {
			redemptionsTotal.WithLabelValues("rejected").Inc()
			return model.RedeemResult{}, err
		}
		if configured != price {
			redemptionsTotal.WithLabelValues("rejected").Inc()
			return model.RedeemResult{}, internalErrors.NewConfigurationError("price",
				fmt.Sprintf("%d does not match the configured price %d of item '%s'", price, configured, itemID))
		}
	}

	result, err := l.store.Redeem(ctx, userID, itemID, price, l.now())
	if err != nil {
		return model.RedeemResult{}, l.storeFailure(userID, itemID, err, start)
	}

	redemptionsTotal.WithLabelValues(string(result.Status)).Inc()
	switch result.Status {
	case model.RedeemUnlocked:
		creditsDebitedTotal.Add(float64(price))
		l.log.Info("Item unlocked", "user_id", userID, "item_id", itemID, "price", price, "balance", result.Balance)
	case model.RedeemAlreadyUnlocked:
		l.log.Debug("Item already unlocked", "user_id", userID, "item_id", itemID)
	case model.RedeemInsufficientCredits:
		return result, internalErrors.NewInsufficientCreditsError(userID, itemID, price, result.Balance)
	}
	return result, nil
}

// Balance returns userID's balance, opening a zero-balance account on first use.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, internalErrors.NewValidationError("user_id", "cannot be empty")
	}
	return l.store.Balance(ctx, userID)
}

// OpenAccount creates userID's account with openingBalance. Opening an
// existing account returns it unchanged.
func (l *Ledger) OpenAccount(ctx context.Context, userID string, openingBalance int) (model.CreditAccount, error) {
	if strings.TrimSpace(userID) == "" {
		return model.CreditAccount{}, internalErrors.NewValidationError("user_id", "cannot be empty")
	}
	if openingBalance < 0 {
		return model.CreditAccount{}, internalErrors.NewValidationError("opening_balance", "cannot be negative")
	}

	release, err := l.locks.acquire(ctx, userID)
	if err != nil {
		return model.CreditAccount{}, err
	}
	defer release()

	account, err := l.store.OpenAccount(ctx, userID, openingBalance)
	if err != nil {
		return model.CreditAccount{}, err
	}
	l.log.Info("Account opened", "user_id", userID, "balance", account.Balance)
	return account, nil
}

// Redemptions lists userID's redemption records, oldest first.
func (l *Ledger) Redemptions(ctx context.Context, userID string) ([]model.RedemptionRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, internalErrors.NewValidationError("user_id", "cannot be empty")
	}
	return l.store.Redemptions(ctx, userID)
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// storeFailure records a failed store call. Running out of the redeem timeout
// is reported as retryable contention, but counted and logged as a timeout.
func (l *Ledger) storeFailure(userID, itemID string, err error, start time.Time) error {
	if errors.Is(err, context.DeadlineExceeded) {
		redemptionsTotal.WithLabelValues("timeout").Inc()
		l.log.Warn("Redemption timed out", "user_id", userID, "item_id", itemID,
			"elapsed", time.Since(start), "timeout", l.settings.RedeemTimeout, "error", err)
		return internalErrors.NewLedgerContentionError(userID, 1, time.Since(start))
	}
	redemptionsTotal.WithLabelValues("error").Inc()
	l.log.Error("Redemption failed", "user_id", userID, "item_id", itemID, "error", err)
	return err
}

func validateIDs(userID, itemID string) error {
	if strings.TrimSpace(userID) == "" {
		return internalErrors.NewValidationError("user_id", "cannot be empty")
	}
	if strings.TrimSpace(itemID) == "" {
		return internalErrors.NewValidationError("item_id", "cannot be empty")
	}
	return nil
}
