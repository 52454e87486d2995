package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/persistence"
	"github.com/gcbaptista/notes-discovery/model"
)

// memorySnapshot is the gob layout of a MemoryStore.
type memorySnapshot struct {
	Balances    map[string]int
	Redemptions []model.RedemptionRecord
}

// MemoryStore keeps the ledger in process memory behind one mutex. When a
// snapshot path is set the state is loaded from it on start and written back
// by Save and Close.
type MemoryStore struct {
	mu          sync.Mutex
	balances    map[string]int
	redemptions map[string][]model.RedemptionRecord // by user, in redemption order

	snapshotPath string
	log          *logger.Logger
}

// NewMemoryStore creates a store, loading snapshotPath when it exists.
// An empty snapshotPath keeps everything in memory only.
func NewMemoryStore(snapshotPath string, log *logger.Logger) (*MemoryStore, error) {
	s := &MemoryStore{
		balances:     make(map[string]int),
		redemptions:  make(map[string][]model.RedemptionRecord),
		snapshotPath: snapshotPath,
		log:          logger.OrNop(log),
	}
	if snapshotPath == "" {
		return s, nil
	}

	var snap memorySnapshot
	err := persistence.LoadGob(snapshotPath, &snap)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Info("No ledger snapshot found, starting empty", "path", snapshotPath)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load ledger snapshot: %w", err)
	}

	for userID, balance := range snap.Balances {
		s.balances[userID] = balance
	}
	for _, rec := range snap.Redemptions {
		s.redemptions[rec.UserID] = append(s.redemptions[rec.UserID], rec)
	}
	s.log.Info("Ledger snapshot loaded", "path", snapshotPath, "accounts", len(snap.Balances), "redemptions", len(snap.Redemptions))
	return s, nil
}

func (s *MemoryStore) Redeem(ctx context.Context, userID, itemID string, price int, at time.Time) (model.RedeemResult, error) {
	if err := ctx.Err(); err != nil {
		return model.RedeemResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[userID]
	s.balances[userID] = balance

	for _, rec := range s.redemptions[userID] {
		if rec.ItemID == itemID {
			existing := rec
			return model.RedeemResult{Status: model.RedeemAlreadyUnlocked, Balance: balance, Record: &existing}, nil
		}
	}

	if balance < price {
		return model.RedeemResult{
			Status:    model.RedeemInsufficientCredits,
			Balance:   balance,
			Shortfall: price - balance,
		}, nil
	}

	rec := model.RedemptionRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		ItemID:     itemID,
		Price:      price,
		RedeemedAt: at,
	}
	s.balances[userID] = balance - price
	s.redemptions[userID] = append(s.redemptions[userID], rec)

	return model.RedeemResult{Status: model.RedeemUnlocked, Balance: balance - price, Record: &rec}, nil
}

func (s *MemoryStore) Balance(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		s.balances[userID] = 0
	}
	return balance, nil
}

// OpenAccount creates the account with openingBalance. An existing account
// is returned unchanged.
func (s *MemoryStore) OpenAccount(ctx context.Context, userID string, openingBalance int) (model.CreditAccount, error) {
	if err := ctx.Err(); err != nil {
		return model.CreditAccount{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[userID]
	if !ok {
		balance = openingBalance
		s.balances[userID] = balance
	}
	return model.CreditAccount{UserID: userID, Balance: balance}, nil
}

func (s *MemoryStore) Redemptions(ctx context.Context, userID string) ([]model.RedemptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.RedemptionRecord, len(s.redemptions[userID]))
	copy(records, s.redemptions[userID])
	return records, nil
}

func (s *MemoryStore) Redemption(ctx context.Context, userID, itemID string) (*model.RedemptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.redemptions[userID] {
		if rec.ItemID == itemID {
			existing := rec
			return &existing, nil
		}
	}
	return nil, nil
}

// Save writes the snapshot file. It is a no-op without a snapshot path.
func (s *MemoryStore) Save() error {
	if s.snapshotPath == "" {
		return nil
	}

	s.mu.Lock()
	snap := memorySnapshot{
		Balances:    make(map[string]int, len(s.balances)),
		Redemptions: make([]model.RedemptionRecord, 0),
	}
	for userID, balance := range s.balances {
		snap.Balances[userID] = balance
	}
	for _, records := range s.redemptions {
		snap.Redemptions = append(snap.Redemptions, records...)
	}
	s.mu.Unlock()

	if err := persistence.SaveGob(s.snapshotPath, snap); err != nil {
		return fmt.Errorf("failed to save ledger snapshot: %w", err)
	}
	s.log.Info("Ledger snapshot saved", "path", s.snapshotPath, "accounts", len(snap.Balances), "redemptions", len(snap.Redemptions))
	return nil
}

func (s *MemoryStore) Close() error {
	return s.Save()
}
