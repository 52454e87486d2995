package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/model"
)

// CreditAccountRow is the credit_accounts table.
type CreditAccountRow struct {
	UserID    string `gorm:"primaryKey;size:191"`
	Balance   int    `gorm:"not null;default:0;check:chk_credit_accounts_balance,balance >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CreditAccountRow) TableName() string { return "credit_accounts" }

// RedemptionRow is the redemptions table. The (user_id, item_id) unique index
// is what makes a redemption permanent and singular.
type RedemptionRow struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"size:191;not null;uniqueIndex:idx_redemptions_user_item,priority:1"`
	ItemID     string    `gorm:"size:191;not null;uniqueIndex:idx_redemptions_user_item,priority:2"`
	Price      int       `gorm:"not null"`
	RedeemedAt time.Time `gorm:"not null;index"`
}

func (RedemptionRow) TableName() string { return "redemptions" }

func (r RedemptionRow) toModel() model.RedemptionRecord {
	return model.RedemptionRecord{ID: r.ID, UserID: r.UserID, ItemID: r.ItemID, Price: r.Price, RedeemedAt: r.RedeemedAt}
}

var errBalanceChanged = errors.New("balance changed during redemption")

// GormStore keeps the ledger in a SQL database. Redeem runs in one
// transaction that locks the account row, so concurrent redemptions for the
// same user serialize in the database even across processes.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore migrates the ledger tables and returns the store.
func NewGormStore(db *gorm.DB, log *logger.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&CreditAccountRow{}, &RedemptionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return &GormStore{db: db, log: logger.OrNop(log)}, nil
}

// ensureAccount inserts a zero-balance account unless one exists.
func ensureAccount(tx *gorm.DB, userID string, openingBalance int) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&CreditAccountRow{UserID: userID, Balance: openingBalance}).Error
}

func (s *GormStore) Redeem(ctx context.Context, userID, itemID string, price int, at time.Time) (model.RedeemResult, error) {
	var result model.RedeemResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAccount(tx, userID, 0); err != nil {
			return err
		}

		var account CreditAccountRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&account).Error; err != nil {
			return err
		}

		var existing RedemptionRow
		err := tx.Where("user_id = ? AND item_id = ?", userID, itemID).Take(&existing).Error
		switch {
		case err == nil:
			rec := existing.toModel()
			result = model.RedeemResult{Status: model.RedeemAlreadyUnlocked, Balance: account.Balance, Record: &rec}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if account.Balance < price {
			result = model.RedeemResult{
				Status:    model.RedeemInsufficientCredits,
				Balance:   account.Balance,
				Shortfall: price - account.Balance,
			}
			return nil
		}

		// The balance guard keeps the decrement safe even where the driver
		// cannot lock rows.
		update := tx.Model(&CreditAccountRow{}).
			Where("user_id = ? AND balance >= ?", userID, price).
			Update("balance", gorm.Expr("balance - ?", price))
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected != 1 {
			return errBalanceChanged
		}

		row := RedemptionRow{
			ID:         uuid.New().String(),
			UserID:     userID,
			ItemID:     itemID,
			Price:      price,
			RedeemedAt: at,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		rec := row.toModel()
		result = model.RedeemResult{Status: model.RedeemUnlocked, Balance: account.Balance - price, Record: &rec}
		return nil
	})
	if err != nil {
		return model.RedeemResult{}, fmt.Errorf("redemption transaction failed: %w", err)
	}
	return result, nil
}

func (s *GormStore) Balance(ctx context.Context, userID string) (int, error) {
	db := s.db.WithContext(ctx)
	if err := ensureAccount(db, userID, 0); err != nil {
		return 0, fmt.Errorf("failed to create account: %w", err)
	}
	var account CreditAccountRow
	if err := db.Where("user_id = ?", userID).Take(&account).Error; err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return account.Balance, nil
}

func (s *GormStore) OpenAccount(ctx context.Context, userID string, openingBalance int) (model.CreditAccount, error) {
	db := s.db.WithContext(ctx)
	if err := ensureAccount(db, userID, openingBalance); err != nil {
		return model.CreditAccount{}, fmt.Errorf("failed to open account: %w", err)
	}
	var account CreditAccountRow
	if err := db.Where("user_id = ?", userID).Take(&account).Error; err != nil {
		return model.CreditAccount{}, fmt.Errorf("failed to read account: %w", err)
	}
	return model.CreditAccount{UserID: account.UserID, Balance: account.Balance}, nil
}

func (s *GormStore) Redemptions(ctx context.Context, userID string) ([]model.RedemptionRecord, error) {
	var rows []RedemptionRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("redeemed_at ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}

	records := make([]model.RedemptionRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toModel()
	}
	return records, nil
}

func (s *GormStore) Redemption(ctx context.Context, userID, itemID string) (*model.RedemptionRecord, error) {
	var row RedemptionRow
	err := s.db.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up redemption: %w", err)
	}
	rec := row.toModel()
	return &rec, nil
}

// Close is a no-op: the caller owns the *gorm.DB.
func (s *GormStore) Close() error {
	return nil
}
