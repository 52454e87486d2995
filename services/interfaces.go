package services

import (
	"context"
	"time"

	"github.com/gcbaptista/notes-discovery/model"
)

// HitResult is one item in a search result page. Premium hits carry their
// price and page count; Unlocked is set when the searching user already
// redeemed the item.
type HitResult struct {
	Item        model.ContentItem `json:"item"`
	Score       float64           `json:"score"` // 0 is a perfect match
	Tier        model.Tier        `json:"tier"`
	CreditPrice int               `json:"credit_price,omitempty"`
	PageCount   int               `json:"page_count,omitempty"`
	Unlocked    bool              `json:"unlocked,omitempty"`
}

type SearchResult struct {
	Hits           []HitResult         `json:"hits"`
	Total          int                 `json:"total"`
	FreeTotal      int                 `json:"free_total"`
	PremiumTotal   int                 `json:"premium_total"`
	Page           int                 `json:"page"`
	PageSize       int                 `json:"page_size"`
	Took           int64               `json:"took"`     // milliseconds
	QueryId        string              `json:"query_id"` // unique UUID for this search query
	CorpusSize     int                 `json:"corpus_size"`
	DroppedItems   int                 `json:"dropped_items"`         // source records left out by normalization
	Degraded       bool                `json:"degraded"`              // the corpus could not be loaded; results are empty
	Warnings       []string            `json:"warnings,omitempty"`    // why the result is degraded
	AppliedFilters model.SearchFilters `json:"applied_filters"`       // filters that were applied
	Suggestions    []string            `json:"suggestions,omitempty"` // "did you mean" queries when nothing matched
}

type SearchQuery struct {
	QueryString string              `json:"query"`
	Filters     model.SearchFilters `json:"filters"`
	Page        int                 `json:"page,omitempty"`
	PageSize    int                 `json:"page_size,omitempty"`
	UserID      string              `json:"user_id,omitempty"` // Optional: marks premium hits this user has unlocked
}

// CorpusInfo describes the corpus snapshot searches currently run against.
type CorpusInfo struct {
	SnapshotID   string    `json:"snapshot_id"`
	BuiltAt      time.Time `json:"built_at"`
	Items        int       `json:"items"`
	FreeItems    int       `json:"free_items"`
	PremiumItems int       `json:"premium_items"`
	Subjects     int       `json:"subjects"`
	Dropped      int       `json:"dropped"`
	Degraded     bool      `json:"degraded"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// Searcher runs queries against the current corpus
type Searcher interface {
	Search(ctx context.Context, query SearchQuery) (SearchResult, error)
}

// CorpusManager controls the corpus snapshot lifecycle
type CorpusManager interface {
	Refresh(ctx context.Context) (CorpusInfo, error)
	CorpusInfo() CorpusInfo
}

// Ledger owns credit balances and redemption records
type Ledger interface {
	Redeem(ctx context.Context, userID, itemID string, price int) (model.RedeemResult, error)
	Balance(ctx context.Context, userID string) (int, error)
	OpenAccount(ctx context.Context, userID string, openingBalance int) (model.CreditAccount, error)
	Redemptions(ctx context.Context, userID string) ([]model.RedemptionRecord, error)
}
