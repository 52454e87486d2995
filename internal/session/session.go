// Package session runs searches end to end: it obtains a corpus snapshot,
// matches and filters each tier, merges the tiers and pages the result.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gcbaptista/notes-discovery/config"
	"github.com/gcbaptista/notes-discovery/internal/compositor"
	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/internal/filter"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/matcher"
	"github.com/gcbaptista/notes-discovery/internal/source"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

// EntitlementLookup lists the redemptions of a user. The ledger implements it.
type EntitlementLookup interface {
	Redemptions(ctx context.Context, userID string) ([]model.RedemptionRecord, error)
}

// Session is safe for concurrent use.
type Session struct {
	source   source.ContentSource
	matcher  *matcher.Matcher
	settings config.Settings
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex // guards current
	current *snapshot
	buildMu sync.Mutex // one rebuild at a time

	results      *expirable.LRU[string, services.SearchResult]
	entitlements EntitlementLookup
}

// New creates a session over src. No corpus is loaded until the first
// search or Refresh.
func New(src source.ContentSource, settings config.Settings, log *logger.Logger) (*Session, error) {
	log = logger.OrNop(log).With("component", "session")

	m, err := matcher.New(settings.Match, log)
	if err != nil {
		return nil, err
	}

	s := &Session{
		source:   src,
		matcher:  m,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
	// With no TTL every search gets a new snapshot, so cached results could never be reused
	if settings.Corpus.TTL > 0 && settings.Corpus.ResultCacheSize > 0 {
		s.results = expirable.NewLRU[string, services.SearchResult](settings.Corpus.ResultCacheSize, nil, settings.Corpus.TTL)
	}
	log.Info("Search session ready", "matcher", m.Describe(), "corpus_ttl", settings.Corpus.TTL)
	return s, nil
}

// SetEntitlements enables marking unlocked premium hits for searches that
// name a user.
func (s *Session) SetEntitlements(e EntitlementLookup) {
	s.entitlements = e
}

// Close releases the matcher's worker pool.
func (s *Session) Close() {
	s.matcher.Close()
}

// Search runs query against the current snapshot. A corpus that cannot be
// loaded produces an empty, degraded result and no error; invalid filters
// or paging produce an error and no result.
func (s *Session) Search(ctx context.Context, query services.SearchQuery) (services.SearchResult, error) {
	start := time.Now()
	defer func() { searchDuration.Observe(time.Since(start).Seconds()) }()

	page, pageSize, err := s.paging(query.Page, query.PageSize)
	if err != nil {
		searchesTotal.WithLabelValues("invalid").Inc()
		return services.SearchResult{}, err
	}

	snap := s.snapshot(ctx)
	if err := filter.Validate(query.Filters, snap.subjects); err != nil {
		searchesTotal.WithLabelValues("invalid").Inc()
		return services.SearchResult{}, err
	}

	key := cacheKey(snap.id, query.QueryString, query.Filters, page, pageSize)
	result, cached := s.cachedResult(key)
	if !cached {
		result = s.run(snap, query, page, pageSize)
		if s.results != nil && !snap.degraded {
			s.results.Add(key, result)
		}
	}

	result.QueryId = uuid.New().String()
	result.Took = time.Since(start).Milliseconds()
	if query.UserID != "" {
		result.Hits = s.markUnlocked(ctx, query.UserID, result.Hits)
	}

	switch {
	case result.Degraded:
		searchesTotal.WithLabelValues("degraded").Inc()
	case result.Total == 0:
		searchesTotal.WithLabelValues("empty").Inc()
	default:
		searchesTotal.WithLabelValues("ok").Inc()
	}
	return result, nil
}

// run is the uncached search pipeline.
func (s *Session) run(snap *snapshot, query services.SearchQuery, page, pageSize int) services.SearchResult {
	free := filter.Apply(s.matcher.MatchPrepared(query.QueryString, snap.free), query.Filters)
	premium := filter.Apply(s.matcher.MatchPrepared(query.QueryString, snap.premium), query.Filters)
	hits := compositor.Merge(free, premium)
	freeTotal, premiumTotal := compositor.Counts(hits)

	result := services.SearchResult{
		Hits:           compositor.Page(hits, page, pageSize),
		Total:          len(hits),
		FreeTotal:      freeTotal,
		PremiumTotal:   premiumTotal,
		Page:           page,
		PageSize:       pageSize,
		CorpusSize:     len(snap.items),
		DroppedItems:   snap.dropped,
		Degraded:       snap.degraded,
		Warnings:       snap.warnings,
		AppliedFilters: query.Filters,
	}

	if len(hits) == 0 && snap.typos != nil && strings.TrimSpace(query.QueryString) != "" {
		result.Suggestions = snap.typos.Suggest(query.QueryString, s.settings.Match.MaxSuggestions)
	}
	return result
}

func (s *Session) cachedResult(key string) (services.SearchResult, bool) {
	if s.results == nil {
		return services.SearchResult{}, false
	}
	result, ok := s.results.Get(key)
	if ok {
		resultCacheHitsTotal.Inc()
		return result, true
	}
	resultCacheMissesTotal.Inc()
	return services.SearchResult{}, false
}

// markUnlocked returns a copy of hits with Unlocked set on the premium items
// userID has redeemed. Lookup failures leave the hits unmarked.
func (s *Session) markUnlocked(ctx context.Context, userID string, hits []services.HitResult) []services.HitResult {
	if s.entitlements == nil || len(hits) == 0 {
		return hits
	}
	records, err := s.entitlements.Redemptions(ctx, userID)
	if err != nil {
		s.log.Warn("Could not load entitlements for search", "user_id", userID, "error", err)
		return hits
	}
	unlocked := make(map[string]bool, len(records))
	for _, r := range records {
		unlocked[r.ItemID] = true
	}

	marked := make([]services.HitResult, len(hits))
	copy(marked, hits)
	for i := range marked {
		if marked[i].Tier == model.TierPremium && unlocked[marked[i].Item.ID] {
			marked[i].Unlocked = true
		}
	}
	return marked
}

func (s *Session) paging(page, pageSize int) (int, int, error) {
	if page < 0 {
		return 0, 0, internalErrors.NewValidationError("page", "cannot be negative")
	}
	if pageSize < 0 {
		return 0, 0, internalErrors.NewValidationError("page_size", "cannot be negative")
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = s.settings.Corpus.DefaultPageSize
	}
	if pageSize > s.settings.Corpus.MaxPageSize {
		pageSize = s.settings.Corpus.MaxPageSize
	}
	return page, pageSize, nil
}

// snapshot returns the current snapshot while it is fresh, otherwise a
// rebuilt one. Concurrent callers share a single rebuild.
func (s *Session) snapshot(ctx context.Context) *snapshot {
	requested := s.now()

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil && cur.fresh(requested, s.settings.Corpus.TTL) {
		return cur
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	// Someone else may have rebuilt while we waited
	s.mu.Lock()
	cur = s.current
	s.mu.Unlock()
	if cur != nil && !cur.degraded && !cur.builtAt.Before(requested) {
		return cur
	}

	snap := s.buildSnapshot(ctx)
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return snap
}

// Refresh rebuilds the snapshot now, regardless of its age.
func (s *Session) Refresh(ctx context.Context) (services.CorpusInfo, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	snap := s.buildSnapshot(ctx)
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	if snap.degraded {
		return snap.info(), internalErrors.NewSourceUnavailableError("refresh corpus", fmt.Errorf("%s", strings.Join(snap.warnings, "; ")))
	}
	s.log.Info("Corpus refreshed", "snapshot_id", snap.id, "items", len(snap.items), "dropped", snap.dropped)
	return snap.info(), nil
}

// CorpusInfo describes the current snapshot without rebuilding it.
func (s *Session) CorpusInfo() services.CorpusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return services.CorpusInfo{}
	}
	return s.current.info()
}

// PremiumPrice returns the configured credit price of a premium item in the
// current corpus. The last healthy snapshot is reused when it holds the
// item; otherwise the corpus is rebuilt as for a search.
func (s *Session) PremiumPrice(ctx context.Context, itemID string) (int, error) {
	s.mu.Lock()
	snap := s.current
	s.mu.Unlock()
	if snap == nil || snap.degraded || !snap.has(itemID) {
		snap = s.snapshot(ctx)
	}
	if snap.degraded {
		return 0, internalErrors.NewSourceUnavailableError("price lookup", fmt.Errorf("%s", strings.Join(snap.warnings, "; ")))
	}
	item, ok := snap.byID[itemID]
	if !ok {
		return 0, internalErrors.NewItemNotFoundError(itemID)
	}
	price, ok := item.CreditPrice()
	if !ok {
		return 0, internalErrors.NewConfigurationError("item_id", fmt.Sprintf("item '%s' is free and cannot be redeemed", itemID))
	}
	return price, nil
}

func cacheKey(snapshotID, query string, f model.SearchFilters, page, pageSize int) string {
	minRating := "-"
	if f.MinRating != nil {
		minRating = fmt.Sprintf("%g", *f.MinRating)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d|%d",
		snapshotID, strings.TrimSpace(query), f.SubjectID, strings.ToLower(f.University), f.FileKind, minRating, page, pageSize)
}
