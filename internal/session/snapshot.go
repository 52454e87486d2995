package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/internal/matcher"
	"github.com/gcbaptista/notes-discovery/internal/normalize"
	"github.com/gcbaptista/notes-discovery/internal/tokenizer"
	"github.com/gcbaptista/notes-discovery/internal/typoutil"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

// minSuggestionTermLength keeps very short words out of the suggestion vocabulary.
const minSuggestionTermLength = 4

// snapshot is an immutable corpus. Searches read it without locking.
type snapshot struct {
	id       string
	builtAt  time.Time
	items    []model.ContentItem
	byID     map[string]model.ContentItem
	free     []matcher.PreparedItem
	premium  []matcher.PreparedItem
	subjects []model.Subject // nil when the catalog could not be loaded
	dropped  int
	degraded bool
	warnings []string
	typos    *typoutil.TypoFinder
}

func (s *snapshot) info() services.CorpusInfo {
	return services.CorpusInfo{
		SnapshotID:   s.id,
		BuiltAt:      s.builtAt,
		Items:        len(s.items),
		FreeItems:    len(s.free),
		PremiumItems: len(s.premium),
		Subjects:     len(s.subjects),
		Dropped:      s.dropped,
		Degraded:     s.degraded,
		Warnings:     s.warnings,
	}
}

func (s *snapshot) has(itemID string) bool {
	_, ok := s.byID[itemID]
	return ok
}

// fresh reports whether the snapshot may still serve a request at now.
func (s *snapshot) fresh(now time.Time, ttl time.Duration) bool {
	return !s.degraded && ttl > 0 && now.Sub(s.builtAt) < ttl
}

// buildSnapshot fetches all three collections concurrently and normalizes
// them. A failed or timed-out fetch yields an empty, degraded snapshot
// rather than an error.
func (s *Session) buildSnapshot(ctx context.Context) *snapshot {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Corpus.LoadTimeout)
	defer cancel()

	var (
		notes     []model.NoteRecord
		summaries []model.PremiumSummaryRecord
		subjects  []model.Subject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		notes, err = s.source.FetchNotes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		summaries, err = s.source.FetchPremiumSummaries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		subjects, err = s.source.FetchSubjects(gctx)
		return err
	})

	snap := &snapshot{
		id:      uuid.New().String(),
		builtAt: s.now(),
		byID:    map[string]model.ContentItem{},
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, internalErrors.ErrSourceUnavailable) {
			err = internalErrors.NewSourceUnavailableError("load corpus", err)
		}
		snap.degraded = true
		snap.items = []model.ContentItem{}
		snap.warnings = []string{err.Error()}
		corpusRebuildsTotal.WithLabelValues("failed").Inc()
		s.log.Error("Corpus load failed, serving empty results", "error", err)
		return snap
	}

	res := normalize.Normalize(notes, summaries)
	for _, w := range res.Warnings {
		s.log.Warn("Source record skipped or repaired", "error", w)
	}

	snap.items = res.Items
	snap.dropped = res.Dropped
	snap.subjects = subjects
	if snap.subjects == nil {
		snap.subjects = []model.Subject{}
	}

	var freeItems, premiumItems []model.ContentItem
	texts := make([]string, 0, len(res.Items)*2)
	for _, item := range res.Items {
		snap.byID[item.ID] = item
		if item.IsPremium() {
			premiumItems = append(premiumItems, item)
		} else {
			freeItems = append(freeItems, item)
		}
		texts = append(texts, item.Title, item.Subject.Name)
		texts = append(texts, item.Tags...)
	}
	snap.free = matcher.Prepare(freeItems)
	snap.premium = matcher.Prepare(premiumItems)
	snap.typos = typoutil.NewTypoFinder(tokenizer.Vocabulary(minSuggestionTermLength, texts...), s.log)

	corpusRebuildsTotal.WithLabelValues("ok").Inc()
	corpusItems.WithLabelValues(string(model.TierFree)).Set(float64(len(snap.free)))
	corpusItems.WithLabelValues(string(model.TierPremium)).Set(float64(len(snap.premium)))
	corpusDroppedItems.Set(float64(snap.dropped))
	s.log.Debug("Corpus snapshot built",
		"snapshot_id", snap.id,
		"free", len(snap.free),
		"premium", len(snap.premium),
		"dropped", snap.dropped,
	)
	return snap
}
