// Package matcher ranks content items against a free-text query with
// typo-tolerant, field-weighted approximate matching.
//
// Each searchable field is scored by the normalized Damerau-Levenshtein
// distance between the folded query and the closest window of the folded
// field text. A field with weight w turns a distance d into
//
//	s = 1 - (1-d)^(1/w)
//
// so a weight of 1 keeps the raw distance and smaller weights push the score
// towards 1. An item's score is its best field score, and only items scoring
// strictly below the threshold are returned.
package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/gcbaptista/notes-discovery/config"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/tokenizer"
	"github.com/gcbaptista/notes-discovery/internal/typoutil"
	"github.com/gcbaptista/notes-discovery/model"
)

// PreparedItem is a content item with its searchable fields already folded.
// Build once per corpus snapshot with Prepare and reuse across queries.
type PreparedItem struct {
	Item   model.ContentItem
	fields map[string][][]rune
}

// Prepare folds the searchable text of every item. Tags are kept apart so
// each tag is scored on its own.
func Prepare(items []model.ContentItem) []PreparedItem {
	prepared := make([]PreparedItem, len(items))
	for i, item := range items {
		tags := make([][]rune, 0, len(item.Tags))
		for _, tag := range item.Tags {
			if folded := tokenizer.Fold(tag); folded != "" {
				tags = append(tags, []rune(folded))
			}
		}
		prepared[i] = PreparedItem{
			Item: item,
			fields: map[string][][]rune{
				config.FieldTitle:       foldedField(item.Title),
				config.FieldDescription: foldedField(item.Description),
				config.FieldTags:        tags,
				config.FieldSubject:     foldedField(item.Subject.Name),
				config.FieldAuthor:      foldedField(item.Author),
			},
		}
	}
	return prepared
}

func foldedField(text string) [][]rune {
	folded := tokenizer.Fold(text)
	if folded == "" {
		return nil
	}
	return [][]rune{[]rune(folded)}
}

type weightedField struct {
	name   string
	weight float64
	// maxDistance is the largest normalized distance that can still score
	// under the threshold; anything further is not worth finishing.
	maxDistance float64
}

// Matcher scores items against queries. It is safe for concurrent use.
type Matcher struct {
	threshold         float64
	fields            []weightedField
	parallelThreshold int
	workers           int
	pool              *ants.Pool
	log               *logger.Logger
}

// New builds a matcher from settings. A worker pool is started only when
// settings allow parallel scoring; call Close to release it.
func New(settings config.MatchSettings, log *logger.Logger) (*Matcher, error) {
	if settings.Threshold <= 0 || settings.Threshold > 1 {
		return nil, fmt.Errorf("match threshold must be in (0,1], got %g", settings.Threshold)
	}
	weights := settings.FieldWeights
	if len(weights) == 0 {
		weights = config.DefaultFieldWeights()
	}

	m := &Matcher{
		threshold:         settings.Threshold,
		parallelThreshold: settings.ParallelThreshold,
		workers:           settings.Workers,
		log:               logger.OrNop(log),
	}
	for _, fw := range weights {
		if fw.Weight <= 0 || fw.Weight > 1 {
			return nil, fmt.Errorf("weight for field '%s' must be in (0,1], got %g", fw.Field, fw.Weight)
		}
		m.fields = append(m.fields, weightedField{
			name:        fw.Field,
			weight:      fw.Weight,
			maxDistance: 1 - math.Pow(1-settings.Threshold, fw.Weight),
		})
	}

	if m.parallelThreshold > 0 && m.workers > 1 {
		pool, err := ants.NewPool(m.workers)
		if err != nil {
			return nil, fmt.Errorf("failed to create matcher pool: %w", err)
		}
		m.pool = pool
	}
	return m, nil
}

// Close releases the worker pool, if any.
func (m *Matcher) Close() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match ranks items against query. It is MatchPrepared over Prepare(items).
func (m *Matcher) Match(query string, items []model.ContentItem) []model.MatchResult {
	return m.MatchPrepared(query, Prepare(items))
}

// MatchPrepared returns every item scoring below the threshold, ordered by
// ascending score and then by input order. A blank query returns all items
// with score 0 in input order. No match yields an empty slice.
func (m *Matcher) MatchPrepared(query string, items []PreparedItem) []model.MatchResult {
	folded := tokenizer.Fold(query)
	if folded == "" {
		results := make([]model.MatchResult, len(items))
		for i, p := range items {
			results[i] = model.MatchResult{Item: p.Item, Score: 0}
		}
		return results
	}

	q := []rune(folded)
	scores := make([]float64, len(items))
	if m.pool != nil && len(items) >= m.parallelThreshold {
		m.scoreParallel(q, items, scores)
	} else {
		m.scoreRange(q, items, scores, 0, len(items))
	}

	results := make([]model.MatchResult, 0)
	for i, score := range scores {
		if score < m.threshold {
			results = append(results, model.MatchResult{Item: items[i].Item, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	return results
}

// Score returns the score of a single item against query.
func (m *Matcher) Score(query string, item model.ContentItem) float64 {
	folded := tokenizer.Fold(query)
	if folded == "" {
		return 0
	}
	return m.scoreItem([]rune(folded), Prepare([]model.ContentItem{item})[0])
}

func (m *Matcher) scoreRange(q []rune, items []PreparedItem, scores []float64, from, to int) {
	for i := from; i < to; i++ {
		scores[i] = m.scoreItem(q, items[i])
	}
}

// scoreParallel splits items into one chunk per worker. Each chunk writes only
// its own slots of scores, so no locking is needed.
func (m *Matcher) scoreParallel(q []rune, items []PreparedItem, scores []float64) {
	chunk := (len(items) + m.workers - 1) / m.workers
	var wg sync.WaitGroup

	for from := 0; from < len(items); from += chunk {
		to := from + chunk
		if to > len(items) {
			to = len(items)
		}
		start, end := from, to
		wg.Add(1)
		err := m.pool.Submit(func() {
			defer wg.Done()
			m.scoreRange(q, items, scores, start, end)
		})
		if err != nil {
			wg.Done()
			m.log.Warn("Matcher pool rejected task, scoring inline", "error", err, "from", start, "to", end)
			m.scoreRange(q, items, scores, start, end)
		}
	}
	wg.Wait()
}

func (m *Matcher) scoreItem(q []rune, item PreparedItem) float64 {
	best := 1.0
	for _, f := range m.fields {
		for _, text := range item.fields[f.name] {
			d := typoutil.NormalizedWindowDistance(q, text, f.maxDistance)
			if d >= 1 {
				continue
			}
			if s := weigh(d, f.weight); s < best {
				best = s
			}
			if best == 0 {
				return 0
			}
		}
	}
	return best
}

// weigh maps a normalized distance to a field score.
func weigh(d, weight float64) float64 {
	if d <= 0 {
		return 0
	}
	if weight >= 1 {
		return d
	}
	return 1 - math.Pow(1-d, 1/weight)
}

// Describe renders the configured fields, for startup logs.
func (m *Matcher) Describe() string {
	parts := make([]string, len(m.fields))
	for i, f := range m.fields {
		parts[i] = fmt.Sprintf("%s=%.2f", f.name, f.weight)
	}
	return fmt.Sprintf("threshold=%.2f fields[%s]", m.threshold, strings.Join(parts, " "))
}
