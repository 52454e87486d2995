package typoutil

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/tokenizer"
)

const (
	defaultMaxCacheSize = 1000
	defaultTimeLimit    = 20 * time.Millisecond
)

// TypoFinder proposes vocabulary terms close to a misspelled query word.
// The vocabulary is fixed at construction, so a finder belongs to one corpus snapshot.
type TypoFinder struct {
	vocabulary []string

	// Key: term + maxDistance, Value: ranked suggestions
	cache   map[string][]string
	cacheMu sync.RWMutex

	// Cache size limit to prevent memory bloat
	maxCacheSize int
	timeLimit    time.Duration
	log          *logger.Logger
}

// NewTypoFinder creates a typo finder over a snapshot's vocabulary.
func NewTypoFinder(vocabulary []string, log *logger.Logger) *TypoFinder {
	vocab := make([]string, len(vocabulary))
	copy(vocab, vocabulary)
	return &TypoFinder{
		vocabulary:   vocab,
		cache:        make(map[string][]string),
		maxCacheSize: defaultMaxCacheSize,
		timeLimit:    defaultTimeLimit,
		log:          logger.OrNop(log),
	}
}

// maxDistanceFor allows 1 typo from 4 runes and 2 typos from 7 runes.
func maxDistanceFor(term string) int {
	n := len([]rune(term))
	switch {
	case n >= 7:
		return 2
	case n >= 4:
		return 1
	default:
		return 0
	}
}

// Suggest returns up to maxResults "did you mean" rewrites of query, built by
// replacing each query word with its closest vocabulary term. Words already in
// the vocabulary are kept as they are. Returns an empty slice when no word could
// be corrected.
func (tf *TypoFinder) Suggest(query string, maxResults int) []string {
	words := tokenizer.Tokenize(query)
	if len(words) == 0 || maxResults <= 0 || len(tf.vocabulary) == 0 {
		return []string{}
	}

	// Per word candidates, best first
	candidates := make([][]string, len(words))
	corrected := false
	for i, word := range words {
		if tf.inVocabulary(word) {
			candidates[i] = []string{word}
			continue
		}
		typos := tf.GenerateTypos(word, maxDistanceFor(word), maxResults)
		if len(typos) == 0 {
			candidates[i] = []string{word}
			continue
		}
		candidates[i] = typos
		corrected = true
	}
	if !corrected {
		return []string{}
	}

	// The k-th suggestion uses each word's k-th best candidate, falling back to its best one
	suggestions := make([]string, 0, maxResults)
	seen := make(map[string]bool)
	for k := 0; k < maxResults; k++ {
		parts := make([]string, len(words))
		advanced := false
		for i, options := range candidates {
			if k < len(options) {
				parts[i] = options[k]
				advanced = advanced || k > 0
			} else {
				parts[i] = options[0]
			}
		}
		if k > 0 && !advanced {
			break
		}
		suggestion := strings.Join(parts, " ")
		if !seen[suggestion] {
			seen[suggestion] = true
			suggestions = append(suggestions, suggestion)
		}
	}
	return suggestions
}

func (tf *TypoFinder) inVocabulary(term string) bool {
	for _, v := range tf.vocabulary {
		if v == term {
			return true
		}
	}
	return false
}

// GenerateTypos finds vocabulary terms within maxDistance of term, closest first,
// with caching and a time limit.
func (tf *TypoFinder) GenerateTypos(term string, maxDistance int, maxResults int) []string {
	if maxDistance <= 0 || term == "" || len(tf.vocabulary) == 0 {
		return []string{}
	}

	// Check cache first
	cacheKey := term + "|" + strconv.Itoa(maxDistance)
	tf.cacheMu.RLock()
	if cached, exists := tf.cache[cacheKey]; exists {
		tf.cacheMu.RUnlock()
		if maxResults > 0 && len(cached) > maxResults {
			return cached[:maxResults]
		}
		return cached
	}
	tf.cacheMu.RUnlock()

	typos := tf.findTyposWithTimeLimit(term, maxDistance)

	// Cache result if cache isn't too large
	tf.cacheMu.Lock()
	if len(tf.cache) < tf.maxCacheSize {
		tf.cache[cacheKey] = typos
	}
	tf.cacheMu.Unlock()

	if maxResults > 0 && len(typos) > maxResults {
		return typos[:maxResults]
	}
	return typos
}

type rankedTerm struct {
	term     string
	distance int
}

// findTyposWithTimeLimit scans the vocabulary until it is exhausted or the time limit is hit
func (tf *TypoFinder) findTyposWithTimeLimit(term string, maxDistance int) []string {
	termLen := len([]rune(term))
	found := make([]rankedTerm, 0)
	startTime := time.Now()

	for i, vocabTerm := range tf.vocabulary {
		if time.Since(startTime) >= tf.timeLimit {
			tf.log.Warn("Typo search time limit reached",
				"term", term, "found", len(found), "unchecked", len(tf.vocabulary)-i)
			break
		}

		// Skip self
		if vocabTerm == term {
			continue
		}

		// Length-based early filtering: if length difference > maxDistance, skip
		lengthDiff := len([]rune(vocabTerm)) - termLen
		if lengthDiff < 0 {
			lengthDiff = -lengthDiff
		}
		if lengthDiff > maxDistance {
			continue
		}

		dist := CalculateDamerauLevenshteinDistanceWithLimit(term, vocabTerm, maxDistance)
		if dist > 0 && dist <= maxDistance {
			found = append(found, rankedTerm{term: vocabTerm, distance: dist})
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		return found[a].distance < found[b].distance
	})

	typos := make([]string, len(found))
	for i, rt := range found {
		typos[i] = rt.term
	}
	return typos
}
