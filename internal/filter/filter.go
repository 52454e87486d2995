// Package filter narrows match results by the caller's facet selection.
package filter

import (
	"fmt"
	"math"
	"strings"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/model"
)

// predicate reports whether an item passes one facet.
type predicate func(model.ContentItem) bool

// Apply keeps the candidates that satisfy every set filter, in their input
// order. Unset filters impose nothing, so an empty selection returns the
// candidates unchanged. Apply never fails: values are checked by Validate.
func Apply(candidates []model.MatchResult, f model.SearchFilters) []model.MatchResult {
	predicates := compile(f)
	if len(predicates) == 0 {
		return candidates
	}

	kept := make([]model.MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if matchesAll(candidate.Item, predicates) {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// Matches reports whether a single item satisfies f.
func Matches(item model.ContentItem, f model.SearchFilters) bool {
	return matchesAll(item, compile(f))
}

func matchesAll(item model.ContentItem, predicates []predicate) bool {
	for _, p := range predicates {
		if !p(item) {
			return false
		}
	}
	return true
}

func compile(f model.SearchFilters) []predicate {
	var predicates []predicate

	if f.SubjectID != "" {
		subjectID := f.SubjectID
		predicates = append(predicates, func(item model.ContentItem) bool {
			return item.Subject.ID == subjectID
		})
	}

	if university := strings.ToLower(strings.TrimSpace(f.University)); university != "" {
		// An item without a university never matches a university filter
		predicates = append(predicates, func(item model.ContentItem) bool {
			return item.University != "" && strings.Contains(strings.ToLower(item.University), university)
		})
	}

	if f.FileKind != "" {
		kind := f.FileKind
		predicates = append(predicates, func(item model.ContentItem) bool {
			return item.FileKind == kind
		})
	}

	if f.MinRating != nil {
		minRating := *f.MinRating
		predicates = append(predicates, func(item model.ContentItem) bool {
			return item.RatingOrZero() >= minRating
		})
	}

	return predicates
}

// Validate checks f against the subject catalog. It returns a
// *errors.ConfigurationError for an unknown subject, an unknown file kind or
// a minimum rating outside [0,5]. A nil catalog skips the subject check.
func Validate(f model.SearchFilters, subjects []model.Subject) error {
	if f.SubjectID != "" && subjects != nil {
		known := false
		for _, s := range subjects {
			if s.ID == f.SubjectID {
				known = true
				break
			}
		}
		if !known {
			return internalErrors.NewConfigurationError("subject_id", fmt.Sprintf("unknown subject '%s'", f.SubjectID))
		}
	}

	if f.FileKind != "" && !f.FileKind.Valid() {
		return internalErrors.NewConfigurationError("file_kind",
			fmt.Sprintf("unknown file kind '%s' (must be one of %v)", f.FileKind, model.FileKinds))
	}

	if f.MinRating != nil {
		r := *f.MinRating
		if math.IsNaN(r) || r < 0 || r > 5 {
			return internalErrors.NewConfigurationError("min_rating", fmt.Sprintf("must be between 0 and 5, got %g", r))
		}
	}

	return nil
}
