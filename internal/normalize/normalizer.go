// Package normalize turns the content collaborator's free notes and premium
// summaries into one ordered slice of model.ContentItem.
package normalize

import (
	"strings"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/model"
)

const (
	maxRating = 5.0
	// maxTags mirrors the upload form's limit; extra tags are ignored.
	maxTags = 10
)

// Result is a normalized corpus plus the records that had to be dropped.
type Result struct {
	Items    []model.ContentItem
	Warnings []error // *errors.NormalizationError, one per dropped or repaired record
	Dropped  int     // source records left out of Items
}

// Normalize converts both batches into content items: free notes first, then
// premium summaries, each in source order. Records missing an id or title, or a
// premium record without a positive credit price, are dropped and reported as
// warnings; so is any record whose id was already seen.
func Normalize(notes []model.NoteRecord, summaries []model.PremiumSummaryRecord) Result {
	res := Result{
		Items:    make([]model.ContentItem, 0, len(notes)+len(summaries)),
		Warnings: make([]error, 0),
	}
	seen := make(map[string]bool, len(notes)+len(summaries))

	accept := func(item model.ContentItem) {
		if seen[item.ID] {
			res.Dropped++
			res.Warnings = append(res.Warnings,
				internalErrors.NewNormalizationError(string(item.Tier), item.ID, "duplicate id"))
			return
		}
		seen[item.ID] = true
		item.Position = len(res.Items)
		res.Items = append(res.Items, item)
	}

	for _, note := range notes {
		item, warnings, ok := normalizeNote(note)
		res.Warnings = append(res.Warnings, warnings...)
		if !ok {
			res.Dropped++
			continue
		}
		accept(item)
	}
	for _, summary := range summaries {
		item, warnings, ok := normalizeSummary(summary)
		res.Warnings = append(res.Warnings, warnings...)
		if !ok {
			res.Dropped++
			continue
		}
		accept(item)
	}

	return res
}

func normalizeNote(n model.NoteRecord) (model.ContentItem, []error, bool) {
	tier := string(model.TierFree)
	id := strings.TrimSpace(n.ID)
	if id == "" {
		return model.ContentItem{}, []error{internalErrors.NewNormalizationError(tier, "", "missing id")}, false
	}
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return model.ContentItem{}, []error{internalErrors.NewNormalizationError(tier, id, "missing title")}, false
	}

	rating, warnings := normalizeRating(tier, id, n.AverageRating)

	university := strings.TrimSpace(n.University)
	if university == "" {
		university = strings.TrimSpace(n.UploaderUniversity)
	}

	return model.ContentItem{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(n.Description),
		Tags:        normalizeTags(n.Tags),
		Subject:     model.SubjectRef{ID: strings.TrimSpace(n.SubjectID), Name: strings.TrimSpace(n.SubjectName)},
		Author:      strings.TrimSpace(strings.TrimSpace(n.UploaderFirstName) + " " + strings.TrimSpace(n.UploaderLastName)),
		University:  university,
		FileKind:    model.FileKindFromExtension(n.FileType),
		Downloads:   nonNegative(n.DownloadCount),
		Rating:      rating,
		Tier:        model.TierFree,
	}, warnings, true
}

func normalizeSummary(s model.PremiumSummaryRecord) (model.ContentItem, []error, bool) {
	tier := string(model.TierPremium)
	id := strings.TrimSpace(s.ID)
	if id == "" {
		return model.ContentItem{}, []error{internalErrors.NewNormalizationError(tier, "", "missing id")}, false
	}
	title := strings.TrimSpace(s.Title)
	if title == "" {
		return model.ContentItem{}, []error{internalErrors.NewNormalizationError(tier, id, "missing title")}, false
	}
	if s.CreditPrice == nil {
		return model.ContentItem{}, []error{internalErrors.NewNormalizationError(tier, id, "missing credit price")}, false
	}
	if *s.CreditPrice <= 0 {
		return model.ContentItem{}, []error{internalErrors.NewNormalizationError(tier, id, "credit price must be positive")}, false
	}

	rating, warnings := normalizeRating(tier, id, s.AverageRating)

	return model.ContentItem{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(s.Description),
		Tags:        normalizeTags(s.Tags),
		Subject:     model.SubjectRef{ID: strings.TrimSpace(s.SubjectID), Name: strings.TrimSpace(s.SubjectName)},
		Author:      strings.TrimSpace(s.AuthorName),
		University:  strings.TrimSpace(s.University),
		FileKind:    model.FileKindFromExtension(s.FileType),
		Downloads:   nonNegative(s.DownloadCount),
		Rating:      rating,
		Tier:        model.TierPremium,
		Premium: &model.PremiumTerms{
			CreditPrice: *s.CreditPrice,
			PageCount:   nonNegative(s.PageCount),
		},
	}, warnings, true
}

// normalizeRating keeps a missing rating absent and turns an out-of-range one
// into absent with a warning. The item itself is kept.
func normalizeRating(tier, id string, rating *float64) (*float64, []error) {
	if rating == nil {
		return nil, nil
	}
	r := *rating
	if r < 0 || r > maxRating || r != r {
		return nil, []error{internalErrors.NewNormalizationError(tier, id, "average rating out of range, treated as absent")}
	}
	return &r, nil
}

// normalizeTags trims tags and removes blanks and repeats. Never returns nil.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
