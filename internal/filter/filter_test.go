package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/model"
)

func rating(r float64) *float64 { return &r }

func candidate(id string, mutate func(*model.ContentItem)) model.MatchResult {
	it := model.ContentItem{ID: id, Title: id, Tags: []string{}, Tier: model.TierFree, FileKind: model.FileKindPDF}
	if mutate != nil {
		mutate(&it)
	}
	return model.MatchResult{Item: it}
}

func resultIDs(results []model.MatchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.ID
	}
	return out
}

func sampleCandidates() []model.MatchResult {
	return []model.MatchResult{
		candidate("pdf-high", func(it *model.ContentItem) {
			it.Rating = rating(4.8)
			it.Subject = model.SubjectRef{ID: "math", Name: "Mathematics"}
			it.University = "Universidade de Lisboa"
		}),
		candidate("docx-high", func(it *model.ContentItem) {
			it.FileKind = model.FileKindDOCX
			it.Rating = rating(4.9)
			it.Subject = model.SubjectRef{ID: "math", Name: "Mathematics"}
			it.University = "MIT"
		}),
		candidate("pdf-unrated", func(it *model.ContentItem) {
			it.Subject = model.SubjectRef{ID: "chem", Name: "Chemistry"}
		}),
		candidate("image-low", func(it *model.ContentItem) {
			it.FileKind = model.FileKindImage
			it.Rating = rating(2)
			it.Subject = model.SubjectRef{ID: "chem", Name: "Chemistry"}
			it.University = "Universidade do Porto"
		}),
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		filters model.SearchFilters
		want    []string
	}{
		{
			name:    "no filters keeps everything in order",
			filters: model.SearchFilters{},
			want:    []string{"pdf-high", "docx-high", "pdf-unrated", "image-low"},
		},
		{
			name:    "file kind and minimum rating",
			filters: model.SearchFilters{FileKind: model.FileKindPDF, MinRating: rating(4)},
			want:    []string{"pdf-high"},
		},
		{
			name:    "subject identity",
			filters: model.SearchFilters{SubjectID: "chem"},
			want:    []string{"pdf-unrated", "image-low"},
		},
		{
			name:    "university is a case-insensitive substring",
			filters: model.SearchFilters{University: "UNIVERSIDADE"},
			want:    []string{"pdf-high", "image-low"},
		},
		{
			name:    "university never matches an absent value",
			filters: model.SearchFilters{University: "lisboa"},
			want:    []string{"pdf-high"},
		},
		{
			name:    "absent rating counts as zero",
			filters: model.SearchFilters{MinRating: rating(0)},
			want:    []string{"pdf-high", "docx-high", "pdf-unrated", "image-low"},
		},
		{
			name:    "absent rating fails any positive minimum",
			filters: model.SearchFilters{MinRating: rating(0.5)},
			want:    []string{"pdf-high", "docx-high", "image-low"},
		},
		{
			name:    "minimum rating is inclusive",
			filters: model.SearchFilters{MinRating: rating(4.9)},
			want:    []string{"docx-high"},
		},
		{
			name:    "all filters must hold",
			filters: model.SearchFilters{SubjectID: "math", FileKind: model.FileKindDOCX, University: "mit", MinRating: rating(4)},
			want:    []string{"docx-high"},
		},
		{
			name:    "nothing passes",
			filters: model.SearchFilters{SubjectID: "math", FileKind: model.FileKindImage},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sampleCandidates(), tt.filters)
			assert.Equal(t, tt.want, resultIDs(got))
		})
	}
}

func TestApply_PreservesScores(t *testing.T) {
	candidates := sampleCandidates()
	candidates[0].Score = 0.05
	candidates[1].Score = 0.2

	got := Apply(candidates, model.SearchFilters{SubjectID: "math"})

	require.Len(t, got, 2)
	assert.Equal(t, 0.05, got[0].Score)
	assert.Equal(t, 0.2, got[1].Score)
}

// Applying filters one at a time, in any order, gives the same result as
// applying them together.
func TestApply_OrderIndependent(t *testing.T) {
	single := []model.SearchFilters{
		{SubjectID: "math"},
		{FileKind: model.FileKindPDF},
		{MinRating: rating(4)},
		{University: "lisboa"},
	}
	combined := model.SearchFilters{SubjectID: "math", FileKind: model.FileKindPDF, MinRating: rating(4), University: "lisboa"}
	want := resultIDs(Apply(sampleCandidates(), combined))

	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, order := range orders {
		got := sampleCandidates()
		for _, i := range order {
			got = Apply(got, single[i])
		}
		assert.Equal(t, want, resultIDs(got), "order %v", order)
	}
}

func TestMatches(t *testing.T) {
	it := sampleCandidates()[0].Item
	assert.True(t, Matches(it, model.SearchFilters{}))
	assert.True(t, Matches(it, model.SearchFilters{FileKind: model.FileKindPDF}))
	assert.False(t, Matches(it, model.SearchFilters{FileKind: model.FileKindDOCX}))
}

func TestValidate(t *testing.T) {
	subjects := []model.Subject{{ID: "math", Name: "Mathematics"}, {ID: "chem", Name: "Chemistry"}}

	tests := []struct {
		name      string
		filters   model.SearchFilters
		subjects  []model.Subject
		wantField string
	}{
		{name: "empty is valid", filters: model.SearchFilters{}, subjects: subjects},
		{name: "known values are valid", filters: model.SearchFilters{SubjectID: "math", FileKind: model.FileKindImage, MinRating: rating(5)}, subjects: subjects},
		{name: "unknown subject", filters: model.SearchFilters{SubjectID: "history"}, subjects: subjects, wantField: "subject_id"},
		{name: "nil catalog skips subject check", filters: model.SearchFilters{SubjectID: "history"}, subjects: nil},
		{name: "unknown file kind", filters: model.SearchFilters{FileKind: "xlsx"}, subjects: subjects, wantField: "file_kind"},
		{name: "rating above five", filters: model.SearchFilters{MinRating: rating(5.5)}, subjects: subjects, wantField: "min_rating"},
		{name: "negative rating", filters: model.SearchFilters{MinRating: rating(-1)}, subjects: subjects, wantField: "min_rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.filters, tt.subjects)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalErrors.ErrConfiguration))

			var cfgErr *internalErrors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}
