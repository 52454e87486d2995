package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/notes-discovery/config"
	"github.com/gcbaptista/notes-discovery/model"
)

func newTestMatcher(t *testing.T, mutate func(*config.MatchSettings)) *Matcher {
	t.Helper()
	settings := config.Default().Match
	settings.ParallelThreshold = 0
	if mutate != nil {
		mutate(&settings)
	}
	m, err := New(settings, nil)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func item(id, title string, tags ...string) model.ContentItem {
	if tags == nil {
		tags = []string{}
	}
	return model.ContentItem{ID: id, Title: title, Tags: tags, Tier: model.TierFree}
}

func ids(results []model.MatchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.ID
	}
	return out
}

func TestMatch_TypoTolerantTitle(t *testing.T) {
	m := newTestMatcher(t, nil)
	corpus := []model.ContentItem{
		item("a", "Calculus Notes", "calc"),
		item("b", "Calclus Notess"),
	}

	results := m.Match("calculus", corpus)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"a", "b"}, ids(results))
	assert.Equal(t, 0.0, results[0].Score)
	assert.InDelta(t, 0.125, results[1].Score, 1e-9)
	assert.LessOrEqual(t, results[0].Score, results[1].Score)
}

func TestMatch_WeightsOrderFields(t *testing.T) {
	m := newTestMatcher(t, nil)
	bySubject := item("subject", "Linear Algebra")
	bySubject.Subject = model.SubjectRef{ID: "math", Name: "Calculus"}
	corpus := []model.ContentItem{bySubject, item("title", "Calculus")}

	results := m.Match("calculas", corpus)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"title", "subject"}, ids(results), "a title hit outranks the same typo in a low-weight field")
	assert.InDelta(t, 0.125, results[0].Score, 1e-9)
	assert.InDelta(t, 0.2838, results[1].Score, 1e-3)
}

func TestMatch_LowWeightFieldNeedsCloserMatch(t *testing.T) {
	m := newTestMatcher(t, nil)
	bySubject := item("subject", "Linear Algebra")
	bySubject.Subject = model.SubjectRef{ID: "math", Name: "Calculus"}
	corpus := []model.ContentItem{bySubject, item("title", "Calculus")}

	// Two substitutions: d = 0.25 is enough for the title but not for the subject.
	results := m.Match("kalkulus", corpus)

	require.Len(t, results, 1)
	assert.Equal(t, "title", results[0].Item.ID)
	assert.InDelta(t, 0.25, results[0].Score, 1e-9)
}

func TestMatch_TagsScoredIndividually(t *testing.T) {
	m := newTestMatcher(t, nil)
	corpus := []model.ContentItem{item("a", "Week 3", "exam prep", "linear algebra")}

	results := m.Match("algebra", corpus)

	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestMatch_AuthorAndDescription(t *testing.T) {
	m := newTestMatcher(t, nil)
	byAuthor := item("author", "Week 1")
	byAuthor.Author = "Ada Lovelace"
	byDescription := item("description", "Week 2")
	byDescription.Description = "Summary of thermodynamics lectures"
	corpus := []model.ContentItem{byAuthor, byDescription}

	assert.Equal(t, []string{"author"}, ids(m.Match("lovelace", corpus)))
	assert.Equal(t, []string{"description"}, ids(m.Match("Thermodynamics", corpus)))
}

func TestMatch_EmptyQueryReturnsEverything(t *testing.T) {
	m := newTestMatcher(t, nil)
	corpus := []model.ContentItem{item("a", "One"), item("b", "Two"), item("c", "Three")}

	for _, q := range []string{"", "   ", "?!"} {
		results := m.Match(q, corpus)
		require.Len(t, results, 3, "query %q", q)
		assert.Equal(t, []string{"a", "b", "c"}, ids(results))
		for _, r := range results {
			assert.Equal(t, 0.0, r.Score)
		}
	}
}

func TestMatch_NoMatchIsEmptyNotNil(t *testing.T) {
	m := newTestMatcher(t, nil)
	results := m.Match("zzzzzzzz", []model.ContentItem{item("a", "Calculus Notes")})
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results = m.Match("calculus", nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMatch_StableOnTies(t *testing.T) {
	m := newTestMatcher(t, nil)
	corpus := []model.ContentItem{
		item("first", "Organic Chemistry"),
		item("second", "Organic Chemistry"),
		item("third", "Organic Chemistry"),
	}

	results := m.Match("organic", corpus)
	assert.Equal(t, []string{"first", "second", "third"}, ids(results))
}

func TestMatch_ThresholdAndOrderProperties(t *testing.T) {
	corpus := []model.ContentItem{
		item("1", "Calculus Notes"),
		item("2", "Calclus Notess"),
		item("3", "Organic Chemistry", "chem", "lab"),
		item("4", "Linear Algebra Cheat Sheet", "matrices"),
		item("5", "Intro to Microeconomics"),
		item("6", "Physics 101: Mechanics", "kinematics"),
		item("7", "Calculo Diferencial"),
		item("8", "Statistics for Engineers", "probability"),
	}
	queries := []string{"calculus", "calc", "chemstry", "algebra", "physic", "micro economics", "stats", "xyz"}

	for _, threshold := range []float64{0.1, 0.3, 0.5, 1} {
		m := newTestMatcher(t, func(s *config.MatchSettings) { s.Threshold = threshold })
		for _, q := range queries {
			t.Run(fmt.Sprintf("%g/%s", threshold, q), func(t *testing.T) {
				results := m.Match(q, corpus)
				for i, r := range results {
					assert.Less(t, r.Score, threshold)
					assert.GreaterOrEqual(t, r.Score, 0.0)
					if i > 0 {
						assert.LessOrEqual(t, results[i-1].Score, r.Score)
					}
				}
			})
		}
	}
}

func TestMatch_StricterThresholdReturnsSubset(t *testing.T) {
	corpus := []model.ContentItem{
		item("a", "Calculus Notes"),
		item("b", "Calclus Notess"),
		item("c", "Kalkulus"),
	}
	loose := newTestMatcher(t, func(s *config.MatchSettings) { s.Threshold = 0.3 })
	strict := newTestMatcher(t, func(s *config.MatchSettings) { s.Threshold = 0.1 })

	assert.Equal(t, []string{"a", "b", "c"}, ids(loose.Match("calculus", corpus)))
	assert.Equal(t, []string{"a"}, ids(strict.Match("calculus", corpus)))
}

func TestMatch_ParallelMatchesSequential(t *testing.T) {
	titles := []string{"Calculus Notes", "Calclus Notess", "Organic Chemistry", "Linear Algebra", "Calculus II Summary"}
	corpus := make([]model.ContentItem, 0, 200)
	for i := 0; i < 200; i++ {
		corpus = append(corpus, item(fmt.Sprintf("item-%03d", i), titles[i%len(titles)]))
	}

	sequential := newTestMatcher(t, nil)
	parallel := newTestMatcher(t, func(s *config.MatchSettings) {
		s.ParallelThreshold = 16
		s.Workers = 4
	})
	require.NotNil(t, parallel.pool)

	for _, q := range []string{"calculus", "chemistry", "algebra", ""} {
		assert.Equal(t, sequential.Match(q, corpus), parallel.Match(q, corpus), "query %q", q)
	}
}

func TestMatchPrepared_EquivalentToMatch(t *testing.T) {
	m := newTestMatcher(t, nil)
	corpus := []model.ContentItem{item("a", "Calculus Notes"), item("b", "Calclus Notess")}
	prepared := Prepare(corpus)

	assert.Equal(t, m.Match("calculus", corpus), m.MatchPrepared("calculus", prepared))
}

func TestScore(t *testing.T) {
	m := newTestMatcher(t, nil)
	assert.Equal(t, 0.0, m.Score("", item("a", "Anything")))
	assert.Equal(t, 0.0, m.Score("CALCULUS", item("a", "Calculus Notes")))
	assert.Equal(t, 1.0, m.Score("zzzzzzzz", item("a", "Calculus Notes")))
}

func TestNew_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings config.MatchSettings
	}{
		{"zero threshold", config.MatchSettings{Threshold: 0}},
		{"threshold above one", config.MatchSettings{Threshold: 1.2}},
		{"zero weight", config.MatchSettings{Threshold: 0.3, FieldWeights: []config.FieldWeight{{Field: config.FieldTitle, Weight: 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.settings, nil)
			assert.Error(t, err)
		})
	}
}
