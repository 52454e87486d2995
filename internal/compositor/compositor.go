// Package compositor merges free and premium match results into the single
// ranked list shown to users.
package compositor

import (
	"sort"

	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

// Merge interleaves both tiers by ascending score, breaking ties by corpus
// position. Tier is never a sort key, so a premium item can outrank a free
// one and vice versa. Inputs are not modified.
func Merge(free, premium []model.MatchResult) []services.HitResult {
	hits := make([]services.HitResult, 0, len(free)+len(premium))
	for _, r := range free {
		hits = append(hits, toHit(r))
	}
	for _, r := range premium {
		hits = append(hits, toHit(r))
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Item.Position < hits[j].Item.Position
	})
	return hits
}

func toHit(r model.MatchResult) services.HitResult {
	hit := services.HitResult{
		Item:  r.Item,
		Score: r.Score,
		Tier:  r.Item.Tier,
	}
	if r.Item.Premium != nil {
		hit.CreditPrice = r.Item.Premium.CreditPrice
		hit.PageCount = r.Item.Premium.PageCount
	}
	return hit
}

// Counts returns how many hits belong to each tier.
func Counts(hits []services.HitResult) (free, premium int) {
	for _, h := range hits {
		if h.Tier == model.TierPremium {
			premium++
		} else {
			free++
		}
	}
	return free, premium
}

// Page returns the 1-based page of hits. Pages past the end are empty.
func Page(hits []services.HitResult, page, pageSize int) []services.HitResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return []services.HitResult{}
	}
	start := (page - 1) * pageSize
	if start >= len(hits) {
		return []services.HitResult{}
	}
	end := start + pageSize
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end]
}
