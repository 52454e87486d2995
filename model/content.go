// Package model defines the normalized content records the discovery engine
// searches over, the filter selection callers submit, and the ledger records.
package model

import "strings"

// Tier classifies a ContentItem as freely downloadable or credit-gated.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// FileKind is the normalized file type of a content item.
type FileKind string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindDOCX  FileKind = "docx"
	FileKindPPTX  FileKind = "pptx"
	FileKindImage FileKind = "image"
	FileKindOther FileKind = "other"
)

// FileKinds lists every valid FileKind.
var FileKinds = []FileKind{FileKindPDF, FileKindDOCX, FileKindPPTX, FileKindImage, FileKindOther}

// Valid reports whether k is one of the enumerated kinds.
func (k FileKind) Valid() bool {
	for _, known := range FileKinds {
		if k == known {
			return true
		}
	}
	return false
}

// FileKindFromExtension maps a file extension or file_type column value
// ("PDF", ".jpg", "pptx") to a FileKind. Unknown extensions map to FileKindOther.
func FileKindFromExtension(ext string) FileKind {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".") {
	case "pdf":
		return FileKindPDF
	case "doc", "docx":
		return FileKindDOCX
	case "ppt", "pptx":
		return FileKindPPTX
	case "jpg", "jpeg", "png", "gif", "webp", "image":
		return FileKindImage
	default:
		return FileKindOther
	}
}

// SubjectRef identifies the subject an item belongs to.
type SubjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PremiumTerms holds the fields that only exist for premium items.
type PremiumTerms struct {
	CreditPrice int `json:"credit_price"`
	PageCount   int `json:"page_count"`
}

// ContentItem is the uniform, read-only view of a free note or premium summary.
// Premium is non-nil if and only if Tier is TierPremium.
type ContentItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	Subject     SubjectRef    `json:"subject"`
	Author      string        `json:"author"`
	University  string        `json:"university,omitempty"` // empty means absent
	FileKind    FileKind      `json:"file_kind"`
	Downloads   int           `json:"download_count"`
	Rating      *float64      `json:"average_rating,omitempty"`
	Tier        Tier          `json:"tier"`
	Premium     *PremiumTerms `json:"premium,omitempty"`

	// Position is the item's index in corpus order, used to break score ties.
	Position int `json:"-"`
}

// IsPremium reports whether the item is credit-gated.
func (c ContentItem) IsPremium() bool {
	return c.Tier == TierPremium && c.Premium != nil
}

// CreditPrice returns the item's price and whether it has one.
func (c ContentItem) CreditPrice() (int, bool) {
	if !c.IsPremium() {
		return 0, false
	}
	return c.Premium.CreditPrice, true
}

// RatingOrZero returns the average rating, treating an absent rating as 0.
func (c ContentItem) RatingOrZero() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}

// MatchResult pairs an item with its relevance score, where 0 is a perfect
// match and higher is worse.
type MatchResult struct {
	Item  ContentItem `json:"item"`
	Score float64     `json:"score"`
}
