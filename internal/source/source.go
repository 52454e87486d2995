// Package source reads free notes, premium summaries and the subject catalog
// from the portal's content store.
package source

import (
	"context"

	"github.com/gcbaptista/notes-discovery/model"
)

// ContentSource is the read-only boundary to the content collaborator.
// Implementations must honor ctx cancellation.
type ContentSource interface {
	FetchNotes(ctx context.Context) ([]model.NoteRecord, error)
	FetchPremiumSummaries(ctx context.Context) ([]model.PremiumSummaryRecord, error)
	FetchSubjects(ctx context.Context) ([]model.Subject, error)
}
