// Package testutil provides fixtures shared by the package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gcbaptista/notes-discovery/internal/database"
	"github.com/gcbaptista/notes-discovery/internal/source"
	"github.com/gcbaptista/notes-discovery/model"
)

// SQLiteDB opens a private in-memory sqlite database that is closed when the
// test ends. A single connection keeps every query on the same database.
func SQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := database.Open(database.DriverSQLite, dsn, database.Options{Silent: true, MaxOpenConns: 1}, nil)
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func Float(f float64) *float64 { return &f }
func Int(i int) *int           { return &i }

// Seed is a small corpus covering both tiers, typos, every file kind in use
// and one invalid record per tier.
//
// Corpus order after normalization:
//
//	0 n-calc       free     "Calculus Notes"            pdf  4.8  Universidade de Lisboa
//	1 n-calc-typo  free     "Calclus Notess"            docx 4.9
//	2 n-chem       free     "Organic Chemistry"         png
//	3 p-calc       premium  "Calculus Exam Summary"     pdf  4.5  20 credits
//	4 p-chem       premium  "Organic Chemistry Summary" pdf       15 credits
func Seed() source.Seed {
	return source.Seed{
		Subjects: []model.Subject{{ID: "math", Name: "Mathematics"}, {ID: "chem", Name: "Chemistry"}},
		Notes: []model.NoteRecord{
			{
				ID: "n-calc", Title: "Calculus Notes", Tags: []string{"calc"},
				SubjectID: "math", SubjectName: "Mathematics", FileType: "pdf",
				AverageRating: Float(4.8), University: "Universidade de Lisboa",
			},
			{
				ID: "n-calc-typo", Title: "Calclus Notess",
				SubjectID: "math", SubjectName: "Mathematics", FileType: "docx", AverageRating: Float(4.9),
			},
			{
				ID: "n-chem", Title: "Organic Chemistry",
				SubjectID: "chem", SubjectName: "Chemistry", FileType: "png",
			},
			{ID: "", Title: "No id"},
		},
		PremiumSummaries: []model.PremiumSummaryRecord{
			{
				ID: "p-calc", Title: "Calculus Exam Summary", SubjectID: "math", SubjectName: "Mathematics",
				FileType: "pdf", CreditPrice: Int(20), AverageRating: Float(4.5), PageCount: 14,
			},
			{
				ID: "p-chem", Title: "Organic Chemistry Summary", SubjectID: "chem", SubjectName: "Chemistry",
				FileType: "pdf", CreditPrice: Int(15), PageCount: 9,
			},
			{ID: "p-broken", Title: "No price"},
		},
	}
}
