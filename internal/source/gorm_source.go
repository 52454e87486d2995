package source

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/model"
)

// Portal tables, as far as the engine reads them. The portal owns the
// schema; MigratePortalSchema exists for local databases and tests.

type SubjectRow struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"not null"`
}

func (SubjectRow) TableName() string { return "subjects" }

type ProfileRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	FirstName  string
	LastName   string
	University *string
}

func (ProfileRow) TableName() string { return "profiles" }

type NoteRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	Title         string
	Description   *string
	Tags          datatypes.JSON
	SubjectID     *string `gorm:"size:64;index"`
	UploadedBy    *string `gorm:"size:64"`
	University    *string
	FileType      *string
	DownloadCount int
	AverageRating *float64
	CreatedAt     time.Time `gorm:"index"`
}

func (NoteRow) TableName() string { return "notes" }

type PremiumSummaryRow struct {
	ID            string `gorm:"primaryKey;size:64"`
	Title         string
	Description   *string
	Tags          datatypes.JSON
	SubjectID     *string `gorm:"size:64;index"`
	AuthorID      *string `gorm:"size:64"`
	University    *string
	FileType      *string
	DownloadCount int
	AverageRating *float64
	CreditPrice   *int
	PageCount     int
	CreatedAt     time.Time `gorm:"index"`
}

func (PremiumSummaryRow) TableName() string { return "premium_summaries" }

// MigratePortalSchema creates the portal tables the engine reads.
func MigratePortalSchema(db *gorm.DB) error {
	return db.AutoMigrate(&SubjectRow{}, &ProfileRow{}, &NoteRow{}, &PremiumSummaryRow{})
}

// noteView and summaryView are the joined read shapes.
type noteView struct {
	ID                 string
	Title              string
	Description        string
	Tags               datatypes.JSON
	SubjectID          string
	SubjectName        string
	UploaderFirstName  string
	UploaderLastName   string
	UploaderUniversity string
	University         string
	FileType           string
	DownloadCount      int
	AverageRating      *float64
	CreatedAt          time.Time
}

type summaryView struct {
	ID            string
	Title         string
	Description   string
	Tags          datatypes.JSON
	SubjectID     string
	SubjectName   string
	AuthorName    string
	University    string
	FileType      string
	DownloadCount int
	AverageRating *float64
	CreditPrice   *int
	PageCount     int
	CreatedAt     time.Time
}

const noteColumns = `notes.id, COALESCE(notes.title, '') AS title, COALESCE(notes.description, '') AS description, notes.tags,
	COALESCE(notes.subject_id, '') AS subject_id, COALESCE(subjects.name, '') AS subject_name,
	COALESCE(profiles.first_name, '') AS uploader_first_name, COALESCE(profiles.last_name, '') AS uploader_last_name,
	COALESCE(profiles.university, '') AS uploader_university, COALESCE(notes.university, '') AS university,
	COALESCE(notes.file_type, '') AS file_type, notes.download_count, notes.average_rating, notes.created_at`

const summaryColumns = `premium_summaries.id, COALESCE(premium_summaries.title, '') AS title,
	COALESCE(premium_summaries.description, '') AS description, premium_summaries.tags,
	COALESCE(premium_summaries.subject_id, '') AS subject_id, COALESCE(subjects.name, '') AS subject_name,
	TRIM(COALESCE(profiles.first_name, '') || ' ' || COALESCE(profiles.last_name, '')) AS author_name,
	COALESCE(premium_summaries.university, '') AS university, COALESCE(premium_summaries.file_type, '') AS file_type,
	premium_summaries.download_count, premium_summaries.average_rating, premium_summaries.credit_price,
	premium_summaries.page_count, premium_summaries.created_at`

// GormSource reads the portal tables, newest content first.
type GormSource struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormSource(db *gorm.DB, log *logger.Logger) *GormSource {
	return &GormSource{db: db, log: logger.OrNop(log)}
}

func (s *GormSource) FetchNotes(ctx context.Context) ([]model.NoteRecord, error) {
	var rows []noteView
	err := s.db.WithContext(ctx).
		Table("notes").
		Select(noteColumns).
		Joins("LEFT JOIN profiles ON profiles.id = notes.uploaded_by").
		Joins("LEFT JOIN subjects ON subjects.id = notes.subject_id").
		Order("notes.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, internalErrors.NewSourceUnavailableError("fetch notes", err)
	}

	records := make([]model.NoteRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.NoteRecord{
			ID:                 row.ID,
			Title:              row.Title,
			Description:        row.Description,
			Tags:               s.decodeTags(row.ID, row.Tags),
			SubjectID:          row.SubjectID,
			SubjectName:        row.SubjectName,
			UploaderFirstName:  row.UploaderFirstName,
			UploaderLastName:   row.UploaderLastName,
			UploaderUniversity: row.UploaderUniversity,
			University:         row.University,
			FileType:           row.FileType,
			DownloadCount:      row.DownloadCount,
			AverageRating:      row.AverageRating,
			CreatedAt:          row.CreatedAt,
		})
	}
	return records, nil
}

func (s *GormSource) FetchPremiumSummaries(ctx context.Context) ([]model.PremiumSummaryRecord, error) {
	var rows []summaryView
	err := s.db.WithContext(ctx).
		Table("premium_summaries").
		Select(summaryColumns).
		Joins("LEFT JOIN profiles ON profiles.id = premium_summaries.author_id").
		Joins("LEFT JOIN subjects ON subjects.id = premium_summaries.subject_id").
		Order("premium_summaries.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, internalErrors.NewSourceUnavailableError("fetch premium summaries", err)
	}

	records := make([]model.PremiumSummaryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.PremiumSummaryRecord{
			ID:            row.ID,
			Title:         row.Title,
			Description:   row.Description,
			Tags:          s.decodeTags(row.ID, row.Tags),
			SubjectID:     row.SubjectID,
			SubjectName:   row.SubjectName,
			AuthorName:    row.AuthorName,
			University:    row.University,
			FileType:      row.FileType,
			DownloadCount: row.DownloadCount,
			AverageRating: row.AverageRating,
			CreditPrice:   row.CreditPrice,
			PageCount:     row.PageCount,
			CreatedAt:     row.CreatedAt,
		})
	}
	return records, nil
}

func (s *GormSource) FetchSubjects(ctx context.Context) ([]model.Subject, error) {
	var rows []SubjectRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, internalErrors.NewSourceUnavailableError("fetch subjects", err)
	}
	subjects := make([]model.Subject, len(rows))
	for i, row := range rows {
		subjects[i] = model.Subject{ID: row.ID, Name: row.Name}
	}
	return subjects, nil
}

// decodeTags reads a JSON array of strings. Malformed tags are logged and
// treated as no tags; the record itself is still served.
func (s *GormSource) decodeTags(id string, raw datatypes.JSON) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		s.log.Warn("Ignoring malformed tags", "record_id", id, "error", err)
		return nil
	}
	return tags
}
