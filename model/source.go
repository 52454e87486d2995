package model

import "time"

// Subject is a row of the subject catalog.
type Subject struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// NoteRecord is a free note as delivered by the content collaborator.
// Optional columns are pointers so "missing" can be told apart from zero.
type NoteRecord struct {
	ID                 string    `json:"id" yaml:"id"`
	Title              string    `json:"title" yaml:"title"`
	Description        string    `json:"description" yaml:"description"`
	Tags               []string  `json:"tags" yaml:"tags"`
	SubjectID          string    `json:"subject_id" yaml:"subject_id"`
	SubjectName        string    `json:"subject_name" yaml:"subject_name"`
	UploaderFirstName  string    `json:"uploader_first_name" yaml:"uploader_first_name"`
	UploaderLastName   string    `json:"uploader_last_name" yaml:"uploader_last_name"`
	UploaderUniversity string    `json:"uploader_university" yaml:"uploader_university"`
	University         string    `json:"university" yaml:"university"`
	FileType           string    `json:"file_type" yaml:"file_type"`
	DownloadCount      int       `json:"download_count" yaml:"download_count"`
	AverageRating      *float64  `json:"average_rating" yaml:"average_rating"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
}

// PremiumSummaryRecord is a credit-gated summary as delivered by the content
// collaborator.
type PremiumSummaryRecord struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Description   string    `json:"description" yaml:"description"`
	Tags          []string  `json:"tags" yaml:"tags"`
	SubjectID     string    `json:"subject_id" yaml:"subject_id"`
	SubjectName   string    `json:"subject_name" yaml:"subject_name"`
	AuthorName    string    `json:"author_name" yaml:"author_name"`
	University    string    `json:"university" yaml:"university"`
	FileType      string    `json:"file_type" yaml:"file_type"`
	DownloadCount int       `json:"download_count" yaml:"download_count"`
	AverageRating *float64  `json:"average_rating" yaml:"average_rating"`
	CreditPrice   *int      `json:"credit_price" yaml:"credit_price"`
	PageCount     int       `json:"page_count" yaml:"page_count"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}
