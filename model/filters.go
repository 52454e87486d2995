package model

// SearchFilters is the caller's facet selection. Zero values mean "unset";
// every set filter must hold for an item to be kept.
type SearchFilters struct {
	SubjectID  string   `json:"subject_id,omitempty" yaml:"subject_id"`
	University string   `json:"university,omitempty" yaml:"university"`
	FileKind   FileKind `json:"file_kind,omitempty" yaml:"file_kind"`
	MinRating  *float64 `json:"min_rating,omitempty" yaml:"min_rating"`
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return f.SubjectID == "" && f.University == "" && f.FileKind == "" && f.MinRating == nil
}
