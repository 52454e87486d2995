// Package config provides configuration structures for the discovery engine.
// It defines matcher tuning, corpus lifecycle, ledger timeouts and the
// server/storage wiring, plus loading from a YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Searchable field names understood by the matcher.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldSubject     = "subject"
	FieldAuthor      = "author"
)

var knownFields = map[string]bool{
	FieldTitle:       true,
	FieldDescription: true,
	FieldTags:        true,
	FieldSubject:     true,
	FieldAuthor:      true,
}

// FieldWeight assigns an importance in (0,1] to a searchable field.
// A field with weight 1 is scored by raw distance; lower weights demand
// a closer match before the field can carry an item over the threshold.
type FieldWeight struct {
	Field  string  `json:"field" yaml:"field"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// MatchSettings tunes the fuzzy matcher.
type MatchSettings struct {
	Threshold         float64       `json:"threshold" yaml:"threshold"`                   // Acceptance threshold on the 0 (identical) .. 1 (unrelated) scale; items must score strictly below it
	FieldWeights      []FieldWeight `json:"field_weights" yaml:"field_weights"`           // Fields searched and their weights
	ParallelThreshold int           `json:"parallel_threshold" yaml:"parallel_threshold"` // Corpus size from which scoring fans out to the worker pool
	Workers           int           `json:"workers" yaml:"workers"`                       // Worker pool size
	MaxSuggestions    int           `json:"max_suggestions" yaml:"max_suggestions"`       // "Did you mean" terms returned when nothing matches
}

// CorpusSettings controls the snapshot lifecycle.
type CorpusSettings struct {
	LoadTimeout     time.Duration `json:"load_timeout" yaml:"load_timeout"`           // Upper bound for one rebuild from the content source
	TTL             time.Duration `json:"ttl" yaml:"ttl"`                             // How long a snapshot may be reused; 0 rebuilds on every search
	ResultCacheSize int           `json:"result_cache_size" yaml:"result_cache_size"` // Memoized search results per snapshot; 0 disables
	DefaultPageSize int           `json:"default_page_size" yaml:"default_page_size"`
	MaxPageSize     int           `json:"max_page_size" yaml:"max_page_size"`
}

// LedgerSettings bounds the entitlement ledger's waits.
type LedgerSettings struct {
	Driver         string        `json:"driver" yaml:"driver"`                   // "memory", "sqlite" or "postgres"
	DSN            string        `json:"dsn" yaml:"dsn"`                         // Database DSN for sqlite/postgres
	SnapshotPath   string        `json:"snapshot_path" yaml:"snapshot_path"`     // Gob snapshot for the memory driver; empty disables
	LockTimeout    time.Duration `json:"lock_timeout" yaml:"lock_timeout"`       // Wait for one account's serialization scope
	MaxLockRetries int           `json:"max_lock_retries" yaml:"max_lock_retries"` // Extra attempts after the first lock timeout
	RetryBackoff   time.Duration `json:"retry_backoff" yaml:"retry_backoff"`     // Pause between lock attempts, doubled each retry
	RedeemTimeout  time.Duration `json:"redeem_timeout" yaml:"redeem_timeout"`   // Upper bound for a whole redemption
}

// SourceSettings selects the content collaborator adapter.
type SourceSettings struct {
	Driver   string `json:"driver" yaml:"driver"`       // "seed" or "postgres"
	SeedFile string `json:"seed_file" yaml:"seed_file"` // YAML seed for the seed driver; empty starts with no content
	DSN      string `json:"dsn" yaml:"dsn"`
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Port            string `json:"port" yaml:"port"`
	LogMode         string `json:"log_mode" yaml:"log_mode"`
	MaxRequestBytes int64  `json:"max_request_bytes" yaml:"max_request_bytes"`
}

// JobsSettings configures background jobs.
type JobsSettings struct {
	MaxWorkers       int           `json:"max_workers" yaml:"max_workers"`
	Retention        time.Duration `json:"retention" yaml:"retention"`                 // Finished jobs older than this are dropped; 0 keeps them
	SnapshotInterval time.Duration `json:"snapshot_interval" yaml:"snapshot_interval"` // Period of the snapshot_save job; 0 saves only on shutdown
}

// AnalyticsSettings configures search analytics.
type AnalyticsSettings struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	DataFile  string `json:"data_file" yaml:"data_file"` // Gob file the events survive restarts in; empty keeps them in memory only
	MaxEvents int    `json:"max_events" yaml:"max_events"`
}

// Settings is the full engine configuration.
type Settings struct {
	Server    ServerSettings    `json:"server" yaml:"server"`
	Match     MatchSettings     `json:"match" yaml:"match"`
	Corpus    CorpusSettings    `json:"corpus" yaml:"corpus"`
	Ledger    LedgerSettings    `json:"ledger" yaml:"ledger"`
	Source    SourceSettings    `json:"source" yaml:"source"`
	Jobs      JobsSettings      `json:"jobs" yaml:"jobs"`
	Analytics AnalyticsSettings `json:"analytics" yaml:"analytics"`
}

// DefaultFieldWeights returns the default searchable fields: title highest,
// description and tags medium, subject and author low.
func DefaultFieldWeights() []FieldWeight {
	return []FieldWeight{
		{Field: FieldTitle, Weight: 1.0},
		{Field: FieldDescription, Weight: 0.7},
		{Field: FieldTags, Weight: 0.7},
		{Field: FieldSubject, Weight: 0.4},
		{Field: FieldAuthor, Weight: 0.4},
	}
}

// Default returns settings with every default applied.
func Default() Settings {
	var s Settings
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills zero values with defaults.
func (s *Settings) ApplyDefaults() {
	if s.Server.Port == "" {
		s.Server.Port = "8080"
	}
	if s.Server.LogMode == "" {
		s.Server.LogMode = "development"
	}
	if s.Server.MaxRequestBytes == 0 {
		s.Server.MaxRequestBytes = 1 << 20
	}

	if s.Match.Threshold == 0 {
		s.Match.Threshold = 0.3
	}
	if len(s.Match.FieldWeights) == 0 {
		s.Match.FieldWeights = DefaultFieldWeights()
	}
	if s.Match.ParallelThreshold == 0 {
		s.Match.ParallelThreshold = 512
	}
	if s.Match.Workers == 0 {
		s.Match.Workers = 8
	}
	if s.Match.MaxSuggestions == 0 {
		s.Match.MaxSuggestions = 3
	}

	if s.Corpus.LoadTimeout == 0 {
		s.Corpus.LoadTimeout = 5 * time.Second
	}
	if s.Corpus.DefaultPageSize == 0 {
		s.Corpus.DefaultPageSize = 20
	}
	if s.Corpus.MaxPageSize == 0 {
		s.Corpus.MaxPageSize = 100
	}
	if s.Corpus.ResultCacheSize == 0 {
		s.Corpus.ResultCacheSize = 256
	}

	if s.Ledger.Driver == "" {
		s.Ledger.Driver = "memory"
	}
	if s.Ledger.LockTimeout == 0 {
		s.Ledger.LockTimeout = 250 * time.Millisecond
	}
	if s.Ledger.MaxLockRetries == 0 {
		s.Ledger.MaxLockRetries = 2
	}
	if s.Ledger.RetryBackoff == 0 {
		s.Ledger.RetryBackoff = 25 * time.Millisecond
	}
	if s.Ledger.RedeemTimeout == 0 {
		s.Ledger.RedeemTimeout = 3 * time.Second
	}

	if s.Source.Driver == "" {
		s.Source.Driver = "seed"
	}

	if s.Jobs.MaxWorkers == 0 {
		s.Jobs.MaxWorkers = 2
	}
	if s.Jobs.Retention == 0 {
		s.Jobs.Retention = time.Hour
	}
	if s.Analytics.MaxEvents == 0 {
		s.Analytics.MaxEvents = 10000
	}
}

// Validate returns every problem found in the settings; an empty slice means valid.
func (s *Settings) Validate() []string {
	var problems []string

	if s.Match.Threshold <= 0 || s.Match.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("match.threshold must be in (0,1], got %g", s.Match.Threshold))
	}
	problems = append(problems, validateFieldWeights(s.Match.FieldWeights)...)
	if s.Match.Workers < 1 {
		problems = append(problems, "match.workers must be at least 1")
	}

	if s.Corpus.LoadTimeout <= 0 {
		problems = append(problems, "corpus.load_timeout must be positive")
	}
	if s.Corpus.TTL < 0 {
		problems = append(problems, "corpus.ttl cannot be negative")
	}
	if s.Corpus.DefaultPageSize > s.Corpus.MaxPageSize {
		problems = append(problems, "corpus.default_page_size cannot exceed corpus.max_page_size")
	}

	switch s.Ledger.Driver {
	case "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(s.Ledger.DSN) == "" {
			problems = append(problems, "ledger.dsn is required for driver '"+s.Ledger.Driver+"'")
		}
	default:
		problems = append(problems, "Invalid ledger.driver '"+s.Ledger.Driver+"' (must be 'memory', 'sqlite' or 'postgres')")
	}
	if s.Ledger.LockTimeout <= 0 || s.Ledger.RedeemTimeout <= 0 {
		problems = append(problems, "ledger timeouts must be positive")
	}
	if s.Ledger.MaxLockRetries < 0 {
		problems = append(problems, "ledger.max_lock_retries cannot be negative")
	}

	switch s.Source.Driver {
	case "seed":
	case "postgres":
		if strings.TrimSpace(s.Source.DSN) == "" {
			problems = append(problems, "source.dsn is required for driver 'postgres'")
		}
	default:
		problems = append(problems, "Invalid source.driver '"+s.Source.Driver+"' (must be 'seed' or 'postgres')")
	}

	if s.Jobs.MaxWorkers < 1 {
		problems = append(problems, "jobs.max_workers must be at least 1")
	}
	if s.Jobs.Retention < 0 || s.Jobs.SnapshotInterval < 0 {
		problems = append(problems, "jobs durations cannot be negative")
	}
	if s.Analytics.MaxEvents < 1 {
		problems = append(problems, "analytics.max_events must be at least 1")
	}

	return problems
}

// validateFieldWeights checks for unknown, duplicate and out-of-range field weights
func validateFieldWeights(weights []FieldWeight) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, fw := range weights {
		if !knownFields[fw.Field] {
			errors = append(errors, "Unknown searchable field '"+fw.Field+"' in match.field_weights")
		}
		if seen[fw.Field] {
			errors = append(errors, "Duplicate field '"+fw.Field+"' found in match.field_weights")
		}
		seen[fw.Field] = true
		if fw.Weight <= 0 || fw.Weight > 1 {
			errors = append(errors, fmt.Sprintf("Weight for field '%s' must be in (0,1], got %g", fw.Field, fw.Weight))
		}
	}

	return errors
}

// LoadFile reads YAML settings from path and applies defaults.
// Validation is left to the caller so flag overrides can be applied first.
func LoadFile(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's command line
	if err != nil {
		return s, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	s.ApplyDefaults()
	return s, nil
}
