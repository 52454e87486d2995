package source

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gcbaptista/notes-discovery/model"
)

// Seed is the YAML layout of a seed file.
type Seed struct {
	Subjects         []model.Subject              `yaml:"subjects"`
	Notes            []model.NoteRecord           `yaml:"notes"`
	PremiumSummaries []model.PremiumSummaryRecord `yaml:"premium_summaries"`
}

// StaticSource serves records held in memory, in the order they were given.
type StaticSource struct {
	mu   sync.RWMutex
	seed Seed
}

// NewStaticSource returns a source over seed.
func NewStaticSource(seed Seed) *StaticSource {
	return &StaticSource{seed: seed}
}

// LoadSeedFile reads a YAML seed file.
func LoadSeedFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return NewStaticSource(seed), nil
}

// Replace swaps the served records. Snapshots built earlier are unaffected.
func (s *StaticSource) Replace(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
}

func (s *StaticSource) FetchNotes(ctx context.Context) ([]model.NoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.NoteRecord(nil), s.seed.Notes...), nil
}

func (s *StaticSource) FetchPremiumSummaries(ctx context.Context) ([]model.PremiumSummaryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.PremiumSummaryRecord(nil), s.seed.PremiumSummaries...), nil
}

func (s *StaticSource) FetchSubjects(ctx context.Context) ([]model.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Subject(nil), s.seed.Subjects...), nil
}
