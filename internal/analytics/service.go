// Package analytics records searches and summarizes them for the dashboard.
package analytics

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/persistence"
	"github.com/gcbaptista/notes-discovery/internal/tokenizer"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

const (
	defaultMaxEvents  = 10000
	popularSearchSize = 10
)

// CorpusReporter reports the size of the searchable corpus.
type CorpusReporter interface {
	CorpusInfo() services.CorpusInfo
}

// Service keeps the most recent search events in memory.
type Service struct {
	mutex        sync.RWMutex
	events       []model.SearchEvent
	maxEvents    int
	corpus       CorpusReporter
	dataFilePath string // empty disables persistence
	dirty        bool
	log          *logger.Logger
	now          func() time.Time
}

// NewService creates an analytics service keeping at most maxEvents events.
// Events saved at dataFilePath by a previous run are loaded.
func NewService(corpus CorpusReporter, dataFilePath string, maxEvents int, log *logger.Logger) *Service {
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	s := &Service{
		events:       make([]model.SearchEvent, 0),
		maxEvents:    maxEvents,
		corpus:       corpus,
		dataFilePath: dataFilePath,
		log:          logger.OrNop(log).With("component", "analytics"),
		now:          time.Now,
	}

	if err := s.loadData(); err != nil {
		s.log.Warn("Failed to load analytics data", "path", dataFilePath, "error", err)
	}
	return s
}

// EventFromSearch builds the event for a completed search.
func EventFromSearch(query services.SearchQuery, result services.SearchResult, elapsed time.Duration) model.SearchEvent {
	var filters []string
	if query.Filters.SubjectID != "" {
		filters = append(filters, "subject_id")
	}
	if query.Filters.University != "" {
		filters = append(filters, "university")
	}
	if query.Filters.FileKind != "" {
		filters = append(filters, "file_kind")
	}
	if query.Filters.MinRating != nil {
		filters = append(filters, "min_rating")
	}
	return model.SearchEvent{
		Query:        query.QueryString,
		Filters:      filters,
		ResultCount:  result.Total,
		PremiumCount: result.PremiumTotal,
		ResponseTime: elapsed,
		Degraded:     result.Degraded,
	}
}

// TrackSearchEvent records a search, stamping it with the current time
func (s *Service) TrackSearchEvent(event model.SearchEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	event.Timestamp = s.now()
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > s.maxEvents {
		s.events = append([]model.SearchEvent(nil), s.events[len(s.events)-s.maxEvents:]...)
	}
	s.dirty = true
}

// EventCount returns the number of events held in memory
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// GetDashboardData summarizes the last 24 hours of searches
func (s *Service) GetDashboardData() model.AnalyticsDashboard {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)

	last24h := filterEventsByTimeRange(s.events, yesterday, now)
	previous24h := filterEventsByTimeRange(s.events, yesterday.Add(-24*time.Hour), yesterday)

	dashboard := model.AnalyticsDashboard{
		TotalSearches:            len(last24h),
		SearchesChangePercent:    calculateChangePercent(len(last24h), len(previous24h)),
		AvgResponseTime:          calculateAvgResponseTime(last24h),
		SearchPerformance24h:     getHourlyPerformance(last24h),
		PopularSearches:          getPopularSearches(last24h, func(model.SearchEvent) bool { return true }),
		ZeroResultSearches:       getPopularSearches(last24h, func(e model.SearchEvent) bool { return e.ResultCount == 0 && !e.Degraded }),
		FilterUsage:              getFilterUsage(last24h),
		ResponseTimeDistribution: getResponseTimeDistribution(last24h),
	}

	zero := 0
	for _, event := range last24h {
		if event.Degraded {
			dashboard.DegradedSearches++
		} else if event.ResultCount == 0 {
			zero++
		}
	}
	if len(last24h) > 0 {
		dashboard.ZeroResultRate = float64(zero) / float64(len(last24h)) * 100
	}
	if s.corpus != nil {
		dashboard.CorpusItems = s.corpus.CorpusInfo().Items
	}
	return dashboard
}

// filterEventsByTimeRange returns events in (start, end]
func filterEventsByTimeRange(events []model.SearchEvent, start, end time.Time) []model.SearchEvent {
	var filtered []model.SearchEvent
	for _, event := range events {
		if event.Timestamp.After(start) && !event.Timestamp.After(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime returns the mean response time in milliseconds
func calculateAvgResponseTime(events []model.SearchEvent) int64 {
	if len(events) == 0 {
		return 0
	}
	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

func getHourlyPerformance(events []model.SearchEvent) []model.SearchPerformanceHourly {
	hourlyData := make(map[int][]model.SearchEvent)
	for _, event := range events {
		hour := event.Timestamp.Hour()
		hourlyData[hour] = append(hourlyData[hour], event)
	}

	performance := make([]model.SearchPerformanceHourly, 0, 24)
	for hour := 0; hour < 24; hour++ {
		performance = append(performance, model.SearchPerformanceHourly{
			Hour:            hour,
			SearchCount:     len(hourlyData[hour]),
			AvgResponseTime: calculateAvgResponseTime(hourlyData[hour]),
		})
	}
	return performance
}

// getPopularSearches groups the non-empty queries accepted by keep by their
// folded form and returns the most frequent ones. Ties go to the query seen first.
func getPopularSearches(events []model.SearchEvent, keep func(model.SearchEvent) bool) []model.PopularSearch {
	type queryStats struct {
		query   string
		count   int
		results int
		first   int
	}

	byQuery := make(map[string]*queryStats)
	for i, event := range events {
		if !keep(event) {
			continue
		}
		folded := tokenizer.Fold(event.Query)
		if folded == "" {
			continue
		}
		stats, ok := byQuery[folded]
		if !ok {
			stats = &queryStats{query: folded, first: i}
			byQuery[folded] = stats
		}
		stats.count++
		stats.results += event.ResultCount
	}

	ranked := make([]*queryStats, 0, len(byQuery))
	for _, stats := range byQuery {
		ranked = append(ranked, stats)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	popular := make([]model.PopularSearch, 0, popularSearchSize)
	for i, stats := range ranked {
		if i >= popularSearchSize {
			break
		}
		popular = append(popular, model.PopularSearch{
			Query:          stats.query,
			SearchCount:    stats.count,
			AvgResultCount: float64(stats.results) / float64(stats.count),
		})
	}
	return popular
}

func getFilterUsage(events []model.SearchEvent) map[string]int {
	usage := make(map[string]int)
	for _, event := range events {
		for _, f := range event.Filters {
			usage[f]++
		}
	}
	return usage
}

func getResponseTimeDistribution(events []model.SearchEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100
	return dist
}

func (s *Service) loadData() error {
	if s.dataFilePath == "" {
		return nil
	}
	var events []model.SearchEvent
	if err := persistence.LoadGob(s.dataFilePath, &events); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(events) > s.maxEvents {
		events = events[len(events)-s.maxEvents:]
	}
	s.events = events
	return nil
}

// Save writes the events to the data file if any were tracked since the
// last save.
func (s *Service) Save() error {
	if s.dataFilePath == "" {
		return nil
	}

	s.mutex.Lock()
	if !s.dirty {
		s.mutex.Unlock()
		return nil
	}
	events := append([]model.SearchEvent(nil), s.events...)
	s.dirty = false
	s.mutex.Unlock()

	if err := persistence.SaveGob(s.dataFilePath, events); err != nil {
		s.mutex.Lock()
		s.dirty = true
		s.mutex.Unlock()
		return fmt.Errorf("failed to save analytics data: %w", err)
	}
	s.log.Debug("Analytics data saved", "path", s.dataFilePath, "events", len(events))
	return nil
}
