package model

import "time"

// SearchEvent is one search recorded for analytics
type SearchEvent struct {
	Query        string        `json:"query"`
	Filters      []string      `json:"filters,omitempty"` // names of the filters that were set
	ResultCount  int           `json:"result_count"`
	PremiumCount int           `json:"premium_count"`
	ResponseTime time.Duration `json:"response_time"`
	Degraded     bool          `json:"degraded,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// PopularSearch aggregates the searches for one normalized query
type PopularSearch struct {
	Query          string  `json:"query"`
	SearchCount    int     `json:"search_count"`
	AvgResultCount float64 `json:"avg_result_count"`
}

// ResponseTimeDistribution buckets search latency
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To50ms    int     `json:"bucket_25_50ms"`
	Bucket50To100ms   int     `json:"bucket_50_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To50  float64 `json:"percentage_25_50"`
	Percentage50To100 float64 `json:"percentage_50_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// SearchPerformanceHourly is the search volume and latency of one hour of the day
type SearchPerformanceHourly struct {
	Hour            int   `json:"hour"`
	SearchCount     int   `json:"search_count"`
	AvgResponseTime int64 `json:"avg_response_time"` // in milliseconds
}

// AnalyticsDashboard summarizes the last 24 hours of searches
type AnalyticsDashboard struct {
	TotalSearches         int     `json:"total_searches"`
	SearchesChangePercent float64 `json:"searches_change_percent"` // against the 24 hours before
	AvgResponseTime       int64   `json:"avg_response_time"`       // in milliseconds
	ZeroResultRate        float64 `json:"zero_result_rate"`        // percentage of searches with no hits
	DegradedSearches      int     `json:"degraded_searches"`
	CorpusItems           int     `json:"corpus_items"`

	SearchPerformance24h     []SearchPerformanceHourly `json:"search_performance_24h"`
	PopularSearches          []PopularSearch           `json:"popular_searches"`
	ZeroResultSearches       []PopularSearch           `json:"zero_result_searches"`
	FilterUsage              map[string]int            `json:"filter_usage"`
	ResponseTimeDistribution ResponseTimeDistribution  `json:"response_time_distribution"`
}
