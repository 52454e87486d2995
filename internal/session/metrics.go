package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_search_requests_total",
			Help: "Searches by outcome (ok, empty, degraded, invalid).",
		},
		[]string{"outcome"},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notes_search_duration_seconds",
			Help:    "Search latency including any corpus rebuild.",
			Buckets: prometheus.DefBuckets,
		},
	)

	corpusRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_corpus_rebuilds_total",
			Help: "Corpus snapshot rebuilds by result (ok, failed).",
		},
		[]string{"result"},
	)

	corpusItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notes_corpus_items",
			Help: "Items in the current corpus snapshot by tier.",
		},
		[]string{"tier"},
	)

	corpusDroppedItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notes_corpus_dropped_items",
		Help: "Source records dropped by normalization in the current snapshot.",
	})

	resultCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_search_cache_hits_total",
		Help: "Searches answered from the result cache.",
	})
	resultCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_search_cache_misses_total",
		Help: "Searches that missed the result cache.",
	})
)
