// Package metrics declares the Prometheus collectors published by the
// core, with the stable names external collaborators depend on.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and histograms, labeled by provider where applicable.
var (
	ImportConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_conversations_total",
			Help: "Total number of conversations accepted by the importer, by provider.",
		},
		[]string{"provider"},
	)
	ImportMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_messages_total",
			Help: "Total number of messages accepted by the importer, by provider.",
		},
		[]string{"provider"},
	)
	ImportDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "import_duration_seconds",
			Help:    "Duration of a single file import, by provider.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imports_total",
			Help: "Total number of import attempts, by provider and outcome (success/failure).",
		},
		[]string{"provider", "status"},
	)
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searches_total",
			Help: "Total number of search queries run, by provider filter (\"all\" when unfiltered).",
		},
		[]string{"provider"},
	)
)

// Gauges reflecting the current store size, refreshed by background
// maintenance.
var (
	ConversationsCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conversations_count",
		Help: "Current number of conversations in the store.",
	})
	MessagesCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "messages_count",
		Help: "Current number of messages in the store.",
	})
	DatabaseSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "database_size_bytes",
		Help: "Current size in bytes of the store file on disk.",
	})
)
