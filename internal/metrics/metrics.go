// Package metrics exposes Prometheus counters for ingestion and geocoding
// runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"maptimes/internal/domain"
)

var (
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	feedsTotal       *prometheus.CounterVec
	articlesTotal    *prometheus.CounterVec
	publishersTotal  *prometheus.CounterVec
	lastRunTimestamp *prometheus.GaugeVec
)

func init() {
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptimes_runs_total",
			Help: "Number of batch runs by job and outcome.",
		},
		[]string{"job", "outcome"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maptimes_run_duration_seconds",
			Help:    "Duration of batch runs.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"job"},
	)
	feedsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptimes_feeds_processed_total",
			Help: "Feeds processed by ingestion runs.",
		},
		[]string{"outcome"},
	)
	articlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptimes_articles_total",
			Help: "Feed items seen by ingestion runs.",
		},
		[]string{"result"},
	)
	publishersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptimes_publishers_geocoded_total",
			Help: "Publishers handled by geocoding runs.",
		},
		[]string{"result"},
	)
	lastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "maptimes_last_run_timestamp_seconds",
			Help: "Unix time of the last finished run.",
		},
		[]string{"job"},
	)

	prometheus.MustRegister(runsTotal, runDuration, feedsTotal, articlesTotal, publishersTotal, lastRunTimestamp)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveIngest(stats *domain.IngestStats, err error) {
	observeRun("ingest", err)
	if stats == nil {
		return
	}

	runDuration.WithLabelValues("ingest").Observe(stats.Duration.Seconds())
	feedsTotal.WithLabelValues("ok").Add(float64(stats.Feeds - stats.FailedFeeds))
	feedsTotal.WithLabelValues("failed").Add(float64(stats.FailedFeeds))
	feedsTotal.WithLabelValues("early_stop").Add(float64(stats.EarlyStops))
	articlesTotal.WithLabelValues("fetched").Add(float64(stats.Fetched))
	articlesTotal.WithLabelValues("dropped").Add(float64(stats.Dropped))
	articlesTotal.WithLabelValues("existing").Add(float64(stats.Existing))
	articlesTotal.WithLabelValues("inserted").Add(float64(stats.Inserted))
	articlesTotal.WithLabelValues("published").Add(float64(stats.Published))
}

func ObserveGeocode(stats *domain.GeocodeStats, err error) {
	observeRun("geocode", err)
	if stats == nil {
		return
	}

	runDuration.WithLabelValues("geocode").Observe(stats.Duration.Seconds())
	publishersTotal.WithLabelValues("geocoded").Add(float64(stats.Geocoded))
	publishersTotal.WithLabelValues("no_match").Add(float64(stats.NoMatch))
	publishersTotal.WithLabelValues("exhausted").Add(float64(stats.Exhausted))
	publishersTotal.WithLabelValues("failed").Add(float64(stats.Failed))
}

func observeRun(job string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	runsTotal.WithLabelValues(job, outcome).Inc()
	lastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}
