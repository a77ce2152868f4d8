package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These are the metrics functions exposed by the package. By default they are all
// NOP functions to minimize overhead when metrics are not enabled. The
// 'addDevserverMetrics' function initializes these with functions having
// implementations if metrics are enabled.

var IncStagingRequests noLabel = func() {}
var IncStagingJoins noLabel = func() {}
var IncStagingFailures noLabel = func() {}
var IncStatusPolls noLabel = func() {}
var IncUpdatePings noLabel = func() {}
var IncForcedLabels noLabel = func() {}
var IncSymbolicateRequests noLabel = func() {}
var IncApiErrorResults noLabel = func() {}
var DeltaCachedArtifactCount delta = func(float64) {}

type noLabel func()
type delta func(float64)

const (
	staging_requests_total     = "staging_requests_total"
	staging_joins_total        = "staging_joins_total"
	staging_failures_total     = "staging_failures_total"
	status_polls_total         = "status_polls_total"
	update_pings_total         = "update_pings_total"
	forced_labels_total        = "forced_labels_total"
	symbolicate_requests_total = "symbolicate_requests_total"
	api_errors_total           = "api_errors_total"
	cached_artifact_count      = "cached_artifact_count"
)

// Prometheus metrics objects

var stagingRequestsTotal prometheus.Counter
var stagingJoinsTotal prometheus.Counter
var stagingFailuresTotal prometheus.Counter
var statusPollsTotal prometheus.Counter
var updatePingsTotal prometheus.Counter
var forcedLabelsTotal prometheus.Counter
var symbolicateRequestsTotal prometheus.Counter
var apiErrorsTotal prometheus.Counter
var cachedArtifactCount prometheus.Gauge

// addDevserverMetrics creates all the devserver metrics and registers them with the
// prometheus library. It also assigns a function to actually implement the metric.
// Unless this function is called, all the metric functions exposed by the package
// will be NOP functions.
func addDevserverMetrics() {
	stagingRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      staging_requests_total,
			Namespace: "devserver",
			Help:      "Total staging requests that launched a new background download",
		},
	)
	IncStagingRequests = func() {
		stagingRequestsTotal.Add(1)
	}

	///
	stagingJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      staging_joins_total,
			Namespace: "devserver",
			Help:      "Total staging requests that joined an already-tracked download",
		},
	)
	IncStagingJoins = func() {
		stagingJoinsTotal.Add(1)
	}

	///
	stagingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      staging_failures_total,
			Namespace: "devserver",
			Help:      "Total staging downloads that terminated in failure",
		},
	)
	IncStagingFailures = func() {
		stagingFailuresTotal.Add(1)
	}

	///
	statusPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      status_polls_total,
			Namespace: "devserver",
			Help:      "Total staging status polls",
		},
	)
	IncStatusPolls = func() {
		statusPollsTotal.Add(1)
	}

	///
	updatePingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      update_pings_total,
			Namespace: "devserver",
			Help:      "Total update pings received",
		},
	)
	IncUpdatePings = func() {
		updatePingsTotal.Add(1)
	}

	///
	forcedLabelsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      forced_labels_total,
			Namespace: "devserver",
			Help:      "Total update pings answered with an operator-forced label",
		},
	)
	IncForcedLabels = func() {
		forcedLabelsTotal.Add(1)
	}

	///
	symbolicateRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      symbolicate_requests_total,
			Namespace: "devserver",
			Help:      "Total minidump symbolication requests",
		},
	)
	IncSymbolicateRequests = func() {
		symbolicateRequestsTotal.Add(1)
	}

	///
	apiErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name:      api_errors_total,
			Namespace: "devserver",
			Help:      "Total API calls returning a non-success status",
		},
	)
	IncApiErrorResults = func() {
		apiErrorsTotal.Add(1)
	}

	///
	cachedArtifactCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      cached_artifact_count,
			Namespace: "devserver",
			Help:      "Count of staged artifacts in the cache",
		},
	)
	DeltaCachedArtifactCount = func(delta float64) {
		cachedArtifactCount.Add(delta)
	}
}
