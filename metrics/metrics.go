package metrics

import (
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/specforge/specforge/types"
)

const (
	MetricsNamespace = "specforge"
)

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of engine errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed tests by outcome",
	}, []string{
		"suite",
		"run_id",
		"result",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Wall-clock duration of individual tests",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{
		"suite",
		"run_id",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of completed suite runs",
	}, []string{
		"suite",
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of completed suite runs",
	}, []string{
		"suite",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

// RecordError increments the error counter for the given label.
func RecordError(errorLabel string) {
	errorsTotal.WithLabelValues(errorLabel).Inc()
}

// RecordErrorDetails increments the error counter with a label derived
// from err.
func RecordErrorDetails(errorLabel string, err error) {
	RecordError(errorLabel + "_" + errToLabel(err))
}

// RecordTest counts one terminal or ignored test outcome and observes its
// duration.
func RecordTest(suite, runID string, status types.TestStatus, duration time.Duration) {
	testsTotal.WithLabelValues(suite, runID, string(status)).Inc()
	testDuration.WithLabelValues(suite, runID).Observe(duration.Seconds())
}

// RecordRun records the collapsed outcome of one completed suite run.
func RecordRun(suite, runID string, status types.TestStatus, duration time.Duration) {
	runResults.WithLabelValues(suite, runID, string(status)).Set(1)
	runDuration.WithLabelValues(suite, runID).Set(duration.Seconds())
}
