// Package metrics exposes Prometheus metrics for evaluations, conversions
// and registry mutations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Mutation operation labels.
const (
	OpAddUnit   = "add_unit"
	OpAddPrefix = "add_prefix"
	OpDelUnit   = "del_unit"
	OpDelPrefix = "del_prefix"
	OpLoad      = "load"
)

var (
	// evaluationsTotal counts expression evaluations by result
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitcalc_evaluations_total",
		Help: "Total expression evaluations by result",
	}, []string{"result"})

	// evaluationDuration tracks parse plus evaluation latency
	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unitcalc_evaluation_duration_seconds",
		Help:    "Expression parse and evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
	})

	// conversionsTotal counts direct unit conversions by result
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitcalc_conversions_total",
		Help: "Total unit conversions by result",
	}, []string{"result"})

	// mutationsTotal counts registry mutations by operation and result
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitcalc_registry_mutations_total",
		Help: "Total registry mutations by operation and result",
	}, []string{"op", "result"})

	// registryUnits tracks the number of registered units
	registryUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unitcalc_registry_units",
		Help: "Number of units in the registry",
	})

	// registryPrefixes tracks the number of registered prefixes
	registryPrefixes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unitcalc_registry_prefixes",
		Help: "Number of prefixes in the registry",
	})
)

// ResultLabel is "ok" for a nil error and the error kind otherwise.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := types.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// ObserveEvaluation records one evaluation.
func ObserveEvaluation(elapsed time.Duration, err error) {
	evaluationsTotal.WithLabelValues(ResultLabel(err)).Inc()
	evaluationDuration.Observe(elapsed.Seconds())
}

// ObserveConversion records one conversion.
func ObserveConversion(err error) {
	conversionsTotal.WithLabelValues(ResultLabel(err)).Inc()
}

// ObserveMutation records one registry mutation.
func ObserveMutation(op string, err error) {
	mutationsTotal.WithLabelValues(op, ResultLabel(err)).Inc()
}

// SetRegistrySize updates the registry gauges.
func SetRegistrySize(units, prefixes int) {
	registryUnits.Set(float64(units))
	registryPrefixes.Set(float64(prefixes))
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
