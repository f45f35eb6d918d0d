// SPDX-License-Identifier: MIT

// Package metrics defines the prometheus counters recorded by the pipeline.
// swapline is a one-shot CLI, so nothing is served over HTTP; the counters
// are gathered once at the end of a run and logged (see Summary).
package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subprocessStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapline_subprocess_start_total",
		Help: "Total number of external process starts",
	}, []string{"tool", "result"})

	subprocessExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapline_subprocess_exit_total",
		Help: "Total number of external process exits",
	}, []string{"tool", "reason"})

	framesSwapped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapline_frames_swapped_total",
		Help: "Total number of frames run through the swap transform",
	}, []string{"mode"})

	framesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapline_frames_decoded_total",
		Help: "Total number of raw frames read from a decode source",
	})

	workerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapline_worker_failure_total",
		Help: "Total number of fatal transform failures inside workers",
	})

	encodeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapline_encode_total",
		Help: "Total number of encode sink invocations",
	}, []string{"result"})
)

// IncSubprocessStart records an external process start attempt.
func IncSubprocessStart(tool, result string) {
	subprocessStarts.WithLabelValues(tool, result).Inc()
}

// IncSubprocessExit records an external process exit by reason
// ("clean", "error", "ctx_cancel").
func IncSubprocessExit(tool, reason string) {
	subprocessExits.WithLabelValues(tool, reason).Inc()
}

// IncFramesSwapped records n completed transform calls for the given
// dispatch mode ("batch", "stream", "single").
func IncFramesSwapped(mode string, n int) {
	framesSwapped.WithLabelValues(mode).Add(float64(n))
}

// IncFramesDecoded records one raw frame read from a decode source.
func IncFramesDecoded() {
	framesDecoded.Inc()
}

// IncWorkerFailure records a fatal transform failure.
func IncWorkerFailure() {
	workerFailures.Inc()
}

// IncEncodeResult records an encode sink outcome ("ok" or "error").
func IncEncodeResult(result string) {
	encodeResults.WithLabelValues(result).Inc()
}

// Summary gathers all swapline counters from the default registry and
// renders them as "name{labels} value" lines, sorted for stable output.
func Summary() []string {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil
	}

	var lines []string
	for _, mf := range families {
		name := mf.GetName()
		if len(name) < 9 || name[:9] != "swapline_" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if labels != "" {
				lines = append(lines, fmt.Sprintf("%s{%s} %g", name, labels, value))
			} else {
				lines = append(lines, fmt.Sprintf("%s %g", name, value))
			}
		}
	}
	sort.Strings(lines)
	return lines
}
