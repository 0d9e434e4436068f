package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SetupPrometheus creates the registry served on the metrics listener: Go
// runtime and process collectors plus a posecoach_build_info gauge labeled with
// the running version.
func SetupPrometheus(versionInfo string) *prometheus.Registry {
	if versionInfo == "" {
		versionInfo = "unknown"
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "posecoach",
		Name:        "build_info",
		Help:        "Always 1, labeled with the service version.",
		ConstLabels: prometheus.Labels{"version": versionInfo},
	})
	buildInfo.Set(1)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
	)
	return promRegistry
}
