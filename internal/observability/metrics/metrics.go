package metrics

import "github.com/prometheus/client_golang/prometheus"

const serviceName = "securewipe"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"method", "path"},
	)

	WipeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "wipe_requests_total",
			Help:        "Total number of wipe requests.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"result"},
	)

	ArtifactPipelineTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "artifact_pipeline_total",
			Help:        "Total number of artifact pipeline runs by outcome.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"result"},
	)

	ArtifactPipelineDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "artifact_pipeline_duration_seconds",
			Help:        "Duration of artifact pipeline runs.",
			Buckets:     prometheus.ExponentialBuckets(0.5, 2, 10),
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		WipeRequestsTotal,
		ArtifactPipelineTotal,
		ArtifactPipelineDurationSeconds,
	)
}
