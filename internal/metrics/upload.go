package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadObserver exports upload pipeline metrics to Prometheus.
type UploadObserver struct {
	stages   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Counter
}

func NewUploadObserver(namespace string, reg prometheus.Registerer) (*UploadObserver, error) {
	if namespace == "" {
		namespace = "gallery"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &UploadObserver{
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_stage_total",
			Help:      "Upload pipeline stage outcomes.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "End to end upload latency by result.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes written to object storage by successful uploads.",
		}),
	}

	for _, collector := range []prometheus.Collector{o.stages, o.duration, o.bytes} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register upload metric: %w", err)
		}
	}
	return o, nil
}

func (o *UploadObserver) Stage(stage string, err error) {
	if o == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.stages.WithLabelValues(stage, outcome).Inc()
}

func (o *UploadObserver) Done(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	o.duration.WithLabelValues(result).Observe(duration.Seconds())
	if err == nil {
		o.bytes.Add(float64(sizeBytes))
	}
}
