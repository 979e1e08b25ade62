package aoa

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hed1ad/goaoa/pkg/detectors"
)

var (
	scorePoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aoa", Subsystem: "score", Name: "points_total", Help: "Total number of scored query points by applicability."},
		[]string{"result"},
	)
	scoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "aoa", Subsystem: "score", Name: "duration_seconds", Help: "Duration of batch scoring calls.", Buckets: prometheus.DefBuckets},
	)
)

func init() {
	_ = prometheus.Register(scorePoints)
	_ = prometheus.Register(scoreDuration)
}

func observeResult(r *detectors.Result, elapsed time.Duration) {
	inside, outside, nodata := r.Counts()
	scorePoints.WithLabelValues(detectors.Inside.String()).Add(float64(inside))
	scorePoints.WithLabelValues(detectors.Outside.String()).Add(float64(outside))
	scorePoints.WithLabelValues(detectors.NoData.String()).Add(float64(nodata))
	scoreDuration.Observe(elapsed.Seconds())
}
