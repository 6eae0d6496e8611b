package sampling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks how well rejection sampling fills regions. Thin or concave
// regions show up as low acceptance ratios.
type Metrics struct {
	Candidates prometheus.Counter
	Accepted   prometheus.Counter
	Acceptance prometheus.Histogram
	NotFound   prometheus.Counter
	Failures   prometheus.Counter
}

// NewMetrics creates the sampler metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "brainscene",
			Subsystem: "sampler",
			Name:      "candidates_total",
			Help:      "Candidate points drawn in region bounding boxes.",
		}),
		Accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "brainscene",
			Subsystem: "sampler",
			Name:      "accepted_total",
			Help:      "Candidate points that fell inside their region.",
		}),
		Acceptance: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brainscene",
			Subsystem: "sampler",
			Name:      "acceptance_ratio",
			Help:      "Fraction of candidates inside the region, per sampling call.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		NotFound: f.NewCounter(prometheus.CounterOpts{
			Namespace: "brainscene",
			Subsystem: "sampler",
			Name:      "region_not_found_total",
			Help:      "Sampling requests for regions that did not resolve.",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "brainscene",
			Subsystem: "sampler",
			Name:      "insufficient_samples_total",
			Help:      "Sampling requests where no candidate fell inside the region.",
		}),
	}
}
