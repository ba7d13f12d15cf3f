package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics tracks catalog annotation writes and promotion expiry.
type PricingMetrics struct {
	annotationsWritten prometheus.Counter
	promotionsExpired  *prometheus.CounterVec
	sweepFailures      prometheus.Counter
}

func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	written := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_annotations_written_total",
		Help:      "Catalog rows whose persisted discount annotation changed.",
	})
	expired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotions_expired_total",
		Help:      "Promotions removed by the expiry sweep, by scope.",
	}, []string{"scope"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotion_sweep_failures_total",
		Help:      "Expired promotions whose cleanup failed and will be retried.",
	})
	reg.MustRegister(written, expired, failures)
	return &PricingMetrics{
		annotationsWritten: written,
		promotionsExpired:  expired,
		sweepFailures:      failures,
	}
}

func (p *PricingMetrics) AddAnnotationsWritten(n int) {
	if p == nil || p.annotationsWritten == nil || n <= 0 {
		return
	}
	p.annotationsWritten.Add(float64(n))
}

func (p *PricingMetrics) IncPromotionExpired(scope string) {
	if p == nil || p.promotionsExpired == nil {
		return
	}
	p.promotionsExpired.WithLabelValues(normalizeLabel(scope)).Inc()
}

func (p *PricingMetrics) IncSweepFailure() {
	if p == nil || p.sweepFailures == nil {
		return
	}
	p.sweepFailures.Inc()
}
