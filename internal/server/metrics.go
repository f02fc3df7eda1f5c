package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// calculationTotal counts composite calculations by result.
	calculationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifescore_calculation_total",
		Help: "Total composite score calculations by result",
	}, []string{"result"})

	// calculationDuration tracks calculation latency including the ranking
	// recompute it triggers.
	calculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lifescore_calculation_duration_seconds",
		Help:    "Composite calculation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// verificationTotal counts certificate verifications by outcome.
	verificationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifescore_certificate_verification_total",
		Help: "Total certificate verifications by outcome",
	}, []string{"outcome"})

	// certificateIssuedTotal counts issued certificates.
	certificateIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifescore_certificate_issued_total",
		Help: "Total certificates issued",
	})
)
