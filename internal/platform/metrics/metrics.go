package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UsersRegistered     *prometheus.CounterVec
	DonationsCreated    prometheus.Counter
	DonationsClaimed    prometheus.Counter
	ClaimConflicts      prometheus.Counter
	HTTPRequestDuration *prometheus.HistogramVec
	EventsDropped       prometheus.Counter
	EventsPublished     *prometheus.CounterVec
	RateLimited         *prometheus.CounterVec
}

// New creates the application metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodbridge_users_registered_total",
			Help: "Total number of identities registered, by role",
		}, []string{"role"}),
		DonationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_donations_created_total",
			Help: "Total number of donations posted",
		}),
		DonationsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_donations_claimed_total",
			Help: "Total number of donations successfully claimed",
		}),
		ClaimConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_claim_conflicts_total",
			Help: "Claims rejected because the donation was already picked",
		}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foodbridge_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_events_dropped_total",
			Help: "Domain events dropped because the publish buffer was full",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodbridge_events_published_total",
			Help: "Domain events delivered to a sink",
		}, []string{"sink"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foodbridge_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter, by scope",
		}, []string{"scope"}),
	}
}

// IncrementUsersRegistered counts a successful registration.
func (m *Metrics) IncrementUsersRegistered(role string) {
	if m == nil {
		return
	}
	m.UsersRegistered.WithLabelValues(role).Inc()
}

// IncrementDonationsCreated counts a posted donation.
func (m *Metrics) IncrementDonationsCreated() {
	if m == nil {
		return
	}
	m.DonationsCreated.Inc()
}

// IncrementDonationsClaimed counts a successful claim.
func (m *Metrics) IncrementDonationsClaimed() {
	if m == nil {
		return
	}
	m.DonationsClaimed.Inc()
}

// IncrementClaimConflicts counts a claim that lost the race.
func (m *Metrics) IncrementClaimConflicts() {
	if m == nil {
		return
	}
	m.ClaimConflicts.Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// IncrementEventsDropped counts an event that was never delivered.
func (m *Metrics) IncrementEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// IncrementEventsPublished counts an event handed to sink.
func (m *Metrics) IncrementEventsPublished(sink string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink).Inc()
}

// IncrementRateLimited counts a throttled request.
func (m *Metrics) IncrementRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}
