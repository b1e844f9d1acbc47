package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementUsersRegistered("donor")
	m.IncrementUsersRegistered("donor")
	m.IncrementUsersRegistered("ngo")
	m.IncrementDonationsCreated()
	m.IncrementDonationsClaimed()
	m.IncrementClaimConflicts()
	m.IncrementClaimConflicts()
	m.IncrementEventsDropped()
	m.IncrementEventsPublished("kafka")
	m.IncrementRateLimited("auth")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UsersRegistered.WithLabelValues("donor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersRegistered.WithLabelValues("ngo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonationsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonationsClaimed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClaimConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("kafka")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("auth")))
}

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("/api/donations/{id}/pick", http.MethodPatch, http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementUsersRegistered("ngo")
		m.IncrementDonationsCreated()
		m.IncrementDonationsClaimed()
		m.IncrementClaimConflicts()
		m.IncrementEventsDropped()
		m.IncrementEventsPublished("log")
		m.IncrementRateLimited("auth")
		m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}
