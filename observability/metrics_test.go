package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	req := require.New(t)
	m := NewMetrics(prometheus.NewRegistry())

	m.MessageSent()
	m.MessageSent()
	m.MessagesRead(3)
	m.RecommendationServed()
	m.ObserveRequest("GET", "/api/messages/{senderId}/{receiverId}", 200, 20*time.Millisecond)

	req.Equal(2.0, testutil.ToFloat64(m.MessagesSent))
	req.Equal(3.0, testutil.ToFloat64(m.MessagesReadTotal))
	req.Equal(1.0, testutil.ToFloat64(m.RecommendationsServed))
	req.Equal(1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/messages/{senderId}/{receiverId}", "200")))
}

func TestMetrics_Registries_Are_Independent(t *testing.T) {
	// Registering twice on the same registry would panic
	require.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestCollectProcessStats(t *testing.T) {
	req := require.New(t)
	stats, err := CollectProcessStats(time.Now().Add(-time.Minute))
	req.NoError(err)
	req.Positive(stats.PID)
	req.Positive(stats.Goroutines)
	req.Positive(stats.RSSBytes)
	req.GreaterOrEqual(stats.UptimeSeconds, 60.0)
}
