package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/resilience"
)

func TestBreakerPublishesStateAndTransitions(t *testing.T) {
	const target = "pos-metrics"
	ctx := context.Background()
	gauge := func() float64 { return testutil.ToFloat64(resilience.BreakerState.WithLabelValues(target)) }

	breaker := resilience.NewBreaker(1, 0.5, 20*time.Millisecond).WithTarget(target)
	require.Zero(t, gauge())

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, float64(resilience.Open), gauge())

	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, time.Second, 5*time.Millisecond)
	require.Equal(t, float64(resilience.HalfOpen), gauge())

	breaker.Report(ctx, true)
	require.Equal(t, float64(resilience.Closed), gauge())

	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues(target)))
	for _, step := range [][2]string{{"closed", "open"}, {"open", "half_open"}, {"half_open", "closed"}} {
		got := testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues(target, step[0], step[1]))
		require.Equal(t, 1.0, got, "%s -> %s", step[0], step[1])
	}
}
