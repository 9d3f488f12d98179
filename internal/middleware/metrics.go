package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/notekeeper/internal/metrics"
)

// MetricsInterceptor records request counts, latency and in-flight calls.
func MetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			m.RPCInFlight.Inc()
			defer m.RPCInFlight.Dec()

			start := time.Now()
			resp, err := next(ctx, req)
			m.RPCDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				if connect.CodeOf(err) == connect.CodeResourceExhausted {
					m.RateLimited.WithLabelValues(procedure).Inc()
				}
			}
			m.RPCRequests.WithLabelValues(procedure, code).Inc()
			return resp, err
		}
	}
}
