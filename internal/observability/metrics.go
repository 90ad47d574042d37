// Package observability provides metrics and tracing instrumentation.
package observability

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadswap_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// SwapTransitions counts swap state machine transitions by event and outcome.
	SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadswap_swap_transitions_total",
		Help: "Total number of swap workflow transitions by event and outcome",
	}, []string{"event", "outcome"})

	// PointsAwarded counts community points credited to users.
	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadswap_points_awarded_total",
		Help: "Total community points awarded through swap acceptance",
	})

	// OrphanedItemsRepaired counts items reset to available by the reconciliation pass.
	OrphanedItemsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadswap_orphaned_items_repaired_total",
		Help: "Total items stuck in pending_swap that were reset to available",
	})

	// ImageUploads counts blob store writes by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadswap_image_uploads_total",
		Help: "Total image uploads by result",
	}, []string{"result"})

	// WebSocketConnections is the gauge of active notification connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadswap_websocket_connections",
		Help: "Number of active WebSocket notification connections",
	})

	// WebSocketDrops counts notification messages dropped due to backpressure.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadswap_websocket_drops_total",
		Help: "Total notification messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// InitHTTPMetrics constructs the Prometheus middleware for the Fiber app.
func InitHTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}
