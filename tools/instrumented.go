// Package tools provides taxonomy and entity resolution tools.
// Tools are registered globally via init() for use by the tool host.
package tools

import (
	"context"
	"time"

	"github.com/c360studio/semstreams/agentic"
	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robomcp_tool_calls_total",
		Help: "Tool calls by tool name and outcome.",
	}, []string{"tool", "status"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "robomcp_tool_duration_seconds",
		Help:    "Tool call latency by tool name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	// FrontierFallbacks counts degenerate type reductions that fell back
	// to the last input element. A rising count means the loaded model
	// disagrees with the types coming back from normalization.
	FrontierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "robomcp_frontier_fallbacks_total",
		Help: "Most-specific-type reductions that produced an empty frontier.",
	})
)

// InstrumentedExecutor wraps a ToolExecutor with call metrics.
type InstrumentedExecutor struct {
	inner agentictools.ToolExecutor
}

// NewInstrumentedExecutor wraps an executor with metrics collection.
func NewInstrumentedExecutor(inner agentictools.ToolExecutor) *InstrumentedExecutor {
	return &InstrumentedExecutor{inner: inner}
}

// Execute runs the underlying tool and records outcome and latency.
func (i *InstrumentedExecutor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	start := time.Now()
	result, err := i.inner.Execute(ctx, call)
	toolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil || result.Error != "" {
		status = "error"
	}
	toolCalls.WithLabelValues(call.Name, status).Inc()

	return result, err
}

// ListTools delegates to the inner executor.
func (i *InstrumentedExecutor) ListTools() []agentic.ToolDefinition {
	return i.inner.ListTools()
}
