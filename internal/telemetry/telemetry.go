// Package telemetry wires agent-loop execution into OpenTelemetry traces:
// one span per agent iteration, tool execution, and MCP tool call.
package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentoven/quant-go/internal/config"
)

var tracer = otel.Tracer("quant-go")

// Init sets up OpenTelemetry tracing with an OTLP gRPC exporter. Returns a
// shutdown function that should be called on graceful shutdown.
func Init(cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled || cfg.OTLPEndpoint == "" {
		log.Info().Msg("opentelemetry disabled")
		return func(ctx context.Context) error { return nil }, nil
	}

	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", "0.1.0"),
		),
		resource.WithHost(),
		resource.WithOS(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", cfg.OTLPEndpoint).
		Str("service", cfg.ServiceName).
		Msg("opentelemetry tracing initialized")

	return tp.Shutdown, nil
}

// StartIteration opens a span covering one pass of the agent loop: a model
// turn plus whatever tool calls it produces.
func StartIteration(ctx context.Context, iteration int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent.iteration",
		trace.WithAttributes(attribute.Int("agent.iteration", iteration)))
}

// StartToolExecute opens a span covering one tool call as routed through the
// gate and registry.
func StartToolExecute(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(attribute.String("tool.name", toolName)))
}

// StartMCPToolsCall opens a span covering one call dispatched to an MCP
// server subprocess.
func StartMCPToolsCall(ctx context.Context, prefixedTool string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mcp.tools_call",
		trace.WithAttributes(attribute.String("mcp.tool", prefixedTool)))
}
