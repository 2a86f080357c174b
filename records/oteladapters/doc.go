// Package oteladapters implements the records observability interfaces on top of OpenTelemetry.
//
// Wire them into a Model or an Engine with the usual options:
//
//	tracer := otel.Tracer("catalog")
//	meter := otel.Meter("catalog")
//
//	model, err := records.NewModel(registry, "products",
//		records.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		records.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		records.WithContextualLogger(oteladapters.NewSlogBridgeLogger("catalog")),
//	)
package oteladapters
