// Package observability provides logging, metrics, and tracing for the
// coordination engine: the agent registry, swarm engine, hive engine, and
// the control bridge that fronts them.
//
// # Overview
//
// Three pillars, each usable independently:
//
//  1. Metrics - Prometheus counters/gauges/histograms for agent activity,
//     swarm coordination, hive decisions, and circuit breaker state
//  2. Logging - structured logs via slog, with context-correlated
//     swarm_id/decision_id/task_id fields and secret redaction
//  3. Tracing - OpenTelemetry spans around resilience-guarded calls
//
// # Metrics
//
//	metrics := observability.NewMetrics()
//	metrics.SetActiveAgents("specialist", 12)
//	metrics.RecordCoordination("hierarchical", "success", duration.Seconds(), efficiency)
//	metrics.RecordHiveDecision("consensus", consensusReached, confidence)
//
// # Logging
//
//	logger := observability.NewLogger(observability.LogConfig{Level: "info"})
//	ctx = observability.AddSwarmID(ctx, swarmID)
//	ctx = observability.AddTaskID(ctx, task.TaskID)
//	logger.Info(ctx, "coordinating task", "topology", topology)
//
// api_key/token/password-shaped values passed as log args are redacted
// automatically, since bridge commands may carry arbitrary task metadata.
//
// # Tracing
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "hiveswarmd",
//	})
//	defer shutdown(context.Background())
//	ctx, span := tracer.Start(ctx, "swarm.coordinate")
//	defer span.End()
//
// With no OTLP endpoint configured, NewTracer installs the SDK's no-op
// tracer, so instrumented code pays no cost when tracing isn't wired to a
// collector.
package observability
