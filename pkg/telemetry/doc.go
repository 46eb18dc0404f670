// Package telemetry reports scheduler activity to Prometheus and
// OpenTelemetry.
//
// Both Metrics and Tracer implement scheduler.Observer and are attached with
// reactive.WithObserver or scheduler.WithObserver:
//
//	reg := prometheus.NewRegistry()
//	rt := reactive.New(
//	    reactive.WithObserver(telemetry.NewMetrics(telemetry.WithRegistry(reg))),
//	    reactive.WithObserver(telemetry.NewTracer()),
//	)
//
// Observer methods run on the scheduler's goroutine. Tracer keeps one open
// span per flush and is not safe for use by several schedulers at once.
package telemetry
