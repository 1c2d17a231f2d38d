// Package otel binds client metrics to an OpenTelemetry meter.
//
// Every counter becomes an Int64ObservableCounter and every histogram bucket
// an Int64ObservableGauge holding its cumulative count. A single callback
// reads the client snapshot on each collection. The caller owns the
// MeterProvider.
package otel
