// ABOUTME: Metrics package
// ABOUTME: Prometheus collectors for the engine and relay
// Package metrics exposes engine and relay counters to Prometheus.
package metrics
