// Package metrics provides Prometheus metrics collection for the drive core.
//
// All metrics are optional - if the registry is not initialized, components
// use no-op implementations with zero overhead. This lets the drive run with
// or without metrics collection enabled.
//
// Usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewDriveMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all drive metrics.
	// Protected by registryOnce for write-once, read-many access.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Safe to call multiple times - subsequent calls are no-ops. If never
// called, GetRegistry returns nil and all constructors return no-op
// implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil if metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
