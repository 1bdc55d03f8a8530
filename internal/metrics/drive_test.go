package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopDriveMetricsSatisfiesInterfaceWithoutPanicking(t *testing.T) {
	var m DriveMetrics = NewNoopDriveMetrics()

	assert.NotPanics(t, func() {
		m.EncryptorInitialised()
		m.EncryptorTeardownDefused()
		m.EncryptorTornDown()
		m.DirectoryStoreAttempted()
		m.DirectoryStoreSucceeded()
		m.DirectoryStoreFailed()
		m.DirectoryCacheEvicted()
	})
}

func TestNewDriveMetricsAfterInitRegistryIsPrometheusBacked(t *testing.T) {
	InitRegistry()
	assert.True(t, IsEnabled())

	m := NewDriveMetrics()
	_, ok := m.(*driveMetrics)
	assert.True(t, ok, "once the registry is initialised, NewDriveMetrics must return the Prometheus-backed implementation")

	assert.NotPanics(t, func() {
		m.EncryptorInitialised()
		m.DirectoryStoreAttempted()
	})
}

func TestInitRegistryIsIdempotent(t *testing.T) {
	InitRegistry()
	first := GetRegistry()
	InitRegistry()
	assert.Same(t, first, GetRegistry())
}
