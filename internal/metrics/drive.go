package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DriveMetrics records lifecycle events in the file-context and directory
// engines: encryptor construction/teardown and directory store attempts.
type DriveMetrics interface {
	EncryptorInitialised()
	EncryptorTeardownDefused()
	EncryptorTornDown()
	DirectoryStoreAttempted()
	DirectoryStoreSucceeded()
	DirectoryStoreFailed()
	DirectoryCacheEvicted()
}

type noopDriveMetrics struct{}

func (noopDriveMetrics) EncryptorInitialised()      {}
func (noopDriveMetrics) EncryptorTeardownDefused()  {}
func (noopDriveMetrics) EncryptorTornDown()         {}
func (noopDriveMetrics) DirectoryStoreAttempted()   {}
func (noopDriveMetrics) DirectoryStoreSucceeded()   {}
func (noopDriveMetrics) DirectoryStoreFailed()      {}
func (noopDriveMetrics) DirectoryCacheEvicted()     {}

// NewNoopDriveMetrics returns a DriveMetrics implementation with zero overhead.
func NewNoopDriveMetrics() DriveMetrics { return noopDriveMetrics{} }

type driveMetrics struct {
	encryptorEvents   *prometheus.CounterVec
	directoryStores   *prometheus.CounterVec
	directoryEviction prometheus.Counter
}

// NewDriveMetrics creates a Prometheus-backed DriveMetrics instance.
//
// Returns a no-op implementation if InitRegistry has not been called.
func NewDriveMetrics() DriveMetrics {
	if !IsEnabled() {
		return NewNoopDriveMetrics()
	}

	reg := GetRegistry()

	return &driveMetrics{
		encryptorEvents: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "drivecore_encryptor_events_total",
				Help: "Encryptor lifecycle events by kind (initialised, teardown_defused, torn_down)",
			},
			[]string{"event"},
		),
		directoryStores: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "drivecore_directory_store_attempts_total",
				Help: "Directory store attempts by outcome (attempted, succeeded, failed)",
			},
			[]string{"outcome"},
		),
		directoryEviction: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "drivecore_directory_cache_evictions_total",
				Help: "Number of directories evicted from the resolver's LRU cache",
			},
		),
	}
}

func (m *driveMetrics) EncryptorInitialised()     { m.encryptorEvents.WithLabelValues("initialised").Inc() }
func (m *driveMetrics) EncryptorTeardownDefused()  { m.encryptorEvents.WithLabelValues("teardown_defused").Inc() }
func (m *driveMetrics) EncryptorTornDown()         { m.encryptorEvents.WithLabelValues("torn_down").Inc() }
func (m *driveMetrics) DirectoryStoreAttempted()   { m.directoryStores.WithLabelValues("attempted").Inc() }
func (m *driveMetrics) DirectoryStoreSucceeded()   { m.directoryStores.WithLabelValues("succeeded").Inc() }
func (m *driveMetrics) DirectoryStoreFailed()      { m.directoryStores.WithLabelValues("failed").Inc() }
func (m *driveMetrics) DirectoryCacheEvicted()     { m.directoryEviction.Inc() }
