package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/driftvault/internal/config"
	"github.com/marmos91/driftvault/internal/drive"
	"github.com/marmos91/driftvault/internal/logger"
	"github.com/marmos91/driftvault/internal/metrics"
	"github.com/marmos91/driftvault/store/chunkstore"
	"github.com/marmos91/driftvault/store/chunkstore/badgerstore"
	"github.com/marmos91/driftvault/store/chunkstore/fsstore"
	"github.com/marmos91/driftvault/store/chunkstore/memorystore"
	"github.com/marmos91/driftvault/store/chunkstore/s3store"
	versionbadger "github.com/marmos91/driftvault/store/versionstore/badgerstore"
	versionmemory "github.com/marmos91/driftvault/store/versionstore/memorystore"
)

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func buildChunkStore(ctx context.Context, cfg *config.Config) (chunkstore.ChunkStore, func() error, error) {
	noopClose := func() error { return nil }

	switch cfg.ChunkStore.Type {
	case "memory", "":
		return memorystore.New(), noopClose, nil
	case "filesystem":
		store, err := fsstore.New(ctx, stringField(cfg.ChunkStore.Filesystem, "path"))
		if err != nil {
			return nil, nil, err
		}
		return store, noopClose, nil
	case "s3":
		store, err := s3store.New(ctx, s3store.Config{
			Bucket:   stringField(cfg.ChunkStore.S3, "bucket"),
			Prefix:   stringField(cfg.ChunkStore.S3, "prefix"),
			Region:   stringField(cfg.ChunkStore.S3, "region"),
			Endpoint: stringField(cfg.ChunkStore.S3, "endpoint"),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noopClose, nil
	case "badger":
		store, err := badgerstore.New(stringField(cfg.ChunkStore.Badger, "path"))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown chunk store type %q", cfg.ChunkStore.Type)
	}
}

// buildDrive constructs the configured version store and wires it,
// together with chunkStore, into a Drive. Returned alongside is the
// version store's own close func, since only its concrete type (not
// the versionstore.VersionStore interface) exposes one.
func buildDrive(cfg *config.Config, chunkStore chunkstore.ChunkStore, driveMetrics metrics.DriveMetrics) (*drive.Drive, func() error, error) {
	driveCfg := drive.Config{
		Workers:                  cfg.Timers.Workers,
		MaxVersions:              cfg.Directory.MaxVersions,
		HandlerCacheSize:         cfg.Directory.HandlerCacheSize,
		DirectoryInactivityDelay: cfg.Timers.DirectoryInactivityDelay,
		FileInactivityDelay:      cfg.Timers.FileInactivityDelay,
		ChunkSize:                cfg.Encryptor.ChunkSize,
	}

	switch cfg.VersionStore.Type {
	case "badger":
		store, err := versionbadger.New(stringField(cfg.VersionStore.Badger, "path"))
		if err != nil {
			return nil, nil, err
		}
		d, err := drive.New(chunkStore, store, driveCfg, driveMetrics)
		if err != nil {
			return nil, nil, err
		}
		return d, store.Close, nil
	case "memory", "":
		store := versionmemory.New()
		d, err := drive.New(chunkStore, store, driveCfg, driveMetrics)
		if err != nil {
			return nil, nil, err
		}
		return d, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown version store type %q", cfg.VersionStore.Type)
	}
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults to the XDG config directory)")
	logLevel := flag.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	shutdownTimeout := flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	fmt.Println("driftvault - content-addressed encrypted drive core")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	metrics.InitRegistry()
	driveMetrics := metrics.NewDriveMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunkStore, closeChunkStore, err := buildChunkStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build chunk store: %v", err)
	}
	defer func() {
		if err := closeChunkStore(); err != nil {
			logger.Error("Failed to close chunk store: %v", err)
		}
	}()

	d, closeVersionStore, err := buildDrive(cfg, chunkStore, driveMetrics)
	if err != nil {
		log.Fatalf("Failed to build drive: %v", err)
	}
	defer func() {
		if err := closeVersionStore(); err != nil {
			logger.Error("Failed to close version store: %v", err)
		}
	}()

	if err := d.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap root directory: %v", err)
	}
	logger.Info("Root directory ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("driftvault is running. Press Ctrl+C to stop.")
	<-sigChan

	logger.Info("Shutdown signal received, flushing and closing...")
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer closeCancel()

	if err := d.Close(closeCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
		os.Exit(1)
	}
	logger.Info("Stopped gracefully")
}
