// Control Loop Core - remote reconfiguration agent
//
// This is the main entry point for the control loop binary. It hosts a
// single component's parameter set and keeps it reconfigurable over
// MQTT: authorised requesters publish JSON updates to the component's
// topic and receive an acknowledgement listing what was applied.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/salted-labs/control-loop-core/migrations"

	"github.com/salted-labs/control-loop-core/internal/audit"
	"github.com/salted-labs/control-loop-core/internal/controlloop"
	"github.com/salted-labs/control-loop-core/internal/infrastructure/config"
	"github.com/salted-labs/control-loop-core/internal/infrastructure/database"
	"github.com/salted-labs/control-loop-core/internal/infrastructure/influxdb"
	"github.com/salted-labs/control-loop-core/internal/infrastructure/logging"
	"github.com/salted-labs/control-loop-core/internal/params"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting control loop",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Convert the configured initial parameters
	initial := make(map[string]params.Value, len(cfg.Component.Params))
	for name, raw := range cfg.Component.Params {
		v, convErr := params.FromAny(raw)
		if convErr != nil {
			return fmt.Errorf("component parameter %q: %w", name, convErr)
		}
		initial[name] = v
	}

	handler, err := controlloop.New(cfg.MQTT, cfg.Component.ID, initial)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}
	handler.SetLogger(log)

	// Audit trail (optional)
	if cfg.Audit.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Audit.Path,
			WALMode:     cfg.Audit.WALMode,
			BusyTimeout: cfg.Audit.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening audit database: %w", openErr)
		}
		defer func() {
			log.Info("closing audit database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing audit database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running audit migrations: %w", migrateErr)
		}
		log.Info("audit database ready", "path", cfg.Audit.Path)

		handler.SetRecorder(audit.NewRepository(db.DB))
	} else {
		log.Info("audit trail disabled")
	}

	// Parameter change history (optional)
	if cfg.History.Enabled {
		history, connErr := influxdb.Connect(cfg.History)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := history.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.History.URL,
			"org", cfg.History.Org,
			"bucket", cfg.History.Bucket,
		)

		history.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		handler.SetChangeSink(history)
	} else {
		log.Info("parameter history disabled")
	}

	// Connect and subscribe
	if err := handler.Start(ctx); err != nil {
		return fmt.Errorf("starting handler: %w", err)
	}
	log.Info("control loop running",
		"component_id", cfg.Component.ID,
		"state", handler.State().String(),
	)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	if err := handler.Stop(); err != nil {
		log.Error("error stopping handler", "error", err)
	}

	// Deferred Close() calls run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. Audit database (if enabled)

	log.Info("control loop stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CONTROLLOOP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CONTROLLOOP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
