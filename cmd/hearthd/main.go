// Hearth Core - Home Automation Hub
//
// This is the main entry point for the Hearth hub daemon. The hub
// routes commands from the cloud relay and the local network to device
// drivers, filters every response through user group permissions, and
// broadcasts device events back out.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/hearthwire/hearth-core/migrations"

	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/hub"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/database"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
	"github.com/hearthwire/hearth-core/internal/infrastructure/telemetry"
	"github.com/hearthwire/hearth-core/internal/media"
	"github.com/hearthwire/hearth-core/internal/permission"
	"github.com/hearthwire/hearth-core/internal/service/actionlog"
	mediasvc "github.com/hearthwire/hearth-core/internal/service/media"
	"github.com/hearthwire/hearth-core/internal/service/usergroups"
	"github.com/hearthwire/hearth-core/internal/transport/cloud"
	"github.com/hearthwire/hearth-core/internal/transport/local"
	"github.com/hearthwire/hearth-core/internal/usergroup"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise user group registry
	groupRepo := usergroup.NewSQLiteRepository(db.DB)
	groups := usergroup.NewRegistry(groupRepo)
	groups.SetLogger(log)

	if refreshErr := groups.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading user groups: %w", refreshErr)
	}
	log.Info("user group registry initialised", "groups", len(groups.ListGroups()))

	// Repositories backing the drivers and the permission engine
	mediaRepo := media.NewRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	keys := auth.NewAPIKeyRepository(db.DB)

	// Core routing: bus, driver registry, permission engine, dispatcher
	bus := hub.NewBus()
	drivers := hub.NewRegistry()
	perms := permission.NewEngine(mediaRepo)

	dispatcher := hub.NewDispatcher(drivers, groups, perms, bus, cfg.ResponseTimeout())
	dispatcher.SetLogger(log)
	dispatcher.SetEnricher("getDevices", hub.DeviceTypeFilter())

	// Built-in drivers
	drivers.Register(usergroups.New(groups))
	drivers.Register(actionlog.New(auditRepo))
	drivers.Register(mediasvc.New(mediaRepo))
	log.Info("drivers registered", "drivers", len(drivers.Drivers()))

	// Connect to the cloud relay
	cloudClient, err := cloud.Connect(cfg.Cloud, cfg.Hub)
	if err != nil {
		return fmt.Errorf("connecting to cloud relay: %w", err)
	}
	defer func() {
		log.Info("disconnecting from cloud relay")
		if closeErr := cloudClient.Close(); closeErr != nil {
			log.Error("error closing cloud connection", "error", closeErr)
		}
	}()
	cloudClient.SetLogger(log)
	log.Info("cloud relay connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Cloud.Broker.Host, cfg.Cloud.Broker.Port),
		"server_id", cfg.Hub.ServerID,
	)

	cloudChannel := cloud.NewChannel(cloudClient, dispatcher, bus, cfg.Cloud.QoS)
	cloudChannel.SetLogger(log)

	// Start the local server before the cloud channel so the claim
	// filter can route streaming commands away from the cloud path.
	localServer, err := local.New(local.Deps{
		Config:     cfg.Local,
		Security:   cfg.Security,
		Logger:     log,
		Dispatcher: dispatcher,
		Bus:        bus,
		Keys:       keys,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating local server: %w", err)
	}
	if startErr := localServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting local server: %w", startErr)
	}
	defer func() {
		log.Info("stopping local server")
		if closeErr := localServer.Close(); closeErr != nil {
			log.Error("error closing local server", "error", closeErr)
		}
	}()
	log.Info("local server listening",
		"host", cfg.Local.Host,
		"port", cfg.Local.Port,
	)

	cloudChannel.SetClaimFilter(localServer.Channel().ClaimsCommand)
	if startErr := cloudChannel.Start(ctx); startErr != nil {
		return fmt.Errorf("starting cloud channel: %w", startErr)
	}

	// Relay fans events out to cloud, local clients, and the bus
	relay := hub.NewRelay(cloudChannel, localServer.Channel(), bus)
	relay.SetLogger(log)

	// Audit recorder persists logged actions and rebroadcasts them
	audit.NewRecorder(auditRepo, relay, log).Attach(bus)

	// Connect to InfluxDB telemetry (optional)
	teleClient, err := telemetry.Connect(cfg.Telemetry)
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
		log.Info("telemetry disabled")
	case err != nil:
		return fmt.Errorf("connecting to telemetry: %w", err)
	default:
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := teleClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		teleClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		teleClient.Attach(bus)
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, cloudClient, localServer, teleClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Telemetry (if enabled)
	// 2. Local server
	// 3. Cloud connection
	// 4. Database

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// teleClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, cloudClient *cloud.Client, localServer *local.Server, teleClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := cloudClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cloud: %w", err)
	}
	if err := localServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("local: %w", err)
	}
	if teleClient != nil {
		if err := teleClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	return nil
}
