// MoIP Manager - Video Matrix Integration Layer
//
// This is the main entry point for the MoIP Manager daemon. The manager
// fronts a Media-over-IP video matrix controller with:
//   - A management REST API and WebSocket event stream
//   - A persistent device inventory reconciled against the controller
//   - Configuration snapshots (routing and device names)
//   - Optional MQTT command/event integration and InfluxDB telemetry
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/bbellwfu/moip-manager/migrations"

	"github.com/bbellwfu/moip-manager/internal/api"
	"github.com/bbellwfu/moip-manager/internal/events"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/config"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/database"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/influxdb"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/logging"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/mqtt"
	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip/rest"
	"github.com/bbellwfu/moip-manager/internal/moip/telnet"
	"github.com/bbellwfu/moip-manager/internal/reconcile"
	"github.com/bbellwfu/moip-manager/internal/settings"
	"github.com/bbellwfu/moip-manager/internal/snapshot"
	"github.com/bbellwfu/moip-manager/internal/telemetry"
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

// configFlag overrides the config path when set; it beats MOIP_CONFIG.
var configFlag = flag.String("config", "", "path to configuration file")

func main() {
	flag.Parse()

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting MoIP Manager",
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

	// Repositories and the settings store
	invRepo := inventory.NewSQLiteRepository(db.DB)
	snapRepo := snapshot.NewSQLiteRepository(db.DB)
	settingsStore := settings.NewStore(db.DB, cfg.Controller)

	resolved, err := settingsStore.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving controller settings: %w", err)
	}
	log.Info("controller settings resolved",
		"host", resolved.Host,
		"telnet_port", resolved.TelnetPort,
		"api_port", resolved.APIPort,
	)

	// buildController wires a fresh set of protocol clients and the engines
	// that sit on them. The API server calls it again after a settings
	// update; tracker keeps the MQTT command handlers and the telemetry
	// collector on the latest bundle.
	buildController := func(cs settings.ControllerSettings) *api.Controller {
		line := telnet.New(telnet.Config{
			Host:    cs.Host,
			Port:    cs.TelnetPort,
			Timeout: cs.Timeout,
		})
		restClient := rest.New(rest.Config{
			Host:      cs.Host,
			Port:      cs.APIPort,
			Username:  cs.Username,
			Password:  cs.Password,
			VerifySSL: cs.VerifySSL,
			Timeout:   cs.Timeout,
		})
		return &api.Controller{
			Line:       line,
			API:        restClient,
			Reconciler: reconcile.New(line, restClient, invRepo, log),
			Snapshots:  snapshot.New(line, restClient, snapRepo, invRepo, log),
		}
	}

	tracker := newControllerTracker(buildController(resolved))

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event bus: MQTT events plus the WebSocket broadcast, which the API
	// server installs when it starts. A nil interface keeps the bus inert
	// when MQTT is disabled.
	var broker events.Broker
	if mqttClient != nil {
		broker = mqttClient
	}
	bus := events.New(broker, byte(cfg.MQTT.QoS), nil, log)

	// Inbound MQTT commands drive the matrix through the same line protocol
	// path the REST API uses.
	if err := subscribeCommands(bus, tracker, influxClient, cfg); err != nil {
		return fmt.Errorf("subscribing to MQTT commands: %w", err)
	}

	// Video telemetry collector (requires InfluxDB)
	if cfg.Telemetry.Enabled && influxClient != nil {
		collector := telemetry.New(tracker, invRepo, influxClient, log, cfg.Telemetry)
		go collector.Run(ctx)
	} else {
		log.Info("video telemetry disabled")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:          cfg.API,
		WS:              cfg.WebSocket,
		Auth:            cfg.Auth,
		Logger:          log,
		DB:              db.DB,
		Inventory:       invRepo,
		Settings:        settingsStore,
		SnapshotRepo:    snapRepo,
		Controller:      tracker.current(),
		BuildController: tracker.rebuild(buildController),
		Events:          bus,
		MQTT:            mqttClient,
		Influx:          influxClient,
		Version:         version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Opening reconciliation pass is best-effort: the controller may be
	// offline or not yet configured, and the manager must still come up.
	if resolved.Host != "" {
		if result, syncErr := tracker.current().Reconciler.Run(ctx); syncErr != nil {
			log.Warn("initial reconciliation failed; inventory may be stale", "error", syncErr)
		} else {
			log.Info("initial reconciliation complete",
				"tx_synced", result.TxSynced,
				"rx_synced", result.RxSynced,
			)
			bus.SyncCompleted(result)
		}
	} else {
		log.Info("controller host not configured; skipping initial reconciliation")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("MoIP Manager stopped")
	return nil
}

// getConfigPath returns the configuration file path: -config flag, then the
// MOIP_CONFIG environment variable, then the default.
func getConfigPath() string {
	if *configFlag != "" {
		return *configFlag
	}
	if path := os.Getenv("MOIP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB are skipped when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// The controller is deliberately not probed here: it is external
	// hardware and its absence must not stop the manager from starting.

	return nil
}

// controllerTracker keeps long-lived consumers (MQTT command handlers, the
// telemetry collector) pointed at the active controller bundle. The API
// server swaps bundles on settings updates; routing every rebuild through
// the tracker keeps everyone on the same clients.
type controllerTracker struct {
	mu   sync.RWMutex
	ctrl *api.Controller
}

func newControllerTracker(ctrl *api.Controller) *controllerTracker {
	return &controllerTracker{ctrl: ctrl}
}

// current returns the active bundle.
func (t *controllerTracker) current() *api.Controller {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctrl
}

// rebuild wraps a build function so every rebuilt bundle is recorded here
// before the API server adopts it.
func (t *controllerTracker) rebuild(build api.BuildControllerFunc) api.BuildControllerFunc {
	return func(cs settings.ControllerSettings) *api.Controller {
		ctrl := build(cs)
		t.mu.Lock()
		t.ctrl = ctrl
		t.mu.Unlock()
		return ctrl
	}
}

// TransmitterVideo implements telemetry.VideoSource against the active bundle.
func (t *controllerTracker) TransmitterVideo(ctx context.Context, index int) (*rest.VideoTx, error) {
	return t.current().API.TransmitterVideo(ctx, index)
}

// subscribeCommands wires inbound MQTT matrix commands to the line protocol.
// Each command runs under its own timeout since MQTT handlers have no
// request context.
func subscribeCommands(bus *events.Bus, tracker *controllerTracker, influxClient *influxdb.Client, cfg *config.Config) error {
	timeout := cfg.GetControllerTimeout()

	return bus.SubscribeCommands(
		func(tx, rx int) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			ok, err := tracker.current().Line.Switch(ctx, tx, rx)
			if err != nil {
				return fmt.Errorf("switch tx=%d rx=%d: %w", tx, rx, err)
			}
			if !ok {
				return fmt.Errorf("controller rejected switch tx=%d rx=%d", tx, rx)
			}

			bus.RoutingChanged(tx, rx, "mqtt")
			if influxClient != nil {
				influxClient.WriteRoutingEvent(tx, rx, "mqtt")
			}
			return nil
		},
		func(rx int, command string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			ok, err := tracker.current().Line.SendCECCommand(ctx, rx, command)
			if err != nil {
				return fmt.Errorf("cec %s rx=%d: %w", command, rx, err)
			}
			if !ok {
				return fmt.Errorf("controller rejected cec %s rx=%d", command, rx)
			}
			return nil
		},
	)
}
