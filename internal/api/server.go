package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bbellwfu/moip-manager/internal/events"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/config"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/influxdb"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/logging"
	"github.com/bbellwfu/moip-manager/internal/infrastructure/mqtt"
	"github.com/bbellwfu/moip-manager/internal/inventory"
	"github.com/bbellwfu/moip-manager/internal/moip"
	"github.com/bbellwfu/moip-manager/internal/moip/rest"
	"github.com/bbellwfu/moip-manager/internal/reconcile"
	"github.com/bbellwfu/moip-manager/internal/settings"
	"github.com/bbellwfu/moip-manager/internal/snapshot"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// LineClient is the slice of the line protocol client the handlers use.
type LineClient interface {
	DeviceCounts(ctx context.Context) (moip.DeviceCounts, error)
	Routing(ctx context.Context) ([]moip.RoutingAssignment, error)
	Switch(ctx context.Context, tx, rx int) (bool, error)
	Names(ctx context.Context, kind moip.Kind) (map[int]string, error)
	SendCECCommand(ctx context.Context, rx int, command string) (bool, error)
	Ping(ctx context.Context) error
	Addr() string
}

// ControllerAPI is the slice of the structured API client the handlers use.
type ControllerAPI interface {
	SetGroupName(ctx context.Context, kind moip.Kind, id int, name string) error
	TransmitterVideo(ctx context.Context, index int) (*rest.VideoTx, error)
	ReceiverVideo(ctx context.Context, index int) (*rest.VideoRx, error)
	SetReceiverResolution(ctx context.Context, index int, resolution string) error
	SetReceiverHDCP(ctx context.Context, index int, hdcp string) error
	PreviewImage(ctx context.Context, index int) ([]byte, error)
	BaseInfo(ctx context.Context) (json.RawMessage, error)
	SystemStatus(ctx context.Context) (json.RawMessage, error)
	FirmwareInfo(ctx context.Context) (json.RawMessage, error)
	Ping(ctx context.Context) error
}

// Reconciler runs inventory reconciliation passes.
type Reconciler interface {
	Run(ctx context.Context) (reconcile.Result, error)
}

// SnapshotEngine captures and restores configuration snapshots.
type SnapshotEngine interface {
	Capture(ctx context.Context, name, description string) (*snapshot.Snapshot, error)
	Restore(ctx context.Context, id string, restoreRouting, restoreNames bool) (snapshot.RestoreResult, error)
}

// Controller bundles everything built from one set of resolved controller
// settings. A settings update swaps the whole bundle atomically so handlers
// never mix clients from different configurations.
type Controller struct {
	Line       LineClient
	API        ControllerAPI
	Reconciler Reconciler
	Snapshots  SnapshotEngine
}

// BuildControllerFunc constructs a controller bundle from resolved settings.
// Provided by the composition root so the server can rebuild clients after
// a settings change without knowing how they are wired.
type BuildControllerFunc func(cs settings.ControllerSettings) *Controller

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config          config.APIConfig
	WS              config.WebSocketConfig
	Auth            config.AuthConfig
	Logger          *logging.Logger
	DB              *sql.DB
	Inventory       inventory.Repository
	Settings        *settings.Store
	SnapshotRepo    snapshot.Repository
	Controller      *Controller
	BuildController BuildControllerFunc
	Events          *events.Bus
	MQTT            *mqtt.Client
	Influx          *influxdb.Client
	Version         string
}

// Server is the manager's HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	authCfg      config.AuthConfig
	logger       *logging.Logger
	db           *sql.DB
	inv          inventory.Repository
	settings     *settings.Store
	snapshotRepo snapshot.Repository
	events       *events.Bus
	mqtt         *mqtt.Client
	influx       *influxdb.Client
	version      string
	startTime    time.Time

	// ctrl is the active controller bundle, swapped on settings updates.
	ctrl   *Controller
	ctrlMu sync.RWMutex
	build  BuildControllerFunc

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller bundle is required")
	}
	// MQTT and InfluxDB are optional; the affected features degrade quietly.

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		authCfg:      deps.Auth,
		logger:       deps.Logger,
		db:           deps.DB,
		inv:          deps.Inventory,
		settings:     deps.Settings,
		snapshotRepo: deps.SnapshotRepo,
		ctrl:         deps.Controller,
		build:        deps.BuildController,
		events:       deps.Events,
		mqtt:         deps.MQTT,
		influx:       deps.Influx,
		version:      deps.Version,
		startTime:    time.Now(),
	}, nil
}

// controller returns the active controller bundle.
func (s *Server) controller() *Controller {
	s.ctrlMu.RLock()
	defer s.ctrlMu.RUnlock()
	return s.ctrl
}

// setController swaps the active controller bundle.
func (s *Server) setController(c *Controller) {
	s.ctrlMu.Lock()
	s.ctrl = c
	s.ctrlMu.Unlock()
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, wires the hub into the
// event bus, and launches the HTTP listener in a background goroutine. The
// server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Events produced anywhere in the manager now reach WebSocket clients.
	if s.events != nil {
		s.events.SetBroadcast(s.hub.Broadcast)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
