package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pobal-network/pobal/internal/api"
	"github.com/pobal-network/pobal/internal/app/coordinator"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/health"
	"github.com/pobal-network/pobal/internal/infra/chain"
	"github.com/pobal-network/pobal/internal/infra/metrics"
	"github.com/pobal-network/pobal/internal/infra/sqlite"
	"github.com/pobal-network/pobal/internal/logging"
	"github.com/pobal-network/pobal/internal/security"
)

// genesisKey is the node_info key holding the wall clock origin.
const genesisKey = "genesis_unix"

// Daemon is the pobal node runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Home    string
	DB      *sqlite.DB
	Clock   domain.Clock
	Engine  *coordinator.Engine
	Keypair *security.Keypair
	Health  *health.Checker
	Hub     *api.Hub
	Server  *api.Server
	Log     *logrus.Logger

	logCloser io.Closer
	cancel    context.CancelFunc
}

// Options adjust how a Daemon is assembled.
type Options struct {
	// Clock overrides the wall clock, e.g. a manual clock pinned by --block.
	Clock domain.Clock
}

// New loads the config and opens an initialized node.
func New(opts Options) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig opens the node stored under $POBAL_HOME.
// Returns domain.ErrNotInitialized if `pobal init` has not run.
func NewWithConfig(cfg Config, opts Options) (*Daemon, error) {
	d, err := open(cfg, opts)
	if err != nil {
		return nil, err
	}
	d.Engine, err = coordinator.Open(d.DB, d.Clock, d.engineOptions()...)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.wireServices()
	return d, nil
}

// Initialize creates the coordinator state owned by owner. An empty owner
// falls back to the config, then to the operator key.
func Initialize(cfg Config, opts Options, owner domain.Principal, interval domain.BlockHeight) (*Daemon, error) {
	d, err := open(cfg, opts)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		owner = domain.Principal(cfg.Node.Owner)
	}
	if owner == "" {
		owner = d.Keypair.Principal()
	}
	d.Engine, err = coordinator.Init(d.DB, d.Clock, owner, interval, d.engineOptions()...)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.wireServices()
	return d, nil
}

// open assembles the storage, clock, identity and logging layers.
func open(cfg Config, opts Options) (*Daemon, error) {
	home := pobalHome()

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	db, err := sqlite.Open(home)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	blocked := make([]domain.Principal, 0, len(cfg.Treasury.Blocked))
	for _, b := range cfg.Treasury.Blocked {
		blocked = append(blocked, domain.Principal(b))
	}
	db.SetBlocked(blocked)

	kp, err := security.LoadOrCreateKeypair(home)
	if err != nil {
		db.Close()
		closer.Close()
		return nil, fmt.Errorf("load keypair: %w", err)
	}

	d := &Daemon{
		Config:    cfg,
		Home:      home,
		DB:        db,
		Keypair:   kp,
		Hub:       api.NewHub(),
		Log:       logger,
		logCloser: closer,
	}

	d.Clock = opts.Clock
	if d.Clock == nil {
		d.Clock, err = d.wallClock()
		if err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

// wallClock loads the persisted genesis, recording now on first run.
func (d *Daemon) wallClock() (*chain.WallClock, error) {
	raw, err := d.DB.GetNodeInfo(genesisKey)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	var genesis time.Time
	if raw == "" {
		genesis = time.Now()
		if err := d.DB.SetNodeInfo(genesisKey, strconv.FormatInt(genesis.Unix(), 10)); err != nil {
			return nil, fmt.Errorf("write genesis: %w", err)
		}
	} else {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse genesis %q: %w", raw, err)
		}
		genesis = time.Unix(secs, 0)
	}
	return chain.NewWallClock(genesis, parseDuration(d.Config.Chain.BlockTime, chain.DefaultBlockTime)), nil
}

func (d *Daemon) engineOptions() []coordinator.Option {
	return []coordinator.Option{
		coordinator.WithLogger(logging.Component(d.Log, "coordinator")),
		coordinator.WithSink(logging.EventSink{Log: logging.Component(d.Log, "events")}),
		coordinator.WithSink(metrics.Sink{}),
		coordinator.WithSink(d.Hub),
		coordinator.WithObserver(metrics.ObserveState),
	}
}

func (d *Daemon) wireServices() {
	d.Health = health.NewChecker(d.DB, d.Engine, logging.Component(d.Log, "health"))

	srv := api.NewServer(d.Engine, d.DB, logging.Component(d.Log, "api"))
	srv.SetHealth(d.Health)
	srv.SetHub(d.Hub)
	if d.Config.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if d.Config.API.RequireSignatures {
		srv.RequireSignatures()
	}
	if d.Config.Treasury.Faucet {
		srv.EnableFaucet()
	}
	d.Server = srv
}

// Addr is the API listen address.
func (d *Daemon) Addr() string {
	return fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := d.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams stay open
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log := logging.Component(d.Log, "daemon")
	log.WithFields(logrus.Fields{
		"addr":     addr,
		"operator": d.Keypair.Principal().Short(),
		"height":   d.Clock.Height(),
	}).Info("serving")
	fmt.Printf("pobal serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	err := httpServer.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-done
		return err
	}
	<-done
	log.Info("stopped")
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.logCloser != nil {
		_ = d.logCloser.Close()
	}
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
