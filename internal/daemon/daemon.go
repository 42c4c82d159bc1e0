package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"flight_surety/internal/api"
	"flight_surety/internal/config"
	"flight_surety/internal/database"
	"flight_surety/internal/events"
	"flight_surety/internal/feed"
	"flight_surety/internal/models"
	"flight_surety/internal/scheduler"
	"flight_surety/internal/surety"
	"flight_surety/internal/tasks"

	"golang.org/x/sync/errgroup"
)

const (
	subscriberBuffer = 1024
	shutdownTimeout  = 5 * time.Second
)

// Daemon represents the main daemon structure
type Daemon struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       *config.Config
	scheduler *scheduler.Scheduler
	database  database.Repository
	bus       *events.Broadcaster
	surety    *surety.Surety
	collector *tasks.EventCollector
	responder *tasks.OracleResponder
	feed      *feed.Client
	board     *feed.Board
	handler   http.Handler
	server    *http.Server
	done      chan struct{}
	err       error
}

// New creates a new daemon instance, restoring the last saved state if any
func New(cfg *config.Config) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.New(cfg.DBPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	bus := events.NewBroadcaster()
	wallets := surety.NewWallets()

	s, err := surety.New(surety.Params{
		Owner:           cfg.Owner,
		GenesisName:     cfg.GenesisName,
		MinimumFunds:    cfg.Limits.MinimumFunds,
		RegistrationFee: cfg.Limits.RegistrationFee,
		MaxInsurance:    cfg.Limits.MaxInsurance,
	}, surety.WithPublisher(bus), surety.WithPayer(wallets))
	if err != nil {
		cancel()
		db.Close()
		return nil, fmt.Errorf("failed to initialize surety: %w", err)
	}

	snap, found, err := db.SnapshotRepository().Load()
	if err != nil {
		cancel()
		db.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if found {
		if err := s.Restore(*snap); err != nil {
			cancel()
			db.Close()
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
		slog.Info("State restored from snapshot",
			"taken_at", snap.TakenAt,
			"airlines", len(snap.Airlines),
			"flights", len(snap.Flights),
			"policies", len(snap.Policies),
		)
	}

	sched := scheduler.New(ctx)
	sched.AddTask(tasks.NewSnapshotTask(s, db.SnapshotRepository(), cfg.SnapshotInterval))

	collector := tasks.NewEventCollectorWithConfig(
		db.EventRepository(),
		bus.Subscribe("journal", subscriberBuffer),
		cfg.Journal.BatchSize,
		cfg.Journal.FlushInterval,
	)

	board := feed.NewBoard()

	var responder *tasks.OracleResponder
	if cfg.Oracles.Count > 0 {
		oracles := make([]models.Address, cfg.Oracles.Count)
		for i := range oracles {
			oracles[i] = models.Address(fmt.Sprintf("0xoracle%02d", i))
		}
		responder = tasks.NewOracleResponder(s, board, bus.Subscribe("oracles", subscriberBuffer), oracles, cfg.Oracles.FallbackStatus)
	}

	var feedClient *feed.Client
	if cfg.FeedAddr != "" {
		feedClient = feed.NewClient(cfg.FeedAddr)
	}

	handler := api.NewRouter(api.NewHandler(s, db.EventRepository(), wallets)).Routes()

	return &Daemon{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		scheduler: sched,
		database:  db,
		bus:       bus,
		surety:    s,
		collector: collector,
		responder: responder,
		feed:      feedClient,
		board:     board,
		handler:   handler,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		done: make(chan struct{}),
	}, nil
}

// Surety returns the ledger served by the daemon
func (d *Daemon) Surety() *surety.Surety {
	return d.surety
}

// Handler returns the HTTP handler served on the configured address
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Done is closed once every background worker has returned
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Err returns the error that stopped the workers, if any. Valid after Done is closed.
func (d *Daemon) Err() error {
	return d.err
}

func (d *Daemon) Start() error {
	slog.Info("Starting daemon")

	if d.responder != nil {
		if err := d.responder.Register(); err != nil {
			slog.Error("Oracle responder disabled", "error", err)
			d.responder = nil
		}
	}

	d.scheduler.Start()

	g, gctx := errgroup.WithContext(d.ctx)

	g.Go(func() error {
		return ignoreCanceled(d.collector.Start(gctx))
	})

	if d.responder != nil {
		g.Go(func() error {
			return ignoreCanceled(d.responder.Start(gctx))
		})
	}

	if d.feed != nil {
		updates := make(chan feed.Update, 100)
		g.Go(func() error {
			return ignoreCanceled(d.feed.Stream(gctx, updates))
		})
		g.Go(func() error {
			return ignoreCanceled(d.board.Consume(gctx, updates))
		})
	}

	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return d.server.Shutdown(ctx)
	})

	go func() {
		d.err = g.Wait()
		if d.err != nil {
			slog.Error("Daemon worker failed", "error", d.err)
		}
		close(d.done)
	}()

	slog.Info("Daemon started successfully", "http_addr", d.cfg.HTTPAddr, "feed_addr", d.cfg.FeedAddr)
	return nil
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop() error {
	slog.Info("Stopping daemon")
	d.cancel()
	<-d.done

	// runs the final snapshot
	d.scheduler.Stop()

	d.bus.Close()

	if d.feed != nil {
		if err := d.feed.Close(); err != nil {
			slog.Error("Error closing status feed", "error", err)
		}
	}

	if err := d.database.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}

	slog.Info("Daemon stopped", "dropped_events", d.bus.Dropped())
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
