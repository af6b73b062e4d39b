package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/backend"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/config"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/database"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/game"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geolocation"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/handler/health"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/identity"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/migrations"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/poller"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/relay"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/server"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	mode, err := game.ModeByName(cfg.GameMode)
	if err != nil {
		return err
	}

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	kv := store.New(db)
	ids := identity.NewProvider(kv)

	// --- Location ---
	var feed *geolocation.Feed
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	if f, ok := provider.(*geolocation.Feed); ok {
		feed = f
	}
	tracker := geolocation.NewTracker(provider, geolocation.Config{
		FixTimeout:      cfg.FixTimeout,
		StaleAfter:      cfg.StaleAfter,
		StaleCheckEvery: cfg.StaleCheckEvery,
	}, logger)

	// --- Game ---
	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	runner := game.NewRunner(mode, game.Config{
		GameRef: cfg.GameRef,
		Poll: poller.Config{
			Interval: cfg.PollInterval,
			Epsilon:  cfg.MoveEpsilon,
		},
	}, api, ids, tracker, logger)

	checks := map[string]health.Checker{
		"sqlite":  health.CheckerFunc(kv.Ping),
		"backend": health.CheckerFunc(api.Ping),
	}

	// --- Redis (optional) ---
	var rl *relay.Relay
	if cfg.RedisURL != "" {
		rl, err = relay.Open(ctx, cfg.RedisURL, relay.DefaultChannel, logger)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rl.Close()
		checks["redis"] = rl
		logger.Info("relaying snapshots to redis", "channel", rl.Channel())
	}

	broker := server.NewBroker()
	runner.OnChange(func(s game.Snapshot) {
		broker.Publish(server.TopicSession, s)
		if rl != nil {
			rl.Offer(s)
		}
	})
	tracker.OnChange(func(geolocation.State) { runner.Notify() })

	deps := server.Deps{
		Session:          runner,
		Identity:         ids,
		Broker:           broker,
		Checks:           checks,
		MinMarkerSpacing: cfg.MinMarkerSpacing,
		SPADir:           cfg.SPADir,
	}
	if feed != nil {
		deps.Positions = feed
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, deps)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting location tracker", "source", cfg.LocationSource)
		return tracker.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting session", "mode", mode.Name, "game_ref", cfg.GameRef)
		return runner.Run(gctx)
	})

	if rl != nil {
		g.Go(func() error {
			return rl.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func newProvider(cfg *config.Config) (geolocation.Provider, error) {
	switch cfg.LocationSource {
	case "static":
		return geolocation.Static{
			Position: geolocation.Position{Lat: cfg.StaticLat, Lng: cfg.StaticLng},
			Every:    cfg.StaleAfter / 3,
		}, nil
	case "replay":
		r, err := geolocation.LoadReplay(cfg.ReplayFile, cfg.ReplayStep)
		if err != nil {
			return nil, fmt.Errorf("loading replay: %w", err)
		}
		return r, nil
	default:
		return geolocation.NewFeed(), nil
	}
}
