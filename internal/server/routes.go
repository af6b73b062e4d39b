package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/game"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geolocation"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/handler/health"
)

// Session is the running game session the API drives.
type Session interface {
	Snapshot() game.Snapshot
	Start(ctx context.Context) error
	SubmitAnswer(ctx context.Context, answer string) error
	Collect(ctx context.Context) error
	Continue() error
	Dismiss() error
	Restart(ctx context.Context) error
}

type Identity interface {
	GetOrCreateUserID(ctx context.Context) (string, error)
}

// PositionSink receives fixes pushed by the device.
type PositionSink interface {
	Push(p geolocation.Position)
	Fail(err error)
}

type Deps struct {
	Session  Session
	Identity Identity
	// Positions is nil unless the device feeds locations over /ws/position.
	Positions        PositionSink
	Broker           *Broker
	Checks           map[string]health.Checker
	MinMarkerSpacing float64
	SPADir           string
}

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	broker := deps.Broker
	if broker == nil {
		broker = NewBroker()
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Twimp Agent API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	if deps.Positions != nil {
		r.Get("/ws/position", handlePositionFeed(logger, deps.Positions))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireJSON)
		r.Get("/identity", handleIdentity(deps.Identity))

		r.Get("/session", handleSessionGet(deps.Session))
		r.Get("/session/events", handleEvents(broker, deps.Session))
		r.Post("/session/start", handleSessionStart(deps.Session))
		r.Post("/session/answer", handleSessionAnswer(deps.Session))
		r.Post("/session/collect", handleSessionCollect(deps.Session))
		r.Post("/session/continue", handleSessionContinue(deps.Session))
		r.Post("/session/dismiss", handleSessionDismiss(deps.Session))
		r.Post("/session/restart", handleSessionRestart(deps.Session))

		r.Post("/trails/validate", handleTrailValidate(deps.MinMarkerSpacing))
		r.Post("/trails/can-place", handleTrailCanPlace(deps.MinMarkerSpacing))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
