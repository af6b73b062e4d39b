package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/game"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/trail"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse map[string]struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Twimp Agent API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Local API of the Twimp field agent: session state, player actions, and the trail designer.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health of the local store, the game server, and the optional relay.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws/position
	getPosition, _ := r.NewOperationContext(http.MethodGet, "/ws/position")
	getPosition.SetSummary("Device position feed")
	getPosition.SetDescription("Upgrades to a WebSocket. The device sends {lat,lng,accuracy?} or {error:{code,message}} frames; each is acknowledged.")
	getPosition.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getPosition)

	// GET /api/identity
	getIdentity, _ := r.NewOperationContext(http.MethodGet, "/api/identity")
	getIdentity.SetSummary("Player identity")
	getIdentity.SetDescription("Returns the anonymous user id, creating and persisting it on first use.")
	getIdentity.AddRespStructure(IdentityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getIdentity)

	// GET /api/session
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/session")
	getSession.SetSummary("Session snapshot")
	getSession.SetDescription("Returns the current state, progress, task, and off-screen indicator.")
	getSession.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getSession)

	// GET /api/session/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/session/events")
	getEvents.SetSummary("SSE snapshot stream")
	getEvents.SetDescription("Server-Sent Events stream of session snapshots, starting with the current one.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/session/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/session/start")
	postStart.SetSummary("Start playing")
	postStart.SetDescription("Registers the player's position with the game server and begins proximity polling.")
	postStart.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postStart)

	// POST /api/session/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/session/answer")
	postAnswer.SetSummary("Answer question")
	postAnswer.SetDescription("Submits an answer to the open question. A wrong answer keeps the question open with an inline error.")
	postAnswer.AddReqStructure(AnswerRequest{})
	postAnswer.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postAnswer)

	// POST /api/session/collect
	postCollect, _ := r.NewOperationContext(http.MethodPost, "/api/session/collect")
	postCollect.SetSummary("Collect item")
	postCollect.SetDescription("Collects the item at the current target.")
	postCollect.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postCollect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postCollect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postCollect)

	// POST /api/session/continue
	postContinue, _ := r.NewOperationContext(http.MethodPost, "/api/session/continue")
	postContinue.SetSummary("Continue")
	postContinue.SetDescription("Closes the success dialog and heads for the next target, or completes the game.")
	postContinue.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postContinue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postContinue)

	// POST /api/session/dismiss
	postDismiss, _ := r.NewOperationContext(http.MethodPost, "/api/session/dismiss")
	postDismiss.SetSummary("Dismiss dialog")
	postDismiss.SetDescription("Closes an arrival or question dialog and resumes polling.")
	postDismiss.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postDismiss.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postDismiss)

	// POST /api/session/restart
	postRestart, _ := r.NewOperationContext(http.MethodPost, "/api/session/restart")
	postRestart.SetSummary("Restart game")
	postRestart.SetDescription("Resets the player's progress on the game server and returns to the preview.")
	postRestart.AddRespStructure(game.Snapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postRestart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postRestart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadGateway))
	_ = r.AddOperation(postRestart)

	// POST /api/trails/validate
	postValidate, _ := r.NewOperationContext(http.MethodPost, "/api/trails/validate")
	postValidate.SetSummary("Validate trail draft")
	postValidate.SetDescription("Checks a custom trail draft: structure, name, questions, and minimum marker spacing.")
	postValidate.AddReqStructure(trail.Draft{})
	postValidate.AddRespStructure(TrailValidateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postValidate.AddRespStructure(TrailValidateResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postValidate)

	// POST /api/trails/can-place
	postCanPlace, _ := r.NewOperationContext(http.MethodPost, "/api/trails/can-place")
	postCanPlace.SetSummary("Check marker placement")
	postCanPlace.SetDescription("Reports whether a candidate marker keeps the minimum distance to every placed marker.")
	postCanPlace.AddReqStructure(CanPlaceRequest{})
	postCanPlace.AddRespStructure(CanPlaceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postCanPlace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postCanPlace)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
