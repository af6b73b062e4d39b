package server

import (
	"errors"
	"net/http"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/backend"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/game"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geolocation"
)

type AnswerRequest struct {
	Answer string `json:"answer"`
}

func handleSessionGet(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSessionStart(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Start(r.Context()); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSessionAnswer(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := sess.SubmitAnswer(r.Context(), req.Answer); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSessionCollect(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Collect(r.Context()); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSessionContinue(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Continue(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSessionDismiss(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Dismiss(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSessionRestart(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Restart(r.Context()); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	var (
		posErr    *geolocation.PositionError
		statusErr *backend.StatusError
	)
	switch {
	case errors.Is(err, game.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrWrongState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrRejected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNoFix):
		writeError(w, http.StatusConflict, "waiting for a location fix")
	case errors.Is(err, game.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, "session is not running")
	case errors.As(err, &posErr):
		writeError(w, http.StatusForbidden, posErr.Code.UserMessage())
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, "game server returned an error")
	default:
		writeError(w, http.StatusBadGateway, "game server unavailable")
	}
}
