package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geo"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/trail"
)

type TrailValidateResponse struct {
	Valid    bool            `json:"valid"`
	Problems []trail.Problem `json:"problems,omitempty"`
}

type CanPlaceRequest struct {
	Markers   []trail.Marker `json:"markers"`
	Candidate geo.Point      `json:"candidate"`
}

type CanPlaceResponse struct {
	OK             bool    `json:"ok"`
	ConflictIndex  *int    `json:"conflictIndex,omitempty"`
	DistanceMeters float64 `json:"distanceMeters,omitempty"`
	MinMeters      float64 `json:"minMeters"`
}

// handleTrailValidate checks a whole draft. Structural and semantic problems
// are both reported as a 400 with the problem list.
func handleTrailValidate(minMeters float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft, err := trail.ParseDraft(data)
		if err == nil {
			err = trail.Validate(draft, minMeters)
		}

		var verr *trail.ValidationError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, TrailValidateResponse{Valid: true})
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, TrailValidateResponse{Problems: verr.Problems})
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
	}
}

// handleTrailCanPlace answers whether the designer may drop a marker at the
// candidate position.
func handleTrailCanPlace(minMeters float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CanPlaceRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp := CanPlaceResponse{OK: true, MinMeters: minMeters}
		var tooClose *trail.TooCloseError
		if err := trail.CanPlace(req.Markers, req.Candidate, minMeters); errors.As(err, &tooClose) {
			resp.OK = false
			resp.ConflictIndex = &tooClose.Index
			resp.DistanceMeters = tooClose.DistanceMeters
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
