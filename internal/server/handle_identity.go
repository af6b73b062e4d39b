package server

import "net/http"

type IdentityResponse struct {
	UserID string `json:"userId"`
}

func handleIdentity(ids Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ids.GetOrCreateUserID(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, IdentityResponse{UserID: id})
	}
}
