package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

// SessionStateResponse is the JSON view of the session served at /api/session
type SessionStateResponse struct {
	Status   string          `json:"status"`
	Loading  bool            `json:"loading"`
	Identity *users.Identity `json:"identity"`
}

func (s *Server) SessionStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.session.State()
		writeJSON(w, http.StatusOK, SessionStateResponse{
			Status:   state.Status.String(),
			Loading:  state.Loading(),
			Identity: state.Identity,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}
