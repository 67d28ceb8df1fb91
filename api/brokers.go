package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aurumiq/aurumiq/fyers"
)

func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		s.writeError(w, http.StatusBadRequest, fyers.ErrNotConfigured)
		return
	}
	url, err := s.broker.AuthURL()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

func (s *Server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		s.writeError(w, http.StatusBadRequest, fyers.ErrNotConfigured)
		return
	}

	var payload struct {
		AuthCode string `json:"auth_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.AuthCode == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("auth_code is required"))
		return
	}

	if err := s.broker.ExchangeCode(r.Context(), payload.AuthCode); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	// Token accepted: open legs can be priced again, wake the poller.
	s.RefreshWatchSet()
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "broker connected"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		s.writeError(w, http.StatusBadRequest, fyers.ErrNotConfigured)
		return
	}
	if !s.broker.IsAuthenticated() {
		s.writeError(w, http.StatusUnauthorized, fyers.ErrNotAuthenticated)
		return
	}

	profile, err := s.broker.Profile(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}
