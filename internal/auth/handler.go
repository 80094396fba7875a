package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type tokenRequest struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type statusResponse struct {
	Authenticated bool  `json:"authenticated"`
	Verified      *bool `json:"verified,omitempty"`
}

// Token checks the credential from the extension's sign-in flow, stores it
// and hands back a session token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AccessToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "accessToken is required"})
		return
	}

	session, expiresAt, err := h.service.SignIn(r.Context(), req.AccessToken, req.ExpiresIn)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			return
		}
		slog.Error("sign in failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	slog.Info("session issued", "expiresAt", expiresAt)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: session, ExpiresAt: expiresAt})
}

// Status reports whether a usable credential is stored. With ?verify=true
// the token info endpoint is consulted as well.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Authenticated: h.service.Authenticated(r.Context())}

	if resp.Authenticated && r.URL.Query().Get("verify") == "true" {
		ok, err := h.service.Verify(r.Context())
		if err != nil {
			slog.Warn("verify token failed", "error", err)
		}
		resp.Verified = &ok
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	session := SessionIDFromContext(r.Context())
	if err := h.service.SignOut(r.Context()); err != nil {
		slog.Error("sign out failed", "error", err, "session", session)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	slog.Info("signed out", "session", session)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
