// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/torcapp/torc/internal/metrics"
	"github.com/torcapp/torc/internal/torrentd"
)

// connectionManager is the session surface this handler drives
// (*torrentd.Session satisfies it).
type connectionManager interface {
	Connect(ctx context.Context, host string, port int) bool
	Disconnect()
	State() torrentd.ConnectionState
	GetLastConnection(ctx context.Context) (string, int)
}

type ConnectionHandler struct {
	session connectionManager
}

func NewConnectionHandler(session connectionManager) *ConnectionHandler {
	return &ConnectionHandler{session: session}
}

type connectRequest struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type lastConnectionResponse struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// GetConnection returns the current connection state.
func (h *ConnectionHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.session.State())
}

// GetLastConnection returns the most recently persisted target, falling back
// to an empty host and the default port when nothing usable is stored.
func (h *ConnectionHandler) GetLastConnection(w http.ResponseWriter, r *http.Request) {
	host, port := h.session.GetLastConnection(r.Context())
	RespondJSON(w, http.StatusOK, lastConnectionResponse{Host: host, Port: port})
}

// Connect probes the requested backend and, on success, makes it the active
// connection. A backend that does not answer is not an HTTP error: the
// response is 200 with connected=false so clients read one shape either way.
func (h *ConnectionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Host) == "" {
		RespondError(w, http.StatusBadRequest, "Host is required")
		return
	}
	if req.Port < 0 || req.Port > 65535 {
		RespondError(w, http.StatusBadRequest, "Invalid port")
		return
	}

	connected := h.session.Connect(r.Context(), req.Host, req.Port)

	outcome := "failed"
	if connected {
		outcome = "ok"
	}
	metrics.ConnectAttemptsTotal.WithLabelValues(outcome).Inc()

	if !connected {
		log.Debug().Str("host", req.Host).Int("port", req.Port).Msg("Connection attempt failed")
	}

	RespondJSON(w, http.StatusOK, h.session.State())
}

// Disconnect drops the active connection. Disconnecting while already
// disconnected is a no-op.
func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.session.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}
