// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"

	"github.com/torcapp/torc/internal/metrics"
)

// subnetScanner runs one sweep of the local subnet (*discovery.Scanner
// satisfies it).
type subnetScanner interface {
	Scan(ctx context.Context) []string
}

type DiscoveryHandler struct {
	scanner subnetScanner
}

func NewDiscoveryHandler(scanner subnetScanner) *DiscoveryHandler {
	return &DiscoveryHandler{scanner: scanner}
}

type discoveryResponse struct {
	Servers []string `json:"servers"`
}

// Scan sweeps the local subnet and returns the backends that answered. The
// request blocks until the sweep settles; with the tight per-probe timeout
// that stays well under a second.
func (h *DiscoveryHandler) Scan(w http.ResponseWriter, r *http.Request) {
	metrics.DiscoveryScansTotal.Inc()

	servers := h.scanner.Scan(r.Context())
	metrics.DiscoveryServersFound.Set(float64(len(servers)))

	RespondJSON(w, http.StatusOK, discoveryResponse{Servers: servers})
}
