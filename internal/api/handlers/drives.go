// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"

	"github.com/torcapp/torc/internal/torrentd"
)

// driveLister fetches backend storage state (*torrentd.Session satisfies
// it); it returns an empty list when the backend is unreachable.
type driveLister interface {
	GetDrives(ctx context.Context) []torrentd.DriveUsage
}

type DrivesHandler struct {
	session driveLister
}

func NewDrivesHandler(session driveLister) *DrivesHandler {
	return &DrivesHandler{session: session}
}

// DriveResponse is one backend drive with human-readable renderings
// alongside the raw byte counts.
type DriveResponse struct {
	torrentd.DriveUsage
	TotalFormatted string `json:"totalFormatted"`
	FreeFormatted  string `json:"freeFormatted"`
	UsedFormatted  string `json:"usedFormatted"`
	UsedPercent    string `json:"usedPercent"`
}

type drivesResponse struct {
	Drives []DriveResponse `json:"drives"`
}

// ListDrives fetches drive usage live from the backend on every request.
func (h *DrivesHandler) ListDrives(w http.ResponseWriter, r *http.Request) {
	drives := h.session.GetDrives(r.Context())

	payload := make([]DriveResponse, 0, len(drives))
	for _, drive := range drives {
		payload = append(payload, DriveResponse{
			DriveUsage:     drive,
			TotalFormatted: torrentd.FormatBytes(drive.TotalBytes),
			FreeFormatted:  torrentd.FormatBytes(drive.FreeBytes),
			UsedFormatted:  torrentd.FormatBytes(drive.UsedBytes),
			UsedPercent:    drive.UsedPercent(),
		})
	}

	RespondJSON(w, http.StatusOK, drivesResponse{Drives: payload})
}
