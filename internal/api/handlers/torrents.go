// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/torcapp/torc/internal/torrentd"
)

// torrentController covers the backend operations this handler forwards
// (*torrentd.Session satisfies it). Every call degrades to false when the
// backend is unreachable, so handlers report success flags, never 5xx.
type torrentController interface {
	AddTorrent(ctx context.Context, magnetLink, savePath string) bool
	PauseTorrent(ctx context.Context, hash string) bool
	ResumeTorrent(ctx context.Context, hash string) bool
	DeleteTorrent(ctx context.Context, hash string, deleteFiles bool) bool
}

type TorrentsHandler struct {
	collection *torrentd.Collection
	session    torrentController
}

func NewTorrentsHandler(collection *torrentd.Collection, session torrentController) *TorrentsHandler {
	return &TorrentsHandler{
		collection: collection,
		session:    session,
	}
}

type addTorrentRequest struct {
	MagnetLink string `json:"magnetLink"`
	SavePath   string `json:"savePath"`
}

type torrentListResponse struct {
	Torrents []*torrentd.Torrent `json:"torrents"`
	Total    int                 `json:"total"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// truncateExpr shortens long filter expressions for cleaner logging.
func truncateExpr(expr string, maxLen int) string {
	if len(expr) <= maxLen {
		return expr
	}
	return expr[:maxLen-3] + "..."
}

// ListTorrents serves the tracked collection with optional search and
// filter narrowing.
func (h *TorrentsHandler) ListTorrents(w http.ResponseWriter, r *http.Request) {
	opts := torrentd.ListOptions{
		Search: r.URL.Query().Get("search"),
		Filter: r.URL.Query().Get("filter"),
	}

	if opts.Filter != "" {
		log.Debug().Str("expr", truncateExpr(opts.Filter, 150)).Msg("Torrent list filter")
	}

	torrents, err := h.collection.List(opts)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid filter expression")
		return
	}

	RespondJSON(w, http.StatusOK, torrentListResponse{
		Torrents: torrents,
		Total:    len(torrents),
	})
}

// AddTorrent validates the magnet link locally, then forwards it. An
// unparseable magnet is the caller's mistake and gets a 400; a backend that
// will not take it comes back as success=false.
func (h *TorrentsHandler) AddTorrent(w http.ResponseWriter, r *http.Request) {
	var req addTorrentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.MagnetLink = strings.TrimSpace(req.MagnetLink)
	if req.MagnetLink == "" {
		RespondError(w, http.StatusBadRequest, "Magnet link is required")
		return
	}

	magnet, err := metainfo.ParseMagnetUri(req.MagnetLink)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid magnet link")
		return
	}

	success := h.session.AddTorrent(r.Context(), req.MagnetLink, req.SavePath)
	log.Debug().
		Str("infohash", magnet.InfoHash.HexString()).
		Str("savePath", req.SavePath).
		Bool("success", success).
		Msg("Add torrent")

	RespondJSON(w, http.StatusOK, successResponse{Success: success})
}

// PauseTorrent pauses one torrent by hash.
func (h *TorrentsHandler) PauseTorrent(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	success := h.session.PauseTorrent(r.Context(), hash)
	RespondJSON(w, http.StatusOK, successResponse{Success: success})
}

// ResumeTorrent resumes one torrent by hash.
func (h *TorrentsHandler) ResumeTorrent(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	success := h.session.ResumeTorrent(r.Context(), hash)
	RespondJSON(w, http.StatusOK, successResponse{Success: success})
}

// DeleteTorrent removes one torrent, optionally with its downloaded data
// (?deleteFiles=true). Anything but "true" keeps the files.
func (h *TorrentsHandler) DeleteTorrent(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	deleteFiles := strings.EqualFold(r.URL.Query().Get("deleteFiles"), "true")

	success := h.session.DeleteTorrent(r.Context(), hash, deleteFiles)
	RespondJSON(w, http.StatusOK, successResponse{Success: success})
}
