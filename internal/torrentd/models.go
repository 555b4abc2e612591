// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

// TorrentSnapshot is one torrent exactly as the backend's list endpoint
// reports it. Snapshots are throwaway wire values; the tracked state lives in
// Torrent.
type TorrentSnapshot struct {
	Hash          string  `json:"hash"`
	Name          string  `json:"name"`
	Size          int64   `json:"size"`
	Progress      float64 `json:"progress"`
	DownloadSpeed int64   `json:"downloadSpeed"`
	UploadSpeed   int64   `json:"uploadSpeed"`
	ETA           int64   `json:"eta"`
	State         string  `json:"state"`
	SavePath      string  `json:"savePath"`
	Downloaded    int64   `json:"downloaded"`
}

// Torrent is the tracked, long-lived representation of one torrent. Raw
// fields mirror the snapshot; the formatted strings are derived from them and
// re-rendered only when the owning raw field changes.
type Torrent struct {
	Hash          string  `json:"hash"`
	Name          string  `json:"name"`
	Size          int64   `json:"size"`
	Progress      float64 `json:"progress"`
	DownloadSpeed int64   `json:"downloadSpeed"`
	UploadSpeed   int64   `json:"uploadSpeed"`
	ETA           int64   `json:"eta"`
	State         string  `json:"state"`
	SavePath      string  `json:"savePath"`
	Downloaded    int64   `json:"downloaded"`

	SizeFormatted          string `json:"sizeFormatted"`
	ProgressFormatted      string `json:"progressFormatted"`
	DownloadSpeedFormatted string `json:"downloadSpeedFormatted"`
	UploadSpeedFormatted   string `json:"uploadSpeedFormatted"`
	ETAFormatted           string `json:"etaFormatted"`
	DownloadedFormatted    string `json:"downloadedFormatted"`
}

// NewTorrent builds a tracked torrent from a snapshot with every derived
// string rendered.
func NewTorrent(snap TorrentSnapshot) *Torrent {
	return &Torrent{
		Hash:          snap.Hash,
		Name:          snap.Name,
		Size:          snap.Size,
		Progress:      snap.Progress,
		DownloadSpeed: snap.DownloadSpeed,
		UploadSpeed:   snap.UploadSpeed,
		ETA:           snap.ETA,
		State:         snap.State,
		SavePath:      snap.SavePath,
		Downloaded:    snap.Downloaded,

		SizeFormatted:          FormatBytes(snap.Size),
		ProgressFormatted:      FormatProgress(snap.Progress),
		DownloadSpeedFormatted: FormatSpeed(snap.DownloadSpeed),
		UploadSpeedFormatted:   FormatSpeed(snap.UploadSpeed),
		ETAFormatted:           FormatETA(snap.ETA),
		DownloadedFormatted:    FormatBytes(snap.Downloaded),
	}
}

// FieldChange is one changed field on one torrent. Raw fields carry the new
// raw value; derived fields carry the freshly rendered string.
type FieldChange struct {
	Hash  string `json:"hash"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// DriveUsage is one storage drive as reported by the backend.
type DriveUsage struct {
	Name       string `json:"name"`
	TotalBytes int64  `json:"totalBytes"`
	FreeBytes  int64  `json:"freeBytes"`
	UsedBytes  int64  `json:"usedBytes"`
}

// UsedPercent renders the used share in the same one-decimal style as
// torrent progress. A drive reporting zero total renders as "0.0%".
func (d DriveUsage) UsedPercent() string {
	if d.TotalBytes <= 0 {
		return FormatProgress(0)
	}
	return FormatProgress(float64(d.UsedBytes) / float64(d.TotalBytes))
}

// ConnectionState is the session's externally visible state.
type ConnectionState struct {
	Connected bool   `json:"connected"`
	BaseURL   string `json:"baseUrl"`
}
