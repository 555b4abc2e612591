// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTorrentList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/torrent/list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{
				"hash": "abc123",
				"name": "arch-linux.iso",
				"size": 1073741824,
				"progress": 0.75,
				"downloadSpeed": 1536,
				"uploadSpeed": 512,
				"eta": 3661,
				"state": "downloading",
				"savePath": "/downloads",
				"downloaded": 805306368
			}
		]`))
	}))
	defer srv.Close()

	torrents, err := NewClient(srv.URL).TorrentList(t.Context())
	require.NoError(t, err)
	require.Len(t, torrents, 1)

	snap := torrents[0]
	assert.Equal(t, "abc123", snap.Hash)
	assert.Equal(t, "arch-linux.iso", snap.Name)
	assert.Equal(t, int64(1073741824), snap.Size)
	assert.Equal(t, 0.75, snap.Progress)
	assert.Equal(t, int64(1536), snap.DownloadSpeed)
	assert.Equal(t, int64(512), snap.UploadSpeed)
	assert.Equal(t, int64(3661), snap.ETA)
	assert.Equal(t, "downloading", snap.State)
	assert.Equal(t, "/downloads", snap.SavePath)
	assert.Equal(t, int64(805306368), snap.Downloaded)
}

func TestClientDriveList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/system/drives", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"/mnt/storage","totalBytes":2000,"freeBytes":500,"usedBytes":1500}]`))
	}))
	defer srv.Close()

	drives, err := NewClient(srv.URL).DriveList(t.Context())
	require.NoError(t, err)
	require.Len(t, drives, 1)
	assert.Equal(t, "/mnt/storage", drives[0].Name)
	assert.Equal(t, int64(1500), drives[0].UsedBytes)
	assert.Equal(t, "75.0%", drives[0].UsedPercent())
}

func TestClientAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/torrent/add", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "magnet:?xt=urn:btih:abc", payload["magnetLink"])
		assert.Equal(t, "/downloads", payload["savePath"])
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Add(t.Context(), "magnet:?xt=urn:btih:abc", "/downloads")
	assert.NoError(t, err)
}

func TestClientPauseResumeDelete(t *testing.T) {
	type call struct {
		method string
		path   string
		query  string
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery})
		mu.Unlock()
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := t.Context()

	require.NoError(t, client.Pause(ctx, "abc123"))
	require.NoError(t, client.Resume(ctx, "abc123"))
	require.NoError(t, client.Delete(ctx, "abc123", true))
	require.NoError(t, client.Delete(ctx, "abc123", false))

	require.Len(t, calls, 4)
	assert.Equal(t, call{method: http.MethodPost, path: "/api/torrent/pause/abc123"}, calls[0])
	assert.Equal(t, call{method: http.MethodPost, path: "/api/torrent/resume/abc123"}, calls[1])
	assert.Equal(t, call{method: http.MethodDelete, path: "/api/torrent/delete/abc123", query: "deleteFiles=true"}, calls[2])
	assert.Equal(t, call{method: http.MethodDelete, path: "/api/torrent/delete/abc123", query: "deleteFiles=false"}, calls[3])
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		call        func(ctx context.Context, c *Client) error
		expectedErr error
	}{
		{
			name: "non-2xx is a protocol failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			call: func(ctx context.Context, c *Client) error {
				_, err := c.TorrentList(ctx)
				return err
			},
			expectedErr: ErrProtocol,
		},
		{
			name: "garbage body is a parse failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>definitely not json</html>"))
			},
			call: func(ctx context.Context, c *Client) error {
				_, err := c.TorrentList(ctx)
				return err
			},
			expectedErr: ErrParse,
		},
		{
			name: "404 on action is a protocol failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			call: func(ctx context.Context, c *Client) error {
				return c.Pause(ctx, "missing")
			},
			expectedErr: ErrProtocol,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var requests int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				tt.handler(w, r)
			}))
			defer srv.Close()

			err := tt.call(t.Context(), NewClient(srv.URL))
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, 1, requests, "failed calls must not be retried")
		})
	}
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL).TorrentList(t.Context())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClientUserAgentOnEveryRequest(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		if r.URL.Path == "/api/torrent/list" || r.URL.Path == "/api/system/drives" {
			w.Write([]byte("[]"))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := t.Context()

	_, err := client.TorrentList(ctx)
	require.NoError(t, err)
	_, err = client.DriveList(ctx)
	require.NoError(t, err)
	require.NoError(t, client.Add(ctx, "magnet:?xt=urn:btih:abc", "/downloads"))
	require.NoError(t, client.Pause(ctx, "abc"))
	require.NoError(t, client.Resume(ctx, "abc"))
	require.NoError(t, client.Delete(ctx, "abc", false))

	require.Len(t, agents, 6)
	for _, agent := range agents {
		assert.Contains(t, agent, "torc/")
	}
}
