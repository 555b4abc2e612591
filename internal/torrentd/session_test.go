// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/torcapp/torc/internal/models"
)

func newSessionStore(t *testing.T) *models.SettingsStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(t.Context(), `
		CREATE TABLE settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	require.NoError(t, err, "Failed to create settings table")

	return models.NewSettingsStore(db)
}

type fakePinger struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (p *fakePinger) Ping(_ context.Context, baseURL string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, baseURL)
	return p.err
}

func (p *fakePinger) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("store unavailable")
}

func (brokenStore) SetMany(context.Context, map[string]string) error {
	return errors.New("store unavailable")
}

func TestSessionConnectSuccess(t *testing.T) {
	ctx := t.Context()
	pinger := &fakePinger{}
	session := NewSession(newSessionStore(t), pinger, time.Second)

	var transitions []ConnectionState
	session.SetChangeHandler(func(state ConnectionState) {
		transitions = append(transitions, state)
	})

	require.True(t, session.Connect(ctx, "192.168.1.50", 5000))

	assert.True(t, session.IsConnected())
	assert.Equal(t, ConnectionState{Connected: true, BaseURL: "http://192.168.1.50:5000"}, session.State())

	host, port := session.GetLastConnection(ctx)
	assert.Equal(t, "192.168.1.50", host)
	assert.Equal(t, 5000, port)

	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].Connected)

	pinger.mu.Lock()
	defer pinger.mu.Unlock()
	assert.Equal(t, []string{"http://192.168.1.50:5000"}, pinger.calls)
}

func TestSessionConnectFailureKeepsStoredConnection(t *testing.T) {
	ctx := t.Context()
	store := newSessionStore(t)
	require.NoError(t, store.SetMany(ctx, map[string]string{
		"last_host": "10.0.0.1",
		"last_port": "8080",
	}))

	pinger := &fakePinger{err: ErrTransport}
	session := NewSession(store, pinger, time.Second)

	assert.False(t, session.Connect(ctx, "192.168.1.99", 5000))
	assert.False(t, session.IsConnected())

	// A failed attempt must not clobber the previously persisted pair
	host, port := session.GetLastConnection(ctx)
	assert.Equal(t, "10.0.0.1", host)
	assert.Equal(t, 8080, port)
}

func TestSessionConnectFailureDropsActiveConnection(t *testing.T) {
	ctx := t.Context()
	pinger := &fakePinger{}
	session := NewSession(newSessionStore(t), pinger, time.Second)

	require.True(t, session.Connect(ctx, "192.168.1.50", 5000))

	pinger.mu.Lock()
	pinger.err = ErrTransport
	pinger.mu.Unlock()

	assert.False(t, session.Connect(ctx, "192.168.1.99", 5000))
	assert.False(t, session.IsConnected(), "failed reconnect must not leave the old backend active")
}

func TestSessionConnectStoreFailureStaysConnected(t *testing.T) {
	session := NewSession(brokenStore{}, &fakePinger{}, time.Second)

	// Persisting the pair is best effort; the live connection wins
	assert.True(t, session.Connect(t.Context(), "192.168.1.50", 5000))
	assert.True(t, session.IsConnected())
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	session := NewSession(newSessionStore(t), &fakePinger{}, time.Second)

	var transitions int
	session.SetChangeHandler(func(ConnectionState) { transitions++ })

	require.True(t, session.Connect(t.Context(), "192.168.1.50", 5000))
	session.Disconnect()
	session.Disconnect()

	assert.False(t, session.IsConnected())
	assert.Equal(t, 2, transitions, "repeat disconnects must not emit extra transitions")
}

func TestSessionGetLastConnectionSentinels(t *testing.T) {
	ctx := t.Context()

	t.Run("nothing stored", func(t *testing.T) {
		session := NewSession(newSessionStore(t), &fakePinger{}, time.Second)
		host, port := session.GetLastConnection(ctx)
		assert.Equal(t, "", host)
		assert.Equal(t, 5000, port)
	})

	t.Run("unusable stored port", func(t *testing.T) {
		store := newSessionStore(t)
		require.NoError(t, store.SetMany(ctx, map[string]string{
			"last_host": "nas",
			"last_port": "not-a-port",
		}))
		session := NewSession(store, &fakePinger{}, time.Second)
		host, port := session.GetLastConnection(ctx)
		assert.Equal(t, "nas", host)
		assert.Equal(t, 5000, port)
	})

	t.Run("store failure", func(t *testing.T) {
		session := NewSession(brokenStore{}, &fakePinger{}, time.Second)
		host, port := session.GetLastConnection(ctx)
		assert.Equal(t, "", host)
		assert.Equal(t, 5000, port)
	})
}

func TestSessionDisconnectedCallsReturnDefaults(t *testing.T) {
	ctx := t.Context()
	pinger := &fakePinger{}
	session := NewSession(newSessionStore(t), pinger, time.Second)

	torrents := session.ListTorrents(ctx)
	assert.NotNil(t, torrents)
	assert.Empty(t, torrents)

	drives := session.GetDrives(ctx)
	assert.NotNil(t, drives)
	assert.Empty(t, drives)

	assert.False(t, session.AddTorrent(ctx, "magnet:?xt=urn:btih:abc", "/downloads"))
	assert.False(t, session.PauseTorrent(ctx, "abc"))
	assert.False(t, session.ResumeTorrent(ctx, "abc"))
	assert.False(t, session.DeleteTorrent(ctx, "abc", false))

	// Disconnected short-circuit: no probe, no request
	assert.Zero(t, pinger.callCount())

	_, err := session.TorrentList(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionFailSoftAgainstBackend(t *testing.T) {
	ctx := t.Context()

	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.URL.Path {
		case "/api/torrent/ping":
			w.Write([]byte("online"))
		case "/api/torrent/list":
			w.Write([]byte(`[{"hash":"abc123","name":"arch-linux.iso","size":1024,"eta":59}]`))
		case "/api/system/drives":
			w.Write([]byte(`[{"name":"/mnt/storage","totalBytes":2000,"freeBytes":500,"usedBytes":1500}]`))
		}
	}))
	defer srv.Close()

	backend, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(backend.Port())
	require.NoError(t, err)

	session := NewSession(newSessionStore(t), NewProber(), time.Second)
	require.True(t, session.Connect(ctx, backend.Hostname(), port))

	torrents := session.ListTorrents(ctx)
	require.Len(t, torrents, 1)
	assert.Equal(t, "abc123", torrents[0].Hash)

	require.Len(t, session.GetDrives(ctx), 1)
	assert.True(t, session.PauseTorrent(ctx, "abc123"))

	failing.Store(true)

	assert.Empty(t, session.ListTorrents(ctx))
	assert.Empty(t, session.GetDrives(ctx))
	assert.False(t, session.PauseTorrent(ctx, "abc123"))
	assert.True(t, session.IsConnected(), "backend failures degrade responses, not the session")

	failing.Store(false)
	assert.True(t, session.ResumeTorrent(ctx, "abc123"))
}

type blockingPinger struct {
	entered chan string
	release chan struct{}
}

func (p *blockingPinger) Ping(_ context.Context, baseURL string, _ time.Duration) error {
	p.entered <- baseURL
	<-p.release
	return nil
}

func TestSessionConnectSerialized(t *testing.T) {
	ctx := t.Context()
	pinger := &blockingPinger{entered: make(chan string), release: make(chan struct{})}
	session := NewSession(newSessionStore(t), pinger, time.Second)

	results := make(chan bool, 2)
	go func() { results <- session.Connect(ctx, "192.168.1.1", 5000) }()

	<-pinger.entered

	go func() { results <- session.Connect(ctx, "192.168.1.2", 5000) }()

	select {
	case <-pinger.entered:
		t.Fatal("second connect entered the probe while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	pinger.release <- struct{}{}
	<-pinger.entered
	pinger.release <- struct{}{}

	assert.True(t, <-results)
	assert.True(t, <-results)
	assert.Equal(t, "http://192.168.1.2:5000", session.State().BaseURL)
}
