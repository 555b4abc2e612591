// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Settings keys for the persisted last-used connection.
const (
	settingLastHost = "last_host"
	settingLastPort = "last_port"
)

// DefaultConnectTimeout bounds a Connect attempt end to end. Generous on
// purpose: the probe may cross a tunnel.
const DefaultConnectTimeout = 10 * time.Second

// Pinger issues liveness probes against candidate backends. *Prober
// satisfies it; tests swap in fakes.
type Pinger interface {
	Ping(ctx context.Context, baseURL string, timeout time.Duration) error
}

// SettingsStore persists the last-used connection across restarts.
// models.SettingsStore satisfies it.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, values map[string]string) error
}

// Session owns the connection to at most one backend at a time. Its Connect,
// Disconnect and the fail-soft call surface never return errors: outcomes
// are booleans and zero values, with the underlying failure logged.
type Session struct {
	store          SettingsStore
	pinger         Pinger
	connectTimeout time.Duration

	// connectMu serializes Connect attempts; a second caller waits for
	// the first instead of racing it.
	connectMu sync.Mutex

	mu       sync.RWMutex
	client   *Client
	baseURL  string
	onChange func(ConnectionState)
}

func NewSession(store SettingsStore, pinger Pinger, connectTimeout time.Duration) *Session {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Session{
		store:          store,
		pinger:         pinger,
		connectTimeout: connectTimeout,
	}
}

// SetChangeHandler registers a callback invoked after every connect or
// disconnect transition.
func (s *Session) SetChangeHandler(fn func(ConnectionState)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Connect probes host and, on success, makes it the active backend and
// persists it as the last-used connection. A failed probe leaves the session
// disconnected. The boolean is the entire outcome; no error escapes.
func (s *Session) Connect(ctx context.Context, host string, port int) bool {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	host = strings.TrimSpace(host)
	if port <= 0 {
		port = DefaultPort
	}
	baseURL := ResolveBaseURL(host, port)

	if err := s.pinger.Ping(ctx, baseURL, s.connectTimeout); err != nil {
		log.Debug().Err(err).Str("baseURL", baseURL).Msg("Connect probe failed")
		s.Disconnect()
		return false
	}

	s.mu.Lock()
	s.client = NewClient(baseURL)
	s.baseURL = baseURL
	s.mu.Unlock()

	// The connection is live even if persisting fails; the stored pair
	// only seeds the next startup.
	if err := s.store.SetMany(ctx, map[string]string{
		settingLastHost: host,
		settingLastPort: strconv.Itoa(port),
	}); err != nil {
		log.Warn().Err(err).Str("host", host).Msg("Failed to persist last connection")
	}

	log.Info().Str("baseURL", baseURL).Msg("Connected to backend")
	s.notifyChange()
	return true
}

// Disconnect drops the active backend. Calling it while already disconnected
// is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.client != nil
	s.client = nil
	s.baseURL = ""
	s.mu.Unlock()

	if wasConnected {
		log.Info().Msg("Disconnected from backend")
		s.notifyChange()
	}
}

// IsConnected reports whether a backend is currently active.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// State returns the externally visible connection state.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ConnectionState{Connected: s.client != nil, BaseURL: s.baseURL}
}

// GetLastConnection returns the persisted last-used host and port. When
// nothing was stored, or the store cannot answer, it returns the ""/5000
// sentinels instead of an error.
func (s *Session) GetLastConnection(ctx context.Context) (string, int) {
	host, err := s.store.Get(ctx, settingLastHost)
	if err != nil {
		return "", DefaultPort
	}

	portValue, err := s.store.Get(ctx, settingLastPort)
	if err != nil {
		return host, DefaultPort
	}

	port, err := strconv.Atoi(portValue)
	if err != nil || port <= 0 {
		log.Debug().Str("value", portValue).Msg("Ignoring unusable persisted port")
		return host, DefaultPort
	}

	return host, port
}

// api returns the erroring client, or ErrNotConnected before any I/O.
func (s *Session) api() (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

func (s *Session) notifyChange() {
	s.mu.RLock()
	fn := s.onChange
	state := ConnectionState{Connected: s.client != nil, BaseURL: s.baseURL}
	s.mu.RUnlock()

	if fn != nil {
		fn(state)
	}
}

// TorrentList is the erroring list fetch used by the poll loop; API
// consumers use ListTorrents.
func (s *Session) TorrentList(ctx context.Context) ([]TorrentSnapshot, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}
	return client.TorrentList(ctx)
}

// DriveList is the erroring drive fetch used by the poll loop; API consumers
// use GetDrives.
func (s *Session) DriveList(ctx context.Context) ([]DriveUsage, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}
	return client.DriveList(ctx)
}

// ListTorrents returns the backend's torrent list, or an empty slice when
// disconnected or on any failure.
func (s *Session) ListTorrents(ctx context.Context) []TorrentSnapshot {
	torrents, err := s.TorrentList(ctx)
	if err != nil {
		logSoftFailure("list torrents", err)
		return []TorrentSnapshot{}
	}
	return torrents
}

// GetDrives returns the backend's drive usage, or an empty slice when
// disconnected or on any failure.
func (s *Session) GetDrives(ctx context.Context) []DriveUsage {
	drives, err := s.DriveList(ctx)
	if err != nil {
		logSoftFailure("get drives", err)
		return []DriveUsage{}
	}
	return drives
}

// AddTorrent submits a magnet link; false when disconnected or on any
// failure.
func (s *Session) AddTorrent(ctx context.Context, magnetLink, savePath string) bool {
	client, err := s.api()
	if err != nil {
		logSoftFailure("add torrent", err)
		return false
	}
	if err := client.Add(ctx, magnetLink, savePath); err != nil {
		logSoftFailure("add torrent", err)
		return false
	}
	return true
}

// PauseTorrent pauses a torrent; false when disconnected or on any failure.
func (s *Session) PauseTorrent(ctx context.Context, hash string) bool {
	client, err := s.api()
	if err != nil {
		logSoftFailure("pause torrent", err)
		return false
	}
	if err := client.Pause(ctx, hash); err != nil {
		logSoftFailure("pause torrent", err)
		return false
	}
	return true
}

// ResumeTorrent resumes a torrent; false when disconnected or on any
// failure.
func (s *Session) ResumeTorrent(ctx context.Context, hash string) bool {
	client, err := s.api()
	if err != nil {
		logSoftFailure("resume torrent", err)
		return false
	}
	if err := client.Resume(ctx, hash); err != nil {
		logSoftFailure("resume torrent", err)
		return false
	}
	return true
}

// DeleteTorrent removes a torrent; false when disconnected or on any
// failure.
func (s *Session) DeleteTorrent(ctx context.Context, hash string, deleteFiles bool) bool {
	client, err := s.api()
	if err != nil {
		logSoftFailure("delete torrent", err)
		return false
	}
	if err := client.Delete(ctx, hash, deleteFiles); err != nil {
		logSoftFailure("delete torrent", err)
		return false
	}
	return true
}

func logSoftFailure(op string, err error) {
	log.Debug().Err(err).Str("op", op).Msg("Backend call failed, returning default")
}
