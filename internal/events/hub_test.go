// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	go hub.Run()
	return hub
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()

	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	c1 := dialWS(t, srv)
	c2 := dialWS(t, srv)
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(TypeTorrentRemoved, map[string]string{"hash": "abc123"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeTorrentRemoved, msg.Type)

		data, ok := msg.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "abc123", data["hash"])
	}
}

func TestHubBroadcastWithoutSubscribers(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Close()

	// Must neither panic nor block.
	for i := 0; i < 100; i++ {
		hub.Broadcast(TypeTorrentChanged, map[string]any{"field": "progress"})
	}
}

func TestHubBroadcastMarshalFailure(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialWS(t, srv)
	time.Sleep(50 * time.Millisecond)

	// Channels cannot be marshaled; nothing may reach the subscriber.
	hub.Broadcast("bad", make(chan int))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no message should arrive when marshal fails")
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Close()

	slow := &client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- slow
	slow.send <- []byte("fill")

	hub.Broadcast(TypeTorrentAdded, map[string]string{"hash": "x"})
	time.Sleep(50 * time.Millisecond)

	require.Eventually(t, func() bool {
		select {
		case _, open := <-slow.send:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "slow subscriber's channel should be closed")
}

func TestHubCloseDisconnectsSubscribers(t *testing.T) {
	hub := startTestHub(t)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialWS(t, srv)
	time.Sleep(50 * time.Millisecond)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "read must fail once the hub shut the connection")
}

func TestHubRejectsPlainHTTPRequest(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	hub.ServeWS(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHubAnswersPing(t *testing.T) {
	hub := startTestHub(t)
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialWS(t, srv)

	pongReceived := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pongReceived <- struct{}{}:
		default:
		}
		return nil
	})

	require.NoError(t, conn.WriteMessage(websocket.PingMessage, nil))

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pongReceived:
	case <-time.After(2 * time.Second):
		t.Fatal("pong not received")
	}
}

func TestHubMessageEnvelope(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(message{Type: TypeConnectionChanged, Data: map[string]any{
		"connected": true,
		"baseUrl":   "http://192.168.1.50:5000",
	}})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "connection_changed",
		"data": {"connected": true, "baseUrl": "http://192.168.1.50:5000"}
	}`, string(payload))
}
