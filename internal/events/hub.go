// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package events fans backend state changes out to websocket subscribers.
package events

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message types carried on the feed.
const (
	TypeTorrentAdded      = "torrent_added"
	TypeTorrentRemoved    = "torrent_removed"
	TypeTorrentChanged    = "torrent_changed"
	TypeConnectionChanged = "connection_changed"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the set of connected clients. All client map access happens on
// the Run goroutine; everything else talks to it through channels.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				_ = c.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(2*time.Second),
				)
				close(c.send)
				delete(h.clients, c)
			}
			log.Debug().Msg("Event hub stopped, all clients disconnected")
			return
		case c := <-h.register:
			h.clients[c] = true
			log.Debug().Int("clients", len(h.clients)).Msg("Event subscriber connected")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.Debug().Int("clients", len(h.clients)).Msg("Event subscriber disconnected")
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow subscriber, cut it loose rather than stall the hub.
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Close stops the hub and disconnects all clients.
func (h *Hub) Close() {
	close(h.done)
}

// Broadcast sends a typed JSON message to every connected subscriber.
// Messages are dropped when the broadcast queue is full.
func (h *Hub) Broadcast(messageType string, data any) {
	payload, err := json.Marshal(message{Type: messageType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", messageType).Msg("Failed to marshal event")
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon serves local UIs; origin enforcement stays with the
	// deployment in front of it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
