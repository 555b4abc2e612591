// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/torcapp/torc/internal/api/handlers"
	"github.com/torcapp/torc/internal/api/middleware"
	"github.com/torcapp/torc/internal/config"
	"github.com/torcapp/torc/internal/discovery"
	"github.com/torcapp/torc/internal/events"
	"github.com/torcapp/torc/internal/torrentd"
)

type Server struct {
	server *http.Server
	logger zerolog.Logger
	config *config.AppConfig

	session    *torrentd.Session
	collection *torrentd.Collection
	scanner    *discovery.Scanner
	hub        *events.Hub
}

type Dependencies struct {
	Config     *config.AppConfig
	Session    *torrentd.Session
	Collection *torrentd.Collection
	Scanner    *discovery.Scanner
	Hub        *events.Hub
}

func NewServer(deps *Dependencies) *Server {
	return &Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:     log.Logger.With().Str("module", "api").Logger(),
		config:     deps.Config,
		session:    deps.Session,
		collection: deps.Collection,
		scanner:    deps.Scanner,
		hub:        deps.Hub,
	}
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Msgf("Starting API server - Open: http://%s%s", host, s.config.Config.BaseURL)

	s.server.Handler = s.Handler()

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID) // Must be before logger to capture request ID
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Use faster compression levels; responses are JSON and mostly small
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	// The daemon fronts local UIs on arbitrary origins, so CORS stays open.
	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	healthHandler := handlers.NewHealthHandler()
	connectionHandler := handlers.NewConnectionHandler(s.session)
	discoveryHandler := handlers.NewDiscoveryHandler(s.scanner)
	torrentsHandler := handlers.NewTorrentsHandler(s.collection, s.session)
	drivesHandler := handlers.NewDrivesHandler(s.session)

	apiRouter := chi.NewRouter()

	apiRouter.Group(func(r chi.Router) {
		r.Use(middleware.Logger(s.logger))
		r.Use(middleware.Metrics)

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/connection", func(r chi.Router) {
			r.Get("/", connectionHandler.GetConnection)
			r.Get("/last", connectionHandler.GetLastConnection)
			r.Post("/connect", connectionHandler.Connect)
			r.Post("/disconnect", connectionHandler.Disconnect)
		})

		r.Post("/discovery/scan", discoveryHandler.Scan)

		r.Route("/torrents", func(r chi.Router) {
			r.Get("/", torrentsHandler.ListTorrents)
			r.Post("/", torrentsHandler.AddTorrent)

			r.Route("/{hash}", func(r chi.Router) {
				r.Post("/pause", torrentsHandler.PauseTorrent)
				r.Post("/resume", torrentsHandler.ResumeTorrent)
				r.Delete("/", torrentsHandler.DeleteTorrent)
			})
		})

		r.Get("/drives", drivesHandler.ListDrives)

		r.Get("/events", s.hub.ServeWS)
	})

	r.Get("/health", healthHandler.HandleHealth)

	baseURL := s.config.Config.BaseURL
	if baseURL == "" {
		baseURL = "/"
	}

	r.Mount(baseURL+"api", apiRouter)

	return r
}
