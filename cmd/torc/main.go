// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/torcapp/torc/internal/api"
	"github.com/torcapp/torc/internal/buildinfo"
	"github.com/torcapp/torc/internal/config"
	"github.com/torcapp/torc/internal/database"
	"github.com/torcapp/torc/internal/discovery"
	"github.com/torcapp/torc/internal/domain"
	"github.com/torcapp/torc/internal/events"
	"github.com/torcapp/torc/internal/metrics"
	"github.com/torcapp/torc/internal/models"
	"github.com/torcapp/torc/internal/poller"
	"github.com/torcapp/torc/internal/torrentd"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "torc",
		Short: "Remote control daemon for a torrentd backend",
		Long: `torc - a self-hosted daemon that discovers, connects to and
remote-controls a torrentd backend on the local network.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
		pprofFlag bool
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/torc/ or %APPDATA%\\torc\\). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for the database (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	command.Flags().BoolVar(&pprofFlag, "pprof", false, "enable pprof server on :6060")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(configDir, dataDir, logPath, pprofFlag)
		app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of torc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the daemon.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/torc/config.toml
- Windows: %APPDATA%\torc\config.toml

You can specify either a directory path or a direct file path:
- Directory: torc generate-config --config-dir /path/to/config/
- File: torc generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				defaultDir := config.GetDefaultConfigDir()
				configPath = filepath.Join(defaultDir, "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

type Application struct {
	configDir string
	dataDir   string
	logPath   string
	pprofFlag bool
}

func NewApplication(configDir, dataDir, logPath string, pprofFlag bool) *Application {
	return &Application{
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
		pprofFlag: pprofFlag,
	}
}

func (app *Application) runServer() {
	// Initialize configuration
	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	// Override with CLI flags if provided
	if app.dataDir != "" {
		os.Setenv("TORC__DATA_DIR", app.dataDir)
		cfg.SetDataDir(app.dataDir)
	}
	if app.logPath != "" {
		os.Setenv("TORC__LOG_PATH", app.logPath)
		cfg.Config.LogPath = app.logPath
	}

	if app.pprofFlag {
		cfg.Config.PprofEnabled = true
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Msg("Starting torc")

	// Initialize database
	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	settingsStore := models.NewSettingsStore(db)

	prober := torrentd.NewProber()
	session := torrentd.NewSession(settingsStore, prober, cfg.Config.ConnectTimeout)
	collection := torrentd.NewCollection()
	scanner := discovery.NewScanner(prober, cfg.Config.DiscoveryPort, cfg.Config.DiscoveryTimeout)

	hub := events.NewHub()
	go hub.Run()
	defer hub.Close()

	// Connection transitions feed both the gauge and the event stream.
	session.SetChangeHandler(func(state torrentd.ConnectionState) {
		if state.Connected {
			metrics.BackendConnected.Set(1)
		} else {
			metrics.BackendConnected.Set(0)
		}
		hub.Broadcast(events.TypeConnectionChanged, state)
	})

	pollerService := poller.New(session, collection, hub, cfg.Config.PollInterval)
	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()

	cfg.RegisterReloadListener(func(conf *domain.Config) {
		pollerService.SetInterval(conf.PollInterval)
	})

	// Start server in goroutine
	httpServer := api.NewServer(&api.Dependencies{
		Config:     cfg,
		Session:    session,
		Collection: collection,
		Scanner:    scanner,
		Hub:        hub,
	})

	errorChannel := make(chan error)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
		go pollerService.Start(pollCtx)
		go restoreLastConnection(pollCtx, session)
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	if cfg.Config.MetricsEnabled {
		metrics.Register(prometheus.DefaultRegisterer)

		// Start metrics server on separate port
		go func() {
			metricsServer := metrics.NewServer(cfg.Config.MetricsHost, cfg.Config.MetricsPort)
			errorChannel <- metricsServer.ListenAndServe()
		}()
	}

	// Start profiling server if enabled
	if cfg.Config.PprofEnabled {
		go func() {
			log.Info().Msg("Starting pprof server on :6060")
			log.Info().Msg("Access profiling at: http://localhost:6060/debug/pprof/")
			if err := http.ListenAndServe(":6060", nil); err != nil {
				log.Error().Err(err).Msg("Profiling server failed")
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")

		os.Exit(1)
	}
}

// restoreLastConnection re-attaches to the backend used before the previous
// shutdown. Best effort: a dead or moved backend leaves the daemon
// disconnected, same as a first run.
func restoreLastConnection(ctx context.Context, session *torrentd.Session) {
	host, port := session.GetLastConnection(ctx)
	if host == "" {
		return
	}

	if session.Connect(ctx, host, port) {
		log.Info().Str("host", host).Int("port", port).Msg("Restored previous backend connection")
	} else {
		log.Debug().Str("host", host).Int("port", port).Msg("Previous backend not reachable at startup")
	}
}
