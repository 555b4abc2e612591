// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

type Config struct {
	Version          string
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	BaseURL          string        `mapstructure:"baseUrl"`
	LogLevel         string        `mapstructure:"logLevel"`
	LogPath          string        `mapstructure:"logPath"`
	LogMaxSize       int           `mapstructure:"logMaxSize"`
	LogMaxBackups    int           `mapstructure:"logMaxBackups"`
	DataDir          string        `mapstructure:"dataDir"`
	PollInterval     time.Duration `mapstructure:"pollInterval"`
	ConnectTimeout   time.Duration `mapstructure:"connectTimeout"`
	DiscoveryPort    int           `mapstructure:"discoveryPort"`
	DiscoveryTimeout time.Duration `mapstructure:"discoveryTimeout"`
	MetricsEnabled   bool          `mapstructure:"metricsEnabled"`
	MetricsHost      string        `mapstructure:"metricsHost"`
	MetricsPort      int           `mapstructure:"metricsPort"`
	PprofEnabled     bool          `mapstructure:"pprofEnabled"`
}
