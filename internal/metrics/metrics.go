// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torc",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torc",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	BackendConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "backend_connected",
		Help:      "Whether a backend connection is currently established (1 or 0).",
	})

	ConnectAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torc",
		Name:      "connect_attempts_total",
		Help:      "Total backend connection attempts by outcome.",
	}, []string{"outcome"})

	TorrentsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "torrents_tracked",
		Help:      "Number of torrents currently tracked from the backend.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	UploadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "upload_speed_bytes",
		Help:      "Current aggregate upload speed in bytes per second.",
	})

	DriveTotalBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "drive_total_bytes",
		Help:      "Total capacity of each backend drive in bytes.",
	}, []string{"drive"})

	DriveFreeBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "drive_free_bytes",
		Help:      "Free space on each backend drive in bytes.",
	}, []string{"drive"})

	PollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torc",
		Name:      "polls_total",
		Help:      "Total backend poll cycles by outcome.",
	}, []string{"outcome"})

	DiscoveryScansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torc",
		Name:      "discovery_scans_total",
		Help:      "Total subnet discovery scans started.",
	})

	DiscoveryServersFound = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torc",
		Name:      "discovery_servers_found",
		Help:      "Number of backends found by the most recent discovery scan.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BackendConnected,
		ConnectAttemptsTotal,
		TorrentsTracked,
		DownloadSpeedBytes,
		UploadSpeedBytes,
		DriveTotalBytes,
		DriveFreeBytes,
		PollsTotal,
		DiscoveryScansTotal,
		DiscoveryServersFound,
	)
}
