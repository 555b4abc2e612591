// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package poller drives the backend refresh cycle: pull fresh state on a
// fixed interval, reconcile it into the tracked collection and publish the
// resulting changes.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/torcapp/torc/internal/events"
	"github.com/torcapp/torc/internal/metrics"
	"github.com/torcapp/torc/internal/torrentd"
)

// DefaultInterval is used when no poll interval is configured.
const DefaultInterval = 2 * time.Second

// Source is the backend surface polled each cycle. *torrentd.Session
// satisfies it with its erroring call layer, so a failed fetch is visible
// here even though the public session API degrades to empty results.
type Source interface {
	IsConnected() bool
	TorrentList(ctx context.Context) ([]torrentd.TorrentSnapshot, error)
	DriveList(ctx context.Context) ([]torrentd.DriveUsage, error)
}

// Broadcaster receives the change events of each cycle. *events.Hub
// satisfies it.
type Broadcaster interface {
	Broadcast(messageType string, data any)
}

type Poller struct {
	source     Source
	collection *torrentd.Collection
	hub        Broadcaster
	retune     chan struct{}

	mu       sync.Mutex
	interval time.Duration
}

func New(source Source, collection *torrentd.Collection, hub Broadcaster, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:     source,
		collection: collection,
		hub:        hub,
		retune:     make(chan struct{}, 1),
		interval:   interval,
	}
}

// SetInterval retunes the poll cadence. A running loop picks the new value
// up immediately; the cycle in flight is unaffected.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}

	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()

	select {
	case p.retune <- struct{}{}:
	default:
	}
}

func (p *Poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Start runs the poll loop until ctx is canceled. Cycles never overlap: the
// next tick is not acted on before the previous cycle finished.
func (p *Poller) Start(ctx context.Context) {
	interval := p.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Starting poll loop")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Poll loop stopped")
			return
		case <-p.retune:
			interval = p.currentInterval()
			ticker.Reset(interval)
			log.Info().Dur("interval", interval).Msg("Poll interval updated")
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	if !p.source.IsConnected() {
		return
	}

	var (
		snapshots []torrentd.TorrentSnapshot
		drives    []torrentd.DriveUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshots, err = p.source.TorrentList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		drives, err = p.source.DriveList(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		metrics.PollsTotal.WithLabelValues("error").Inc()
		log.Debug().Err(err).Msg("Poll cycle failed")
		return
	}

	result := p.collection.Apply(snapshots)
	p.publish(result)
	p.refreshGauges(drives)
	metrics.PollsTotal.WithLabelValues("ok").Inc()
}

func (p *Poller) publish(result torrentd.ApplyResult) {
	if result.Empty() {
		return
	}

	for _, torrent := range result.Added {
		p.hub.Broadcast(events.TypeTorrentAdded, torrent)
	}
	for _, hash := range result.Removed {
		p.hub.Broadcast(events.TypeTorrentRemoved, map[string]string{"hash": hash})
	}
	for _, change := range result.Changes {
		p.hub.Broadcast(events.TypeTorrentChanged, change)
	}

	log.Debug().
		Int("added", len(result.Added)).
		Int("removed", len(result.Removed)).
		Int("changed", len(result.Changes)).
		Msg("Published poll changes")
}

func (p *Poller) refreshGauges(drives []torrentd.DriveUsage) {
	stats := p.collection.Aggregate()
	metrics.TorrentsTracked.Set(float64(stats.Count))
	metrics.DownloadSpeedBytes.Set(float64(stats.TotalDownloadSpeed))
	metrics.UploadSpeedBytes.Set(float64(stats.TotalUploadSpeed))

	// Drives can come and go between cycles; reset so stale labels vanish.
	metrics.DriveTotalBytes.Reset()
	metrics.DriveFreeBytes.Reset()
	for _, drive := range drives {
		metrics.DriveTotalBytes.WithLabelValues(drive.Name).Set(float64(drive.TotalBytes))
		metrics.DriveFreeBytes.WithLabelValues(drive.Name).Set(float64(drive.FreeBytes))
	}
}
