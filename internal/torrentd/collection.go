// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"sort"
	"sync"

	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// Collection is the long-lived in-memory torrent set: written only by the
// poll loop through Apply, read by everyone else through copies.
type Collection struct {
	mu       sync.RWMutex
	torrents map[string]*Torrent
}

func NewCollection() *Collection {
	return &Collection{torrents: make(map[string]*Torrent)}
}

// ApplyResult summarizes one reconciliation pass. Added carries detached
// copies; Changes come straight from Reconcile.
type ApplyResult struct {
	Added   []*Torrent
	Removed []string
	Changes []FieldChange
}

// Empty reports whether the pass observed no difference at all.
func (r ApplyResult) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changes) == 0
}

// Apply folds a full backend snapshot into the collection: unknown hashes
// are added with every derived string rendered, surviving hashes are
// reconciled field by field, and hashes the backend stopped reporting are
// dropped and announced by hash.
func (c *Collection) Apply(snaps []TorrentSnapshot) ApplyResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result ApplyResult
	seen := make(map[string]struct{}, len(snaps))

	for _, snap := range snaps {
		if snap.Hash == "" {
			continue
		}
		seen[snap.Hash] = struct{}{}

		if existing, ok := c.torrents[snap.Hash]; ok {
			result.Changes = append(result.Changes, Reconcile(existing, snap)...)
			continue
		}

		torrent := NewTorrent(snap)
		c.torrents[snap.Hash] = torrent

		detached := *torrent
		result.Added = append(result.Added, &detached)
	}

	for hash := range c.torrents {
		if _, ok := seen[hash]; !ok {
			delete(c.torrents, hash)
			result.Removed = append(result.Removed, hash)
		}
	}
	sort.Strings(result.Removed)

	return result
}

// ListOptions narrows List output. Search runs the tiered name cascade;
// Filter is a boolean expression over torrent fields.
type ListOptions struct {
	Search string
	Filter string
}

// List returns a point-in-time copy of the collection, name-sorted with hash
// as tiebreak, after applying the search cascade and the filter expression.
// A malformed filter expression is the only possible error.
func (c *Collection) List(opts ListOptions) ([]*Torrent, error) {
	var program *vm.Program
	if opts.Filter != "" {
		p, err := CompileFilter(opts.Filter)
		if err != nil {
			return nil, errors.Wrap(err, "compile filter")
		}
		program = p
	}

	c.mu.RLock()
	torrents := make([]*Torrent, 0, len(c.torrents))
	for _, t := range c.torrents {
		detached := *t
		torrents = append(torrents, &detached)
	}
	c.mu.RUnlock()

	torrents = searchTorrents(torrents, opts.Search)
	if program != nil {
		torrents = filterTorrents(torrents, program)
	}

	sort.Slice(torrents, func(i, j int) bool {
		if torrents[i].Name != torrents[j].Name {
			return torrents[i].Name < torrents[j].Name
		}
		return torrents[i].Hash < torrents[j].Hash
	})

	return torrents, nil
}

// CollectionStats is the collection-wide summary feeding the metrics gauges.
type CollectionStats struct {
	Count              int
	TotalDownloadSpeed int64
	TotalUploadSpeed   int64
}

// Aggregate sums the live raw fields across all tracked torrents.
func (c *Collection) Aggregate() CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CollectionStats{Count: len(c.torrents)}
	for _, t := range c.torrents {
		stats.TotalDownloadSpeed += t.DownloadSpeed
		stats.TotalUploadSpeed += t.UploadSpeed
	}
	return stats
}
