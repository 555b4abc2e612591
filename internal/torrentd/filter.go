// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog/log"
)

var filterCache = ttlcache.New(ttlcache.Options[string, *vm.Program]{}.SetDefaultTTL(5 * time.Minute))

// CompileFilter compiles a boolean expression evaluated against a Torrent
// (fields by their Go names: Name, Size, Progress, ETA, State, ...).
// Compiled programs are cached by expression text.
func CompileFilter(expression string) (*vm.Program, error) {
	if program, ok := filterCache.Get(expression); ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.Env(Torrent{}), expr.AsBool())
	if err != nil {
		return nil, err
	}

	if ok := filterCache.Set(expression, program, ttlcache.DefaultTTL); !ok {
		log.Warn().Str("expr", expression).Msg("Failed to cache filter expression")
	}
	return program, nil
}

// filterTorrents keeps the torrents for which program evaluates true.
// Entries that fail at run time are skipped, not propagated: one torrent
// with odd data must not blank the whole listing.
func filterTorrents(torrents []*Torrent, program *vm.Program) []*Torrent {
	filtered := make([]*Torrent, 0, len(torrents))
	for _, t := range torrents {
		result, err := expr.Run(program, *t)
		if err != nil {
			log.Debug().Err(err).Str("hash", t.Hash).Msg("Filter evaluation failed, skipping torrent")
			continue
		}
		keep, ok := result.(bool)
		if !ok || !keep {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// searchSeparators are the separator characters torrent names tend to use
// instead of spaces.
var searchSeparators = []string{".", "_", "-", "[", "]", "(", ")", "{", "}"}

func normalizeForSearch(text string) string {
	normalized := strings.ToLower(text)
	for _, sep := range searchSeparators {
		normalized = strings.ReplaceAll(normalized, sep, " ")
	}
	return strings.Join(strings.Fields(normalized), " ")
}

// searchTorrents applies the three-tier name search: exact substring, then
// separator-normalized substring, then fuzzy. The first tier with any hits
// wins and tiers never mix, so an exact hit suppresses fuzzy noise.
func searchTorrents(torrents []*Torrent, search string) []*Torrent {
	if search == "" {
		return torrents
	}

	searchLower := strings.ToLower(search)
	exact := make([]*Torrent, 0, len(torrents))
	for _, t := range torrents {
		if strings.Contains(strings.ToLower(t.Name), searchLower) {
			exact = append(exact, t)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	searchNormalized := normalizeForSearch(search)
	normalized := make([]*Torrent, 0, len(torrents))
	for _, t := range torrents {
		if strings.Contains(normalizeForSearch(t.Name), searchNormalized) {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) > 0 {
		return normalized
	}

	fuzzed := make([]*Torrent, 0, len(torrents))
	for _, t := range torrents {
		if fuzzy.MatchNormalizedFold(searchNormalized, normalizeForSearch(t.Name)) {
			fuzzed = append(fuzzed, t)
		}
	}
	return fuzzed
}
