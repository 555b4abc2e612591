// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/torcapp/torc/internal/buildinfo"
)

const (
	pingPath = "/api/torrent/ping"

	// pingToken must appear in the ping body. A proxy or captive portal
	// can answer 200 with arbitrary HTML; the token proves the backend
	// itself replied.
	pingToken = "online"

	// maxPingBody bounds how much of the ping response is inspected.
	maxPingBody = 4096
)

// Prober issues single-shot liveness checks against candidate backends.
type Prober struct {
	httpClient *http.Client
}

// NewProber returns a prober whose per-call deadline comes entirely from the
// timeout handed to Ping.
func NewProber() *Prober {
	return &Prober{httpClient: &http.Client{}}
}

// Ping issues exactly one GET against baseURL's ping endpoint. nil means the
// backend answered 2xx with the liveness token in the body. The timeout is
// layered onto ctx, so expiry cancels the request in flight rather than
// waiting out a slow server.
func (p *Prober) Ping(ctx context.Context, baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+pingPath, nil)
	if err != nil {
		return errors.Wrapf(ErrTransport, "build ping request for %s: %v", baseURL, err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrTransport, "ping %s: %v", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Wrapf(ErrProtocol, "ping %s: status %d", baseURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPingBody))
	if err != nil {
		return errors.Wrapf(ErrTransport, "read ping body from %s: %v", baseURL, err)
	}

	if !strings.Contains(string(body), pingToken) {
		return errors.Wrapf(ErrContentMismatch, "ping %s: liveness token missing", baseURL)
	}

	return nil
}
