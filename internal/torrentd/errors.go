// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import "github.com/pkg/errors"

// Failure kinds for backend calls. Every error leaving the erroring client
// layer wraps exactly one of these, so callers classify with errors.Is.
var (
	// ErrNotConnected is returned before any network I/O when no session
	// is active.
	ErrNotConnected = errors.New("not connected to a backend")

	// ErrTransport covers failures with no HTTP response: refused dials,
	// DNS errors, timeouts, cancelled contexts.
	ErrTransport = errors.New("transport failure")

	// ErrProtocol covers responses with a non-2xx status.
	ErrProtocol = errors.New("unexpected response status")

	// ErrContentMismatch covers responses that arrived intact but did not
	// carry the expected content, such as a ping body without the
	// liveness token.
	ErrContentMismatch = errors.New("unexpected response content")

	// ErrParse covers response bodies that could not be decoded.
	ErrParse = errors.New("malformed response body")
)
