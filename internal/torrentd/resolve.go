// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"fmt"
	"net"
	"strings"
)

// DefaultPort is assumed when the caller has no port for a host, such as a
// bare IPv4 address typed into the connect form.
const DefaultPort = 5000

// ResolveBaseURL turns a user-supplied host into the backend base URL. IPv4
// literals and dotless names are treated as local and get plain http on the
// given port; anything else is assumed to sit behind a TLS-terminating proxy
// and gets https with no explicit port. Pure string work: no I/O, no failure.
func ResolveBaseURL(host string, port int) string {
	host = strings.TrimSpace(host)
	if port <= 0 {
		port = DefaultPort
	}

	if isLocalHost(host) {
		return fmt.Sprintf("http://%s:%d", host, port)
	}
	return "https://" + host
}

func isLocalHost(host string) bool {
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		return true
	}
	return !strings.Contains(host, ".")
}
