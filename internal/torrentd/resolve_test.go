// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{
			name:     "IPv4 literal",
			host:     "192.168.1.50",
			port:     5000,
			expected: "http://192.168.1.50:5000",
		},
		{
			name:     "IPv4 literal with custom port",
			host:     "10.0.0.9",
			port:     8080,
			expected: "http://10.0.0.9:8080",
		},
		{
			name:     "dotless hostname",
			host:     "nas",
			port:     5000,
			expected: "http://nas:5000",
		},
		{
			name:     "localhost",
			host:     "localhost",
			port:     5000,
			expected: "http://localhost:5000",
		},
		{
			name:     "domain name",
			host:     "torrents.example.com",
			port:     5000,
			expected: "https://torrents.example.com",
		},
		{
			name:     "tunnel hostname ignores port",
			host:     "backend.tailnet-1234.ts.net",
			port:     9999,
			expected: "https://backend.tailnet-1234.ts.net",
		},
		{
			name:     "zero port falls back to default",
			host:     "192.168.1.50",
			port:     0,
			expected: "http://192.168.1.50:5000",
		},
		{
			name:     "surrounding whitespace trimmed",
			host:     "  192.168.1.50  ",
			port:     5000,
			expected: "http://192.168.1.50:5000",
		},
		{
			name:     "dotted name that is not an IP",
			host:     "media.local",
			port:     5000,
			expected: "https://media.local",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveBaseURL(tt.host, tt.port))
		})
	}
}
