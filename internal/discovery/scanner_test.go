// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu     sync.Mutex
	online map[string]bool
	calls  int
}

func (p *fakePinger) Ping(ctx context.Context, baseURL string, timeout time.Duration) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.online[baseURL] {
		return nil
	}
	return errors.New("no backend here")
}

func (p *fakePinger) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func fixedLocalIP(a, b, c, d byte) func() (net.IP, error) {
	return func() (net.IP, error) {
		return net.IPv4(a, b, c, d).To4(), nil
	}
}

func TestScannerFindsBackends(t *testing.T) {
	t.Parallel()

	pinger := &fakePinger{online: map[string]bool{
		"http://192.168.1.5:5000":   true,
		"http://192.168.1.77:5000":  true,
		"http://192.168.1.201:5000": true,
	}}

	scanner := NewScanner(pinger, 5000, 50*time.Millisecond)
	scanner.localIP = fixedLocalIP(192, 168, 1, 42)

	servers := scanner.Scan(context.Background())

	assert.Equal(t, []string{"192.168.1.5", "192.168.1.77", "192.168.1.201"}, servers)
	assert.Equal(t, hostsPerSubnet, pinger.callCount(), "every host of the /24 must be probed")
}

func TestScannerSortsByFinalOctet(t *testing.T) {
	t.Parallel()

	// Octets whose lexicographic order differs from numeric order.
	pinger := &fakePinger{online: map[string]bool{
		"http://10.0.0.100:5000": true,
		"http://10.0.0.2:5000":   true,
		"http://10.0.0.30:5000":  true,
	}}

	scanner := NewScanner(pinger, 5000, 50*time.Millisecond)
	scanner.localIP = fixedLocalIP(10, 0, 0, 7)

	servers := scanner.Scan(context.Background())

	assert.Equal(t, []string{"10.0.0.2", "10.0.0.30", "10.0.0.100"}, servers)
}

func TestScannerUsesConfiguredPort(t *testing.T) {
	t.Parallel()

	pinger := &fakePinger{online: map[string]bool{
		"http://172.16.4.9:8090": true,
	}}

	scanner := NewScanner(pinger, 8090, 50*time.Millisecond)
	scanner.localIP = fixedLocalIP(172, 16, 4, 22)

	servers := scanner.Scan(context.Background())

	assert.Equal(t, []string{"172.16.4.9"}, servers)
}

func TestScannerIncludesOwnAddress(t *testing.T) {
	t.Parallel()

	// A backend running on the scanning machine itself is probed like any
	// other host and shows up in the result.
	pinger := &fakePinger{online: map[string]bool{
		"http://192.168.1.42:5000": true,
	}}

	scanner := NewScanner(pinger, 5000, 50*time.Millisecond)
	scanner.localIP = fixedLocalIP(192, 168, 1, 42)

	servers := scanner.Scan(context.Background())

	assert.Equal(t, []string{"192.168.1.42"}, servers)
}

func TestScannerEmptySubnet(t *testing.T) {
	t.Parallel()

	pinger := &fakePinger{}

	scanner := NewScanner(pinger, 5000, 50*time.Millisecond)
	scanner.localIP = fixedLocalIP(192, 168, 1, 42)

	servers := scanner.Scan(context.Background())

	require.NotNil(t, servers)
	assert.Empty(t, servers)
	assert.Equal(t, hostsPerSubnet, pinger.callCount())
}

func TestScannerNoLocalAddress(t *testing.T) {
	t.Parallel()

	pinger := &fakePinger{}

	scanner := NewScanner(pinger, 5000, 50*time.Millisecond)
	scanner.localIP = func() (net.IP, error) {
		return nil, errors.New("no route")
	}

	servers := scanner.Scan(context.Background())

	require.NotNil(t, servers)
	assert.Empty(t, servers)
	assert.Zero(t, pinger.callCount(), "no subnet means no probes")
}

func TestNewScannerDefaults(t *testing.T) {
	t.Parallel()

	scanner := NewScanner(&fakePinger{}, 0, 0)

	assert.Equal(t, DefaultProbePort, scanner.port)
	assert.Equal(t, DefaultProbeTimeout, scanner.timeout)
}
