// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package discovery sweeps the machine's local /24 for torrent backends by
// probing every address on the backend port at once.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultProbePort is the backend's standard listen port.
	DefaultProbePort = 5000

	// DefaultProbeTimeout keeps a full sweep near-instant: all 254 probes
	// run concurrently, each bounded this tightly. Anything on the local
	// subnet answers far faster than this.
	DefaultProbeTimeout = 200 * time.Millisecond

	hostsPerSubnet = 254
)

// Pinger issues liveness probes against candidate backends.
// *torrentd.Prober satisfies it.
type Pinger interface {
	Ping(ctx context.Context, baseURL string, timeout time.Duration) error
}

// Scanner probes the local /24 for live backends.
type Scanner struct {
	pinger  Pinger
	port    int
	timeout time.Duration

	// localIP is swappable so tests can pin the subnet.
	localIP func() (net.IP, error)
}

func NewScanner(pinger Pinger, port int, timeout time.Duration) *Scanner {
	if port <= 0 {
		port = DefaultProbePort
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Scanner{
		pinger:  pinger,
		port:    port,
		timeout: timeout,
		localIP: localIPv4,
	}
}

// Scan probes every host of the local /24 and returns the addresses that
// answered as live backends, sorted by final octet. It returns only after
// all probes settle. When the local address cannot be determined there is no
// subnet to sweep; the result is empty, never an error.
func (s *Scanner) Scan(ctx context.Context) []string {
	ip, err := s.localIP()
	if err != nil {
		log.Debug().Err(err).Msg("Local address undeterminable, skipping discovery scan")
		return []string{}
	}

	prefix := fmt.Sprintf("%d.%d.%d.", ip[0], ip[1], ip[2])
	log.Debug().Str("subnet", prefix+"0/24").Int("port", s.port).Msg("Starting discovery scan")

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		foundOctets []int
	)

	for octet := 1; octet <= hostsPerSubnet; octet++ {
		wg.Add(1)
		go func(octet int) {
			defer wg.Done()

			baseURL := fmt.Sprintf("http://%s%d:%d", prefix, octet, s.port)
			if err := s.pinger.Ping(ctx, baseURL, s.timeout); err != nil {
				return
			}

			mu.Lock()
			foundOctets = append(foundOctets, octet)
			mu.Unlock()
		}(octet)
	}

	wg.Wait()

	sort.Ints(foundOctets)
	servers := make([]string, 0, len(foundOctets))
	for _, octet := range foundOctets {
		servers = append(servers, fmt.Sprintf("%s%d", prefix, octet))
	}

	log.Info().Int("found", len(servers)).Str("subnet", prefix+"0/24").Msg("Discovery scan finished")
	return servers
}

// localIPv4 finds the machine's outbound IPv4 address. Dialing UDP sends no
// packet; it only makes the kernel pick a route and source address.
func localIPv4() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return nil, errors.New("no local IPv4 address")
	}
	return addr.IP.To4(), nil
}
