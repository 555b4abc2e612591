// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package buildinfo

import "fmt"

// Set via ldflags at build time:
//
//	-X github.com/torcapp/torc/internal/buildinfo.Version=v1.0.0
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent identifies torc on every outbound HTTP request. Some tunnel
// infrastructure rejects clients without one.
var UserAgent = fmt.Sprintf("torc/%s", Version)
