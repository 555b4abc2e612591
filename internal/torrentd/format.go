// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"fmt"
	"math"
	"strconv"
)

var byteUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// etaUnbounded is the backend's magic value for "no estimate": anything at or
// above it (or negative) renders as unbounded. 8640000 seconds is 100 days.
const etaUnbounded = 8640000

// FormatBytes renders a byte count in steps of 1024 up to TB, with at most
// two decimal places and trailing zeros trimmed: 0 is "0 B", 1536 is
// "1.5 KB", 1073741824 is "1 GB".
func FormatBytes(n int64) string {
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[unit]
}

// FormatSpeed renders a transfer rate as FormatBytes plus "/s".
func FormatSpeed(n int64) string {
	return FormatBytes(n) + "/s"
}

// FormatETA renders seconds remaining using the largest two applicable
// units: "{d}d {h}h" from a day up, "{h}h {m}m" from an hour up, "{m}m {s}s"
// below that. Negative or unbounded values render as "∞".
func FormatETA(seconds int64) string {
	if seconds < 0 || seconds >= etaUnbounded {
		return "∞"
	}
	if seconds >= 86400 {
		return fmt.Sprintf("%dd %dh", seconds/86400, (seconds%86400)/3600)
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// FormatProgress renders a 0..1 completion ratio as a one-decimal percent.
func FormatProgress(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
