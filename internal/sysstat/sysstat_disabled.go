// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

//go:build ios || js
// +build ios js

package sysstat

import "errors"

// CPUStats is the system and process CPU stats.
type CPUStats struct {
	GlobalTime float64 // Time spent by the CPU working on all processes
	GlobalWait float64 // Time spent by waiting on disk for all processes
	LocalTime  float64 // Time spent by the CPU working on this process
}

// ReadCPUStats is a stub, CPU stats are not available on this platform.
func ReadCPUStats(stats *CPUStats) {}

// AvailableMemory always fails, memory stats are not available on this platform.
func AvailableMemory() (uint64, error) {
	return 0, errors.New("memory stats not supported")
}
