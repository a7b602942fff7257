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

//go:build linux
// +build linux

package sysstat

import "testing"

func TestAvailableMemory(t *testing.T) {
	avail, err := AvailableMemory()
	if err != nil {
		t.Fatalf("failed to read memory stats: %v", err)
	}
	if avail == 0 {
		t.Fatal("no available memory reported")
	}
}

func TestReadCPUStats(t *testing.T) {
	var stats CPUStats
	ReadCPUStats(&stats)
	if stats.GlobalTime <= 0 {
		t.Fatalf("global cpu time not positive: %v", stats.GlobalTime)
	}
}
