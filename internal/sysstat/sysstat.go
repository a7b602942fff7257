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

//go:build !ios && !js
// +build !ios,!js

// Package sysstat reads the host resources that bound dataset generation and
// nonce search.
package sysstat

import (
	"errors"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

// CPUStats is the system and process CPU stats.
type CPUStats struct {
	GlobalTime float64 // Time spent by the CPU working on all processes
	GlobalWait float64 // Time spent by waiting on disk for all processes
	LocalTime  float64 // Time spent by the CPU working on this process
}

// ReadCPUStats retrieves the current CPU stats.
func ReadCPUStats(stats *CPUStats) {
	// passing false to request all cpu times
	timeStats, err := cpu.Times(false)
	if err != nil {
		log.Error("Could not read cpu stats", "err", err)
		return
	}
	if len(timeStats) == 0 {
		log.Error("Empty cpu stats")
		return
	}
	// requesting all cpu times will always return an array with only one time stats entry
	timeStat := timeStats[0]
	stats.GlobalTime = timeStat.User + timeStat.Nice + timeStat.System
	stats.GlobalWait = timeStat.Iowait
	stats.LocalTime = processCPUTime()
}

// processCPUTime returns the user and system seconds consumed by this process.
func processCPUTime() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Could not open own process", "err", err)
		return 0
	}
	times, err := proc.Times()
	if err != nil {
		log.Warn("Could not read process cpu times", "err", err)
		return 0
	}
	return times.User + times.System
}

// AvailableMemory returns the number of bytes the OS reports as available for
// new allocations without swapping.
func AvailableMemory() (uint64, error) {
	stats, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	if stats.Total == 0 {
		return 0, errors.New("empty memory stats")
	}
	return stats.Available, nil
}
