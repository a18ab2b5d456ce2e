// Package memory provides process memory snapshots and an explicit
// reclamation hook used by the sequential batch scheduler between chunks
package memory

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/process"
)

// rssBytes is a seam so tests can fake the process RSS
var rssBytes = func() (uint64, bool) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, false
	}
	mi, err := p.MemoryInfo()
	if err != nil || mi == nil {
		return 0, false
	}
	return mi.RSS, true
}

// SnapshotMB returns the approximate resident memory of this process in MiB.
// Falls back to Go heap stats when the OS probe is unavailable; never fails
func SnapshotMB() float64 {
	if rss, ok := rssBytes(); ok {
		return float64(rss) / (1 << 20)
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1 << 20)
}

// Reclaim runs a collection pass and returns retained pages to the OS.
// The sequential scheduler calls this every Nth chunk; on runtimes with
// deterministic memory management this would be a no-op hook
func Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}
