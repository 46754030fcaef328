// Package profiler reports frame rate and heap statistics for the render
// loop at a fixed interval.
package profiler

import (
	"log"
	"runtime"
	"time"
)

// Profiler accumulates per-frame ticks and logs FPS, heap usage, allocation
// rate and GC pauses once per interval.
type Profiler struct {
	frames     int
	last       time.Time
	interval   time.Duration
	mem        runtime.MemStats
	lastGC     uint32
	lastAllocd uint64
}

// New returns a profiler logging once per second.
func New() *Profiler {
	return &Profiler{
		last:     time.Now(),
		interval: time.Second,
	}
}

// Tick counts a frame. When the reporting interval has elapsed it logs the
// collected statistics and returns true.
func (p *Profiler) Tick() bool {
	p.frames++
	now := time.Now()
	elapsed := now.Sub(p.last)
	if elapsed < p.interval {
		return false
	}

	fps := float64(p.frames) / elapsed.Seconds()
	runtime.ReadMemStats(&p.mem)

	heapMB := float64(p.mem.Alloc) / 1024 / 1024
	sysMB := float64(p.mem.Sys) / 1024 / 1024
	allocRateMB := float64(p.mem.TotalAlloc-p.lastAllocd) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.mem.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.mem.PauseNs[(gcCount-1)%256] / 1000
		start := p.lastGC
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			if pause := p.mem.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[profiler] fps: %.2f | heap: %.2f MB | alloc rate: %.2f MB/s | gc: %d (last: %d µs, max: %d µs) | sys: %.2f MB",
		fps, heapMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frames = 0
	p.last = now
	p.lastGC = gcCount
	p.lastAllocd = p.mem.TotalAlloc
	return true
}
