package service

import (
	"runtime"
	"syscall"
)

// RuntimeStats is a snapshot of this process's own resource usage, surfaced
// alongside health checks so an operator probing /healthz sees more than a
// yes/no.
type RuntimeStats struct {
	MemoryAllocBytes int64
	CPUSeconds       float64
	Goroutines       int
}

// CollectRuntimeStats reads the current process's memory and CPU usage.
func CollectRuntimeStats() RuntimeStats {
	return RuntimeStats{
		MemoryAllocBytes: getMemoryUsage(),
		CPUSeconds:       getCPUUsage(),
		Goroutines:       runtime.NumGoroutine(),
	}
}

func getMemoryUsage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc)
}

func getCPUUsage() float64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}

	// User plus system CPU time, in seconds.
	return float64(rusage.Utime.Sec+rusage.Stime.Sec) + float64(rusage.Utime.Usec+rusage.Stime.Usec)/1e6
}
