package util

import (
	"os"
	"runtime"
)

// SystemInfo contains information about the host system.
type SystemInfo struct {
	Hostname string
	NumCPU   int
	OS       string
	Arch     string
}

// GetSystemInfo collects system information.
func GetSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		Hostname: hostname,
		NumCPU:   runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// WorkerCount returns how many targets may be reduced in parallel: the
// requested count when positive, otherwise one per logical core.
func WorkerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	return max(runtime.NumCPU(), 1)
}
