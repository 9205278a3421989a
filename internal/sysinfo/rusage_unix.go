//go:build unix

// Package sysinfo reports process-level resource usage for run summaries.
package sysinfo

import "golang.org/x/sys/unix"

// PeakRSS returns the process's maximum resident set size in bytes, or 0 if
// the kernel does not report it.
func PeakRSS() int64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// Linux reports ru_maxrss in kilobytes.
	return ru.Maxrss * 1024
}
