//go:build !unix

package sysinfo

// PeakRSS returns 0 on platforms without rusage support.
func PeakRSS() int64 { return 0 }
