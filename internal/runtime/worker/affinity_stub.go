//go:build !linux

package worker

// setAffinity is a no-op on platforms without sched_setaffinity.
func setAffinity(int) {}
