//go:build linux

package worker

import (
	"syscall"
	"unsafe"
)

// setAffinity pins the current thread to a logical CPU via
// sched_setaffinity(2). Errors are deliberately swallowed: under cgroup or
// container restrictions the call may fail, and the fallback is simply no
// pin. Cores outside 0..63 are ignored.
func setAffinity(core int) {
	if core < 0 || core > 63 {
		return
	}
	mask := [1]uintptr{1 << uint(core)}
	_, _, _ = syscall.RawSyscall(
		syscall.SYS_SCHED_SETAFFINITY,
		0, // pid 0: current thread
		uintptr(unsafe.Sizeof(mask[0])),
		uintptr(unsafe.Pointer(&mask)),
	)
}
