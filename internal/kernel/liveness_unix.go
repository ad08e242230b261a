//go:build unix

package kernel

import "syscall"

// isAliveSignal0 probes liveness via a zero-signal kill(2), portable across
// Unix variants (spec §9 Open Question: "/proc is Linux-specific; on other
// OSes substitute a platform-appropriate probe such as kill(pid, 0)"). This
// sends no actual signal — the kernel only checks whether the syscall
// itself would be permitted, which fails with ESRCH once the process is
// gone.
func isAliveSignal0(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
