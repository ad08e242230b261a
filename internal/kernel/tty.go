package kernel

import "os"

// isTTY reports whether f is connected to a terminal, using the portable
// ModeCharDevice check rather than a platform-specific ioctl — the REPL
// itself is an external collaborator (spec §1 Non-goals), so this seam only
// needs to decide whether to invoke it, not to drive a terminal directly.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
