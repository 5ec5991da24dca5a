//go:build !windows

package lsp

import (
	"os"
	"syscall"
)

// isProcessAlive probes pid with a zero signal, POSIX kill(pid, 0)
// semantics: delivery succeeds without actually signalling the process
// (spec.md §9).
func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
