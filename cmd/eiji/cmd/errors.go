package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/corey/eiji/internal/adapters/socket"
	"github.com/corey/eiji/internal/domain/index"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock checks the daemon state and returns actionable guidance
// when a bbolt open fails due to lock contention. It distinguishes three
// scenarios: daemon running, stale socket, and unknown lock holder.
func diagnoseDBLock(dataDir string) string {
	sockPath := socket.SocketPath(dataDir)
	client := socket.NewClient(sockPath)

	if client.Ping() {
		return "manifest database is locked by a running \"eiji watch\"\n" +
			"  → stop it first (ctrl+c in its terminal)\n" +
			"  → then retry your command"
	}

	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Sprintf("manifest database is locked, daemon socket exists but is not responding\n"+
			"  → a previous \"eiji watch\" may have crashed\n"+
			"  → find the process:  ps aux | grep 'eiji watch'\n"+
			"  → kill it:           kill <PID>\n"+
			"  → clean up socket:   rm %s", sockPath)
	}

	return "manifest database is locked by another process\n" +
		"  → find the process:  ps aux | grep 'eiji'\n" +
		"  → kill it:           kill <PID>\n" +
		"  → then retry your command"
}

// explainIndexError adds a recovery hint to a corrupt index error.
func explainIndexError(err error) error {
	if errors.Is(err, index.ErrCorrupt) {
		return fmt.Errorf("%w\n  → rebuild it:  eiji build <name>", err)
	}
	return err
}
