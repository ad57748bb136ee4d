package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/eiji/internal/adapters/socket"
	"github.com/corey/eiji/internal/logging"
	"github.com/corey/eiji/internal/ports"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild indexes when sources change",
	Long: "Prepares every dictionary, then rebuilds one wholesale whenever its source\n" +
		"file changes. Other eiji commands query through it while it runs.\n" +
		"Stop with ctrl+c.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := socket.NewServer(a, a.Config.DataDir, a.SocketPath(), logging.New(cmd.ErrOrStderr(), logLevel))
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	go func() {
		select {
		case <-srv.ShutdownCh():
			stop()
		case <-ctx.Done():
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "⚡ watching %d dictionaries, serving %s (ctrl+c to stop)\n",
		len(a.Dictionaries()), srv.Addr())
	return a.Watch(ctx, func(name string, m *ports.Manifest, err error) {
		if err != nil {
			fmt.Fprintf(out, "⚡ %s: rebuild failed: %v\n", name, err)
			return
		}
		fmt.Fprintf(out, "⚡ %s rebuilt: %d lines, %d entries (%dms)\n", name, m.Lines, m.Entries, m.DurationMs)
	})
}
