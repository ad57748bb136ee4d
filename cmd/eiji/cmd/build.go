package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/eiji/internal/adapters/socket"
	"github.com/corey/eiji/internal/app"
	"github.com/corey/eiji/internal/ports"
)

var buildCmd = &cobra.Command{
	Use:   "build [name...]",
	Short: "Rebuild dictionary indexes",
	Long: "Normalizes the source and rebuilds the index of each named dictionary,\n" +
		"or of every dictionary with a source when no name is given.\n" +
		"A running \"eiji watch\" does the rebuild and swaps the new index in.",
	RunE: runBuild,
}

// rebuildFunc rebuilds one dictionary in-process or through the daemon.
type rebuildFunc func(ctx context.Context, name string) (*ports.Manifest, error)

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var rebuild rebuildFunc
	client := socket.NewClient(socket.SocketPath(cfg.DataDir))
	if client.Ping() {
		fmt.Fprintln(cmd.OutOrStdout(), "⚡ Daemon running, delegating rebuild...")
		rebuild = func(_ context.Context, name string) (*ports.Manifest, error) {
			res, err := client.Rebuild(name)
			if err != nil {
				return nil, err
			}
			return &res.Manifest, nil
		}
	} else {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()
		rebuild = a.Rebuild
	}

	names := args
	explicit := len(names) > 0
	if !explicit {
		for _, d := range cfg.Dictionaries {
			names = append(names, d.Name)
		}
	}
	return buildAll(cmd, rebuild, names, explicit)
}

// buildAll rebuilds names in order. Without explicit names a dictionary
// lacking a source is skipped instead of failing the run.
func buildAll(cmd *cobra.Command, rebuild rebuildFunc, names []string, explicit bool) error {
	out := cmd.OutOrStdout()
	built := 0
	for _, name := range names {
		fmt.Fprintf(out, "⚡ building %s...\n", name)
		m, err := rebuild(cmd.Context(), name)
		if !explicit && isNoSource(err) {
			fmt.Fprintf(out, "  %sskipped: no source%s\n", colorGray, colorReset)
			continue
		}
		if err != nil {
			return err
		}
		built++
		fmt.Fprintf(out, "  %d lines, %d entries, key width %d (%dms)\n",
			m.Lines, m.Entries, m.KeyWidth, m.DurationMs)
	}
	if built == 0 {
		return errors.New("nothing to build: no dictionary has a source")
	}
	return nil
}

// isNoSource matches app.ErrNoSource locally and socket.CodeNoSource from a
// daemon.
func isNoSource(err error) bool {
	return errors.Is(err, app.ErrNoSource)
}
