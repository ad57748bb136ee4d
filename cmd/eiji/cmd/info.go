package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/eiji/internal/adapters/socket"
	"github.com/corey/eiji/internal/ports"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index build manifests",
	Long:  "Lists each configured dictionary with the manifest of its last build.",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := socket.NewClient(socket.SocketPath(cfg.DataDir))
	if client.Ping() {
		health, err := client.Health()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatHealth(health))
		return nil
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	manifests, err := a.Manifests()
	if err != nil {
		return err
	}
	byName := make(map[string]*ports.Manifest, len(manifests))
	for _, m := range manifests {
		byName[m.Name] = m
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s⚡ eiji info%s\n", colorBold, colorReset)
	fmt.Fprintf(out, "  Data:  %s\n", a.Config.DataDir)
	fmt.Fprintf(out, "  DB:    %s\n", a.DBPath())
	for _, d := range a.Dictionaries() {
		cfg := d.Config()
		fmt.Fprintf(out, "\n  %s%s%s  [%s, %s]\n", colorHeadword, cfg.Name, colorReset, cfg.Group, cfg.Format)
		writeManifest(out, byName[cfg.Name])
	}
	return nil
}

func writeManifest(out io.Writer, m *ports.Manifest) {
	if m == nil {
		fmt.Fprintf(out, "    %snot built%s\n", colorGray, colorReset)
		return
	}
	fmt.Fprintf(out, "    Source:   %s\n", m.Source)
	fmt.Fprintf(out, "    Built:    %s (%dms)\n", m.BuiltAt.Local().Format(time.DateTime), m.DurationMs)
	fmt.Fprintf(out, "    Lines:    %d (%d bytes)\n", m.Lines, m.CorpusBytes)
	fmt.Fprintf(out, "    Entries:  %d of %d segments, key width %d\n", m.Entries, m.Segments, m.KeyWidth)
	fmt.Fprintf(out, "    Build:    %s\n", m.BuildID)
}

// formatHealth renders the daemon's view when "eiji watch" holds the
// manifest database.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s⚡ eiji info%s (daemon, up %s)\n", colorBold, colorReset, h.Uptime)
	fmt.Fprintf(&sb, "  Data:  %s\n", h.DataDir)
	for _, d := range h.Dictionaries {
		state := fmt.Sprintf("%d entries", d.Entries)
		if !d.Available {
			state = colorGray + "unavailable" + colorReset
		}
		fmt.Fprintf(&sb, "  %s%s%s  [%s]  %s\n", colorHeadword, d.Name, colorReset, d.Group, state)
	}
	return sb.String()
}
