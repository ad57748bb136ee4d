package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchPlain   bool
	searchCount   bool
	searchNoPager bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Run a single query",
	Long:  "Searches every available dictionary once. Arguments are joined with spaces.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.BoolVar(&searchPlain, "plain", false, "No color or markup")
	f.BoolVarP(&searchCount, "count", "c", false, "Print hit counts per group only")
	f.BoolVar(&searchNoPager, "no-pager", false, "Write to stdout even on a terminal")
}

func runSearch(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	q := strings.Join(args, " ")
	groups, err := sess.search.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color := !searchPlain && isTerminal(out)
	if searchCount {
		fmt.Fprint(out, formatCounts(groups, color))
		return nil
	}

	command := sess.config.PagerCommand()
	if searchNoPager {
		command = nil
	}
	return pageGroups(newPager(command, out, cmd.ErrOrStderr()), q, groups, color)
}
