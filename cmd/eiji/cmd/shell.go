package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/eiji/internal/adapters/socket"
	"github.com/corey/eiji/internal/domain/query"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive search (default command)",
	Long:  "Reads one query per line and pages the hits of each dictionary group in turn.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	out := cmd.OutOrStdout()
	s := &shell{
		search:   sess.search,
		in:       cmd.InOrStdin(),
		out:      out,
		pager:    newPager(sess.config.PagerCommand(), out, cmd.ErrOrStderr()),
		color:    isTerminal(out),
		licenses: sess.config.LicenseFiles(),
	}
	return s.run(cmd.Context())
}

// shell is the read-query-page loop.
type shell struct {
	search   searcher
	in       io.Reader
	out      io.Writer
	pager    *pager
	color    bool
	licenses []string // printed by :license
}

// licenseCommand prints the dictionaries' license files instead of searching.
const licenseCommand = ":license"

const licenseRule = "    ---------------------------------------------------\n"

// run prints the banner and answers queries until the input ends.
func (s *shell) run(ctx context.Context) error {
	fmt.Fprint(s.out, banner)
	sc := bufio.NewScanner(s.in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		q := query.NormalizeInput(sc.Text())
		if strings.TrimSpace(q) == "" {
			continue
		}
		if q == licenseCommand {
			s.printLicenses()
			continue
		}
		if err := s.answer(ctx, q); err != nil {
			return err
		}
	}
	return sc.Err()
}

// printLicenses writes each license file between rules. Unreadable files
// are noted and skipped.
func (s *shell) printLicenses() {
	if len(s.licenses) == 0 {
		fmt.Fprintln(s.out, "no license files configured")
		return
	}
	fmt.Fprint(s.out, licenseRule)
	for _, path := range s.licenses {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(s.out, "%s: %v\n", path, err)
		} else {
			s.out.Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				fmt.Fprintln(s.out)
			}
		}
		fmt.Fprint(s.out, licenseRule)
	}
}

// answer pages each non-empty group of hits for q.
func (s *shell) answer(ctx context.Context, q string) error {
	groups, err := s.search.Search(ctx, q)
	if err != nil {
		return err
	}
	return pageGroups(s.pager, q, groups, s.color)
}

// pageGroups shows each group with hits as one pager session.
func pageGroups(p *pager, q string, groups []socket.GroupHits, color bool) error {
	d, err := newDecorator(q, color)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.Count() == 0 {
			continue
		}
		if err := p.page(renderGroup(d, g)); err != nil {
			return err
		}
	}
	return nil
}
