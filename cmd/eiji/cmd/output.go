package cmd

import (
	"fmt"
	"strings"

	"github.com/corey/eiji/internal/adapters/ahocorasick"
	"github.com/corey/eiji/internal/adapters/socket"
)

// ANSI sequences used in result rendering.
const (
	colorReset     = "\033[0m"
	colorBold      = "\033[1m"
	colorHeadword  = "\033[1;36m"
	colorHighlight = "\033[1;32m"
	colorKey       = "\033[1;33m"
	colorGray      = "\033[90m"
	strikeOn       = "\033[9m"
)

// banner is printed when the interactive shell starts.
const banner = colorReset + colorHighlight + "検索文字" + colorReset + "(Enter)で検索\n" +
	colorKey + "d" + colorReset + "で画面をスクロール " + colorKey + "q" + colorReset + "で次の辞書\n" +
	colorHighlight + "検索文字\t" + colorReset + "(Tab Enter)で見出し語に絞り込み(結果が少なめ)\n" +
	colorKey + ":license" + colorReset + "(Enter)でライセンスを表示\n" +
	colorHeadword + "ctrl+c" + colorReset + "でソフトウェアを終了\n"

// Corpus markup. Bodies store line breaks as a literal backslash-n and mark
// struck-through text with <ħ>...</ħ>.
var (
	colorMarkup = strings.NewReplacer(`\n`, "\n", "<ħ>", strikeOn, "</ħ>", colorReset)
	plainMarkup = strings.NewReplacer(`\n`, "\n", "<ħ>", "", "</ħ>", "")
)

// decorator renders result lines for one query.
//
//	headword<TAB>body  →  ESC[1;36mheadword ESC[0m  body
//
// The query is highlighted in both halves. In the headword tabs are dropped
// from the query, since the headword ends at the first tab.
type decorator struct {
	color bool
	head  *ahocorasick.TextScanner // nil when nothing to highlight
	body  *ahocorasick.TextScanner
}

func newDecorator(q string, color bool) (*decorator, error) {
	d := &decorator{color: color}
	if !color {
		return d, nil
	}
	var err error
	if hq := strings.ReplaceAll(q, "\t", ""); hq != "" {
		if d.head, err = ahocorasick.NewTextScanner([]string{hq}); err != nil {
			return nil, err
		}
	}
	if q != "" {
		if d.body, err = ahocorasick.NewTextScanner([]string{q}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// line renders one result line. A line without a tab is all headword.
func (d *decorator) line(l string) string {
	head, body, _ := strings.Cut(l, "\t")
	if !d.color {
		return head + "  " + plainMarkup.Replace(body)
	}
	return colorHeadword +
		highlight(head, d.head, colorReset+colorHighlight, colorReset+colorHeadword) +
		colorReset + "  " +
		highlight(colorMarkup.Replace(body), d.body, colorHighlight, colorReset)
}

// highlight wraps every match of s in text with open and close.
func highlight(text string, s *ahocorasick.TextScanner, open, close string) string {
	if s == nil {
		return text
	}
	matches := s.Scan(text)
	if len(matches) == 0 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text) + len(matches)*(len(open)+len(close)))
	last := 0
	for _, m := range matches {
		if m.Start < last {
			continue
		}
		sb.WriteString(text[last:m.Start])
		sb.WriteString(open)
		sb.WriteString(text[m.Start:m.End])
		sb.WriteString(close)
		last = m.End
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// renderGroup renders the lines of one group, one result per line.
func renderGroup(d *decorator, g socket.GroupHits) string {
	out := make([]string, len(g.Lines))
	for i, l := range g.Lines {
		out[i] = d.line(l)
	}
	return strings.Join(out, "\n")
}

// formatCounts renders one "group  N hits" line per group.
//
//	⚡ main       12 hits  (edict 3, eijiro 9)
func formatCounts(results []socket.GroupHits, color bool) string {
	width := 0
	for _, g := range results {
		width = max(width, len(g.Name))
	}
	var sb strings.Builder
	for _, g := range results {
		parts := make([]string, len(g.Sources))
		for i, src := range g.Sources {
			parts[i] = fmt.Sprintf("%s %d", src.Name, src.Count)
			if src.Truncated {
				parts[i] += "+"
			}
		}
		name := fmt.Sprintf("%-*s", width, g.Name)
		if color {
			name = colorBold + name + colorReset
		}
		fmt.Fprintf(&sb, "⚡ %s  %d hits  (%s)\n", name, g.Count(), strings.Join(parts, ", "))
	}
	return sb.String()
}
