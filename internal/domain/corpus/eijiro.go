package corpus

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	entryMark  = "■"
	entrySep   = " : "
	attrMark   = "  {"
	redirectL  = "<→"
	escapedNL  = `\n`
	reijiroSeg = "◆"
)

// splitEntry splits "■title : body" at the first separator.
func splitEntry(n int, line string) (title, body string, err error) {
	rest, ok := strings.CutPrefix(line, entryMark)
	if !ok {
		return "", "", fmt.Errorf("%w: line %d: missing %q", ErrMalformedLine, n, entryMark)
	}
	title, body, ok = strings.Cut(rest, entrySep)
	if !ok {
		return "", "", fmt.Errorf("%w: line %d: missing %q", ErrMalformedLine, n, entrySep)
	}
	return title, body, nil
}

// eijiroAppender folds EIJIRO entries into records.
//
// An entry whose title carries an attribute ("word  {名-1}") opens a record
// for its headword; following attributed entries for the same headword are
// appended to that record behind an escaped newline. Any other entry closes
// the merge and becomes a record of its own.
type eijiroAppender struct {
	buf     bytes.Buffer
	started bool

	merging  bool   // last record may absorb the next attributed entry
	headword string // headword of that record
}

func (a *eijiroAppender) append(title, body string) {
	if strings.HasPrefix(body, redirectL) && strings.HasSuffix(body, ">") {
		return
	}

	word, attr, ok := strings.Cut(title, attrMark)
	if !ok {
		a.newRecord(title)
		a.buf.WriteString(escapeBody(body))
		a.merging = false
		return
	}

	if a.merging && a.headword == word {
		a.buf.WriteString(escapedNL)
	} else {
		a.newRecord(word)
	}
	a.buf.WriteString(bracketAttr("{" + attr))
	a.buf.WriteString(escapeBody(body))
	a.merging, a.headword = true, word
}

func (a *eijiroAppender) newRecord(title string) {
	if a.started {
		a.buf.WriteByte('\n')
	}
	a.started = true
	a.buf.WriteString(title)
	a.buf.WriteByte('\t')
}

func (a *eijiroAppender) bytes() []byte { return a.buf.Bytes() }

var (
	bodyEscaper = strings.NewReplacer(entryMark, escapedNL)
	attrBracket = strings.NewReplacer("{", "【", "}", "】")
)

// escapeBody turns in-body entry marks into escaped newlines so a record
// stays on one line.
func escapeBody(body string) string { return bodyEscaper.Replace(body) }

func bracketAttr(attr string) string { return attrBracket.Replace(attr) }

// reijiroBody drops the "／" separators and every "◆" note except proverbs
// (ことわざ) and maxims (金言).
func reijiroBody(body string) string {
	segs := strings.Split(strings.ReplaceAll(body, "／", ""), reijiroSeg)
	var b strings.Builder
	b.WriteString(segs[0])
	for _, s := range segs[1:] {
		if strings.HasPrefix(s, "ことわざ") || strings.HasPrefix(s, "金言") {
			b.WriteString(reijiroSeg)
			b.WriteString(s)
		}
	}
	return b.String()
}
