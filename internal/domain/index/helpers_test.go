package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPaths returns index paths inside a fresh temp dir.
func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Keys:    filepath.Join(dir, "TEST_NGRAM"),
		Payload: filepath.Join(dir, "TEST_INDEX"),
		Corpus:  filepath.Join(dir, "TEST_TEXT"),
	}
}

// buildAt writes text as the corpus and builds its index at paths.
func buildAt(t *testing.T, paths Paths, text string, width int) BuildStats {
	t.Helper()
	require.NoError(t, WriteFileAtomic(paths.Corpus, []byte(text)))
	stats, err := Build(context.Background(), []byte(text), BuildOptions{Paths: paths, KeyWidth: width})
	require.NoError(t, err)
	return stats
}

// buildTestIndex builds and opens an index over text.
func buildTestIndex(t *testing.T, text string, width int) *Index {
	t.Helper()
	paths := testPaths(t)
	buildAt(t, paths, text, width)
	idx, err := Open(paths, width, nil)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// lineRecords returns the record of every line of a newline-joined corpus.
func lineRecords(text string) []Record {
	var recs []Record
	off := 0
	for {
		end := off
		for end < len(text) && text[end] != '\n' {
			end++
		}
		recs = append(recs, Record{Offset: uint32(off), Length: uint32(end - off)})
		if end >= len(text) {
			return recs
		}
		off = end + 1
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

// dictionaryCorpus looks like a normalized bilingual dictionary.
const dictionaryCorpus = "a happy new year!\t新年おめでとう\n" +
	"isomorphism\t《数》同型\n" +
	"same pattern\t同型\n" +
	"same shape\t同形、同型\n" +
	"same type\t同型\n" +
	"type\t型、タイプ\n" +
	"yuck!\tうえっ\n" +
	"\n" +
	"abcdefghijklmnopqrstuvwxyz\tアルファベット"
