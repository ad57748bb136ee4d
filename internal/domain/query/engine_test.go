package query

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/eiji/internal/domain/index"
)

// fakeRetriever returns canned lines and counts calls.
type fakeRetriever struct {
	lines []string
	err   error
	calls atomic.Int32
}

func (f *fakeRetriever) Retrieve(_ context.Context, q string, _ index.RetrieveOptions) (*index.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	res := &index.Result{Query: q}
	for _, l := range f.lines {
		res.Matches = append(res.Matches, index.Match{Text: l})
	}
	return res, nil
}

func TestSearch_GroupsConcatenateInSourceOrder(t *testing.T) {
	edict := &fakeRetriever{lines: []string{"isomorphism\t同型", "同型\tsame type"}}
	eijiro := &fakeRetriever{lines: []string{"same pattern\t同型"}}
	subs := &fakeRetriever{lines: []string{"それは同型だ\tit's isomorphic"}}

	e := NewEngine([]Group{
		{Name: "main", Sources: []Source{Named("edict", edict), Named("eijiro", eijiro)}},
		{Name: "subtitle", Sources: []Source{Named("subtitle", subs)}},
	}, index.RetrieveOptions{}, nil)

	got, err := e.Search(context.Background(), "同型")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "main", got[0].Name)
	assert.Equal(t, []string{"同型\tsame type", "isomorphism\t同型", "same pattern\t同型"}, got[0].Lines)
	assert.Len(t, got[0].Results, 2)
	assert.Equal(t, []string{"edict", "eijiro"}, got[0].Sources)
	assert.Equal(t, 3, got[0].Count())

	assert.Equal(t, "subtitle", got[1].Name)
	assert.Equal(t, []string{"それは同型だ\tit's isomorphic"}, got[1].Lines)
}

func TestSearch_BlankQueryTouchesNothing(t *testing.T) {
	src := &fakeRetriever{lines: []string{"x"}}
	e := NewEngine([]Group{{Name: "main", Sources: []Source{Named("x", src)}}}, index.RetrieveOptions{}, nil)

	for _, q := range []string{"", " ", "\t \t"} {
		got, err := e.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Zero(t, src.calls.Load())
}

func TestSearch_SourceErrorNamesSource(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine([]Group{{Name: "main", Sources: []Source{
		Named("ok", &fakeRetriever{}),
		Named("broken", &fakeRetriever{err: boom}),
	}}}, index.RetrieveOptions{}, nil)

	_, err := e.Search(context.Background(), "q")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewEngine_DropsEmptyGroups(t *testing.T) {
	e := NewEngine([]Group{
		{Name: "reijiro"},
		{Name: "main", Sources: []Source{Named("x", &fakeRetriever{})}},
	}, index.RetrieveOptions{}, nil)
	require.Len(t, e.Groups(), 1)
	assert.Equal(t, "main", e.Groups()[0].Name)
}

func TestSearch_AgainstBuiltIndex(t *testing.T) {
	dir := t.TempDir()
	paths := index.Paths{
		Keys:    filepath.Join(dir, "NGRAM"),
		Payload: filepath.Join(dir, "INDEX"),
		Corpus:  filepath.Join(dir, "TEXT"),
	}
	text := "a happy new year!\t新年\nnew\t新しい\nrenew\t更新する"
	require.NoError(t, index.WriteFileAtomic(paths.Corpus, []byte(text)))
	_, err := index.Build(context.Background(), []byte(text), index.BuildOptions{Paths: paths})
	require.NoError(t, err)
	idx, err := index.Open(paths, index.KeyWidth12, nil)
	require.NoError(t, err)
	defer idx.Close()

	e := NewEngine([]Group{{Name: "main", Sources: []Source{Named("test", idx)}}}, index.RetrieveOptions{}, nil)
	got, err := e.Search(context.Background(), "new")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"new\t新しい", "a happy new year!\t新年", "renew\t更新する"}, got[0].Lines)
}
