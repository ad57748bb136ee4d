package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func sjis(t *testing.T, s string) *strings.Reader {
	t.Helper()
	enc, err := japanese.ShiftJIS.NewEncoder().String(s)
	require.NoError(t, err)
	return strings.NewReader(enc)
}

func normalize(t *testing.T, f Format, src string) string {
	t.Helper()
	var r = strings.NewReader(src)
	out, err := Normalize(f, r, nil)
	require.NoError(t, err)
	return string(out)
}

// =============================================================================
// Plain, Tanaka and parallel sources
// =============================================================================

func TestNormalize_Plain(t *testing.T) {
	got := normalize(t, FormatPlain, "same type\t同型\r\n\ntype\t型\n")
	assert.Equal(t, "same type\t同型\n\ntype\t型", got)
}

func TestNormalize_PlainRejectsInvalidUTF8(t *testing.T) {
	_, err := Normalize(FormatPlain, strings.NewReader("ok\nbad \xff\n"), nil)
	require.ErrorIs(t, err, ErrInvalidText)
	assert.Contains(t, err.Error(), "line 2")
}

func TestNormalize_Tanaka(t *testing.T) {
	src := "A: ムーリエルは２０歳になりました。\tMuiriel is 20 now.#ID=1282_4707\n" +
		"B: は 二十歳(はたち){２０歳} になる[01]{になりました}\n" +
		"A: 彼は来た\tHe came.\n"
	got := normalize(t, FormatTanaka, src)
	assert.Equal(t, "ムーリエルは２０歳になりました。\tMuiriel is 20 now.\n彼は来た\tHe came.", got)
}

func TestNormalize_Parallel(t *testing.T) {
	out, err := Normalize(FormatParallel,
		strings.NewReader("Thank you.\nGood morning.\nextra\n"),
		strings.NewReader("ありがとう。\nおはよう。\n"))
	require.NoError(t, err)
	assert.Equal(t, "Thank you.\tありがとう。\nGood morning.\tおはよう。", string(out))
}

func TestNormalize_ParallelNeedsSecondSource(t *testing.T) {
	_, err := Normalize(FormatParallel, strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, ErrSecondSource)
}

// =============================================================================
// EIJIRO and REIJIRO (Shift_JIS dictionaries)
// =============================================================================

func TestNormalize_EijiroPlainEntries(t *testing.T) {
	src := "■isomorphism : 《数》同型■・[名]\r\n" +
		"■same type : 同型\r\n"
	out, err := Normalize(FormatEijiro, sjis(t, src), nil)
	require.NoError(t, err)
	assert.Equal(t, `isomorphism`+"\t"+`《数》同型\n・[名]`+"\n"+"same type\t同型", string(out))
}

func TestNormalize_EijiroMergesAttributedEntries(t *testing.T) {
	src := "■type  {名-1} : 型\n" +
		"■type  {名-2} : タイプ\n" +
		"■type  {他動-1} : タイプする\n" +
		"■typed : タイプされた\n" +
		"■type  {名-3} : 活字\n"
	out, err := Normalize(FormatEijiro, sjis(t, src), nil)
	require.NoError(t, err)

	records := strings.Split(string(out), "\n")
	assert.Equal(t, []string{
		"type\t【名-1】型" + `\n` + "【名-2】タイプ" + `\n` + "【他動-1】タイプする",
		"typed\tタイプされた",
		"type\t【名-3】活字",
	}, records)
}

func TestNormalize_EijiroSkipsRedirects(t *testing.T) {
	src := "■colour : <→color>\n" +
		"■color  {名} : 色\n"
	out, err := Normalize(FormatEijiro, sjis(t, src), nil)
	require.NoError(t, err)
	assert.Equal(t, "color\t【名】色", string(out))
}

func TestNormalize_EijiroMalformedLine(t *testing.T) {
	_, err := Normalize(FormatEijiro, sjis(t, "■ok : fine\n■broken entry\n"), nil)
	require.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Normalize(FormatEijiro, sjis(t, "no mark : body\n"), nil)
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestNormalize_Reijiro(t *testing.T) {
	src := "■a bird in the hand : 手中の一羽／◆ことわざ 明日の百より今日の五十◆【参考】bush\n" +
		"■all is well : 万事順調◆金言 終わりよければ◆その他\n"
	out, err := Normalize(FormatReijiro, sjis(t, src), nil)
	require.NoError(t, err)
	assert.Equal(t,
		"a bird in the hand\t手中の一羽◆ことわざ 明日の百より今日の五十\n"+
			"all is well\t万事順調◆金言 終わりよければ",
		string(out))
}

func TestNormalize_RecordsContainNoNewlines(t *testing.T) {
	src := "■a  {名} : x■y\n■a  {動} : z\n■b : w\n"
	out, err := Normalize(FormatEijiro, sjis(t, src), nil)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(out), "\n"), 2)
}

// =============================================================================
// Format names
// =============================================================================

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPlain, got)

	_, err = ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatTraits(t *testing.T) {
	assert.True(t, FormatParallel.NeedsSecondSource())
	assert.False(t, FormatPlain.NeedsSecondSource())
	assert.True(t, FormatEijiro.ShiftJIS())
	assert.True(t, FormatReijiro.ShiftJIS())
	assert.False(t, FormatTanaka.ShiftJIS())
}
