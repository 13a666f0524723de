package display

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCommand(t *testing.T) {
	assert.Equal(t, "FSIMG(2212352,20,20,200,200,0);\r\n", string(FrameCommand(0)))
	assert.Equal(t, "FSIMG(2292352,20,20,200,200,0);\r\n", string(FrameCommand(1)))
	assert.Equal(t, "FSIMG(6932352,20,20,200,200,0);\r\n", string(FrameCommand(59)))
}

func TestPrepareSubtitleTruncates(t *testing.T) {
	in := strings.Repeat("a", 850)

	got := PrepareSubtitle(in)
	assert.Equal(t, 803, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("a", 800), strings.TrimSuffix(got, "..."))
}

func TestPrepareSubtitleTruncatesAtRuneBoundary(t *testing.T) {
	in := strings.Repeat("眼", 850)

	got := PrepareSubtitle(in)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("眼", 266)+"...", got)
	assert.LessOrEqual(t, len(strings.TrimSuffix(got, "...")), MaxSubtitleBytes)
}

func TestSubtitleCommandCJKFitsScreenBuffer(t *testing.T) {
	cmd, err := SubtitleCommand(strings.Repeat("眼", 850))
	require.NoError(t, err)
	// 266 two-byte GBK characters, the ellipsis and the command framing.
	assert.Len(t, cmd, len("SET_TXT(1,'")+266*2+len("...');\r\n"))
	assert.Less(t, len(cmd), 1200)
}

func TestPrepareSubtitleSanitizesAfterTruncation(t *testing.T) {
	in := "it's\n" + strings.Repeat("b", 845) + "'\r"

	got := PrepareSubtitle(in)
	assert.Equal(t, 803, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(got, `it"s `))
	assert.NotContains(t, got, "'")
	assert.NotContains(t, got, "\n")
	assert.NotContains(t, got, "\r")
}

func TestPrepareSubtitleShortUnchanged(t *testing.T) {
	assert.Equal(t, "hello", PrepareSubtitle("hello"))
	assert.Equal(t, strings.Repeat("c", 800), PrepareSubtitle(strings.Repeat("c", 800)))
}

func TestSubtitleCommandASCII(t *testing.T) {
	cmd, err := SubtitleCommand("don't\nstop")
	require.NoError(t, err)
	assert.Equal(t, "SET_TXT(1,'don\"t stop');\r\n", string(cmd))
}

func TestSubtitleCommandGBK(t *testing.T) {
	cmd, err := SubtitleCommand("你好")
	require.NoError(t, err)

	want := append([]byte("SET_TXT(1,'"), 0xC4, 0xE3, 0xBA, 0xC3)
	want = append(want, "');\r\n"...)
	assert.Equal(t, want, cmd)
}

func TestSubtitleCommandReplacesUnsupported(t *testing.T) {
	cmd, err := SubtitleCommand("hi 🙂")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(cmd), "SET_TXT(1,'hi "))
	assert.True(t, strings.HasSuffix(string(cmd), "');\r\n"))
	assert.NotContains(t, string(cmd), "🙂")
}
