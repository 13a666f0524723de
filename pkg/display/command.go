package display

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/frames"
)

// Frames are drawn at a fixed position, size and opacity.
const (
	frameX     = 20
	frameY     = 20
	frameW     = 200
	frameH     = 200
	frameAlpha = 0
)

const (
	// MaxSubtitleBytes is the longest UTF-8 subtitle shown before truncation.
	MaxSubtitleBytes = 800
	ellipsis         = "..."
	terminator       = "\r\n"
)

// FrameCommand returns the command that draws the flash image id.
func FrameCommand(id frames.ID) []byte {
	return fmt.Appendf(nil, "FSIMG(%d,%d,%d,%d,%d,%d);"+terminator,
		frames.Address(id), frameX, frameY, frameW, frameH, frameAlpha)
}

// PrepareSubtitle truncates text to at most MaxSubtitleBytes, backing off to a
// rune boundary, followed by an ellipsis. It then rewrites characters that would break the single-quoted command
// argument: single quotes become double quotes and line breaks become spaces.
func PrepareSubtitle(text string) string {
	if len(text) > MaxSubtitleBytes {
		cut := MaxSubtitleBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + ellipsis
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '\'':
			return '"'
		case '\n', '\r':
			return ' '
		default:
			return r
		}
	}, text)
}

// SubtitleCommand returns the command that shows text in the subtitle box.
// The screen only understands GBK, so the prepared text is transcoded and
// characters outside GBK are replaced.
func SubtitleCommand(text string) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())
	gbk, err := enc.String(PrepareSubtitle(text))
	if err != nil {
		return nil, fmt.Errorf("display: encode subtitle: %w", err)
	}

	cmd := make([]byte, 0, len(gbk)+len("SET_TXT(1,'');")+len(terminator))
	cmd = append(cmd, "SET_TXT(1,'"...)
	cmd = append(cmd, gbk...)
	cmd = append(cmd, "');"+terminator...)
	return cmd, nil
}
