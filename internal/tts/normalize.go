package tts

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTextLength is the rune limit applied to a single utterance.
const DefaultMaxTextLength = 200

// Normalize prepares chat text for synthesis. Compatibility forms such as
// fullwidth letters fold to their plain equivalents (NFKC), control and
// format characters are dropped and whitespace runs collapse to one space.
// The result is cut to at most maxLen runes, preferring a word boundary. A
// non-positive maxLen uses DefaultMaxTextLength.
func Normalize(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}

	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), r == unicode.ReplacementChar:
			continue
		default:
			b.WriteRune(r)
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	return truncateRunes(collapsed, maxLen)
}

// truncateRunes cuts s to at most n runes. When the cut lands inside a word
// and an earlier space exists in the second half of the kept text, it backs
// up to that space.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	cut := runes[:n]
	if runes[n] != ' ' {
		for i := len(cut) - 1; i >= n/2; i-- {
			if cut[i] == ' ' {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimSpace(string(cut))
}
