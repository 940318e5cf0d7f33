// Package textproc prepares post text for speech synthesis and file names.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlRe    = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+|\b[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|org|net|io|gov|edu|co|ly|me|be|gg|tv)\b(?:/\S*)?`)
	symbolRe = regexp.MustCompile(`\s['’]|['’]\s|[\^_~@!;#:\-%—“”‘"*/{}\[\]()\\|<>=]`)
	spacesRe = regexp.MustCompile(`\s+`)
)

// SanitizeText removes links and characters that TTS engines read aloud
// badly. "+" and "&" are spelled out, emoji are dropped and whitespace is
// collapsed.
func SanitizeText(text string) string {
	out := urlRe.ReplaceAllString(text, " ")
	out = strings.NewReplacer("+", " plus ", "&", " and ").Replace(out)
	out = symbolRe.ReplaceAllString(out, " ")
	out = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.So, r) || unicode.Is(unicode.Cs, r) || r == '\uFE0F' || r == '\u200D' {
			return -1
		}
		return r
	}, out)
	return strings.TrimSpace(spacesRe.ReplaceAllString(out, " "))
}

var paragraphRe = regexp.MustCompile(`\n+`)

// Paragraphs splits a self post into sanitized paragraphs. Paragraphs longer
// than maxChars are further cut with SplitText; empty ones are dropped.
func Paragraphs(text string, maxChars int) []string {
	var out []string
	for _, p := range paragraphRe.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		p = SanitizeText(p)
		if p == "" {
			continue
		}
		out = append(out, SplitText(p, maxChars)...)
	}
	return out
}
