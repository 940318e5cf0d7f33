package textproc

import (
	"strings"
	"unicode"
)

// SplitText cuts text into chunks of at most maxChars runes. A chunk ends
// after the last sentence terminator inside the window, otherwise at the last
// whitespace, otherwise exactly at maxChars. Chunks are trimmed, empty ones
// are dropped and order is preserved. maxChars <= 0 disables splitting.
func SplitText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
		if len(runes) == 0 {
			break
		}
		if len(runes) <= maxChars {
			chunks = appendChunk(chunks, runes)
			break
		}
		cut := cutPoint(runes[:maxChars])
		chunks = appendChunk(chunks, runes[:cut])
		runes = runes[cut:]
	}
	return chunks
}

func cutPoint(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}
	return len(window)
}

func appendChunk(chunks []string, r []rune) []string {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return chunks
	}
	return append(chunks, s)
}
