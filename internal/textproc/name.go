package textproc

import (
	"regexp"
	"strings"
)

var nameRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`[?\\"%*:|<>]`), ""},
	{regexp.MustCompile(`( [wW]\s?/\s?[oO0])`), " without"},
	{regexp.MustCompile(`( [wW]\s?/)`), " with"},
	{regexp.MustCompile(`(\d+)\s?/\s?(\d+)`), "${1} of ${2}"},
	{regexp.MustCompile(`(\w+)\s?/\s?(\w+)`), "${1} or ${2}"},
	{regexp.MustCompile(`/`), ""},
}

var unsafeIDChars = regexp.MustCompile(`[^\w\s-]`)

// SafeID strips characters that do not belong in a directory name.
func SafeID(id string) string {
	return unsafeIDChars.ReplaceAllString(id, "")
}

// NormalizeName turns a post title into something usable as a file name.
func NormalizeName(title string) string {
	name := title
	for _, r := range nameRules {
		name = r.re.ReplaceAllString(name, r.repl)
	}
	return strings.TrimSpace(spacesRe.ReplaceAllString(name, " "))
}
