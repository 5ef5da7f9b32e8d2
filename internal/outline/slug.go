package outline

import (
	"regexp"
	"strings"
)

var (
	slugInvalidRe = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	slugDashRe    = regexp.MustCompile(`-+`)
)

// Slugify converts a heading into an anchor-safe slug. Letters outside ASCII
// are kept.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if r := []rune(s); len(r) > 64 {
		s = strings.TrimRight(string(r[:64]), "-")
	}
	return s
}
