// Package frontmatter strips the key/value header some Markdown sources carry.
package frontmatter

import (
	"regexp"
	"strings"
)

var blockRe = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---(?:\r?\n|$)`)

// Extract splits a leading `---` delimited block off text. Each body line is
// split on its first colon; lines without one are ignored. When the text does
// not start with such a block, Extract returns an empty map and text
// unchanged. Extract never fails: a malformed block is simply not a block.
func Extract(text string) (map[string]string, string) {
	fields := map[string]string{}

	m := blockRe.FindStringSubmatchIndex(text)
	if m == nil {
		return fields, text
	}

	for _, line := range strings.Split(text[m[2]:m[3]], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}

	return fields, text[m[1]:]
}
