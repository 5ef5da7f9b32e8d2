package outline

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates a tokenizer: about four tokens per three words,
// with words longer than eight runes counted once more per extra eight runes.
func EstimateTokens(text string) int {
	units := 0
	for _, w := range strings.Fields(text) {
		units += 1 + (utf8.RuneCountInString(w)-1)/8
	}
	if units == 0 {
		return 0
	}
	return max(units*4/3, 1)
}
