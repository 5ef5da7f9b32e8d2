package outline

import "strings"

// splitText cuts text into passages of about target tokens. Paragraph
// boundaries are preferred; a paragraph larger than the target is cut at
// sentence boundaries instead.
func splitText(text string, target, overlap int) []string {
	var out []string
	var run []string
	for _, para := range paragraphs(text) {
		if EstimateTokens(para) <= target {
			run = append(run, para)
			continue
		}
		out = append(out, pack(run, "\n\n", target, overlap)...)
		run = nil
		out = append(out, pack(sentences(para), " ", target, overlap)...)
	}
	return append(out, pack(run, "\n\n", target, overlap)...)
}

// pack greedily joins units with sep until the next unit would push the
// passage past target. Each new passage starts with the last overlap tokens
// of the previous one.
func pack(units []string, sep string, target, overlap int) []string {
	var out []string
	var cur strings.Builder
	tokens := 0

	for _, u := range units {
		n := EstimateTokens(u)
		if tokens > 0 && tokens+n > target {
			done := cur.String()
			out = append(out, done)
			cur.Reset()
			tokens = 0
			if tail := overlapTail(done, overlap); tail != "" {
				cur.WriteString(tail)
				tokens = EstimateTokens(tail)
			}
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(u)
		tokens += n
	}
	if tokens > 0 {
		out = append(out, cur.String())
	}
	return out
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after '.', '!' or '?' followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// overlapTail returns roughly the last n tokens of text, or "" when text is
// not longer than that.
func overlapTail(text string, n int) string {
	words := strings.Fields(text)
	keep := n * 3 / 4
	if keep <= 0 || len(words) <= keep {
		return ""
	}
	return strings.Join(words[len(words)-keep:], " ")
}
