package extractor

import "strings"

var bulletGlyphs = []string{"•", "●", "▪", "◦", "‣", "·", "*"}

// Normalize flattens the artifacts different document converters leave behind
// so the parser downstream always sees the same plain-text shape: LF line
// endings, form-feed page markers turned into paragraph breaks, one bullet
// style, soft-wrapped lines rejoined and blank runs collapsed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimLeft(line, " \t")
		for _, glyph := range bulletGlyphs {
			if strings.HasPrefix(trimmed, glyph+" ") || trimmed == glyph {
				trimmed = "- " + strings.TrimLeft(strings.TrimPrefix(trimmed, glyph), " \t")
				line = trimmed
				break
			}
		}
		lines[i] = line
	}

	lines = joinSoftWraps(lines)

	out := strings.Join(lines, "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

// joinSoftWraps merges a line into the previous one when the break looks like
// a converter wrap rather than an intentional one: previous line ends
// mid-sentence and the next starts lowercase.
func joinSoftWraps(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(out) > 0 && trimmed != "" && !strings.HasPrefix(trimmed, "- ") {
			prev := out[len(out)-1]
			if isSoftWrapped(prev, trimmed) {
				out[len(out)-1] = prev + " " + trimmed
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

func isSoftWrapped(prev, next string) bool {
	if prev == "" || strings.HasPrefix(strings.TrimSpace(prev), "- ") {
		return false
	}
	last := prev[len(prev)-1]
	if last == '.' || last == ':' || last == ';' || last == '!' || last == '?' {
		return false
	}
	first := rune(next[0])
	return first >= 'a' && first <= 'z'
}
