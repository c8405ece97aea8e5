package segment

import (
	"regexp"
	"strings"
)

// Markdown stripping patterns. The goal is embeddable prose: syntax that
// carries no semantic weight is removed, syntax that wraps meaningful text
// is reduced to that text.
var (
	fencedCodeRe    = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)[^\n]*\n?.*?```")
	inlineCodeRe    = regexp.MustCompile("`([^`]*)`")
	imageRe         = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe          = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	boldRe          = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	italicRe        = regexp.MustCompile(`\*([^*]+)\*|\b_([^_]+)_\b`)
	strikethroughRe = regexp.MustCompile(`~~([^~]+)~~`)
	headingMarkRe   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe    = regexp.MustCompile(`(?m)^>\s?`)
	horizontalRe    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	bulletRe        = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedRe      = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	blankRunRe      = regexp.MustCompile(`\n{2,}`)
)

// stripMarkdown reduces markdown syntax to plain prose. Fenced code blocks
// are summarized to a language tag rather than embedded verbatim; the code
// itself is noise at embedding time but its presence and language are not.
func stripMarkdown(text string) string {
	text = fencedCodeRe.ReplaceAllStringFunc(text, func(block string) string {
		m := fencedCodeRe.FindStringSubmatch(block)
		if len(m) > 1 && m[1] != "" {
			return "[code: " + m[1] + "]"
		}
		return "[code]"
	})

	text = imageRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1$2")
	text = italicRe.ReplaceAllString(text, "$1$2")
	text = strikethroughRe.ReplaceAllString(text, "$1")
	text = horizontalRe.ReplaceAllString(text, "")
	text = headingMarkRe.ReplaceAllString(text, "")
	text = blockquoteRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "")
	text = numberedRe.ReplaceAllString(text, "")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
