package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// splitSentences breaks text at sentence enders (. ! ?) followed by
// whitespace or end of text. Sentences come back trimmed; text with no
// enders comes back as a single sentence.
func splitSentences(text string) []string {
	var out []string
	var cur []rune

	runes := []rune(text)
	for i, r := range runes {
		cur = append(cur, r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	if s := strings.TrimSpace(string(cur)); s != "" {
		out = append(out, s)
	}
	return out
}

// packSentences greedily packs sentences into pieces of at most the target
// size, carrying the trailing overlap of each sealed piece into the next so
// context survives the cut. Pieces below the minimum size are dropped. A
// single sentence longer than the target is hard-wrapped at the target
// size so output size stays bounded on degenerate input.
func packSentences(text string, opts Options) []string {
	sentences := splitSentences(text)

	var pieces []string
	var cur strings.Builder
	curLen := 0  // rune length of cur
	seedLen := 0 // rune length of the overlap seed at the head of cur

	keep := func(piece string) {
		piece = strings.TrimSpace(piece)
		if piece != "" && utf8.RuneCountInString(piece) >= opts.MinSize {
			pieces = append(pieces, piece)
		}
	}

	reseed := func(prev string) {
		cur.Reset()
		tail := tailRunes(prev, opts.Overlap)
		cur.WriteString(tail)
		curLen = utf8.RuneCountInString(tail)
		seedLen = curLen
	}

	for _, s := range sentences {
		sLen := utf8.RuneCountInString(s)

		if sLen > opts.TargetSize {
			if curLen > seedLen {
				keep(cur.String())
			}
			cur.Reset()
			curLen, seedLen = 0, 0
			for _, part := range wrapRunes(s, opts.TargetSize) {
				keep(part)
			}
			continue
		}

		if curLen > seedLen && curLen+sLen+1 > opts.TargetSize {
			sealed := cur.String()
			keep(sealed)
			reseed(sealed)
		}

		if curLen > 0 {
			cur.WriteString(" ")
			curLen++
		}
		cur.WriteString(s)
		curLen += sLen
	}

	if curLen > seedLen {
		keep(cur.String())
	}
	return pieces
}

// tailRunes returns the last n runes of s.
func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// wrapRunes splits s into consecutive segments of at most n runes.
func wrapRunes(s string, n int) []string {
	if n <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
