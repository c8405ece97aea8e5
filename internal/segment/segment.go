package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/pmahlen/docdex/pkg/types"
)

const (
	// DefaultTargetSize is the target maximum piece length in runes
	DefaultTargetSize = 1000

	// DefaultOverlap is how many trailing runes carry into the next piece
	// when a span is re-split by sentence packing
	DefaultOverlap = 200

	// DefaultMinSize is the minimum length for sentence-packed pieces;
	// shorter fragments carry too little meaning to embed on their own
	DefaultMinSize = 80
)

// Options controls segmentation sizing.
type Options struct {
	TargetSize int
	Overlap    int
	MinSize    int
}

// DefaultOptions returns the standard sizing configuration.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		Overlap:    DefaultOverlap,
		MinSize:    DefaultMinSize,
	}
}

// withDefaults fills zero values and clamps inconsistent settings.
func (o Options) withDefaults() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.Overlap <= 0 {
		o.Overlap = DefaultOverlap
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.Overlap >= o.TargetSize {
		o.Overlap = o.TargetSize / 5
	}
	return o
}

// Piece is one segmenter output: stripped text plus how it was derived.
// Ordinals number the pieces 0..n-1 in document order; they are advisory
// position markers, never part of chunk identity.
type Piece struct {
	Type    types.ChunkType
	Heading string
	Text    string
	Ordinal int
}

// span is a region of the document owned by one second-level heading, or
// the preamble before the first heading.
type span struct {
	heading string
	lines   []string
}

// Segment splits markdown text into semantic pieces. Second-level headings
// drive the split when present; each heading's span becomes one piece after
// markdown stripping, re-split by sentence packing when it exceeds the
// target size. Documents without headings fall back to paragraph packing.
func Segment(markdown string, opts Options) []Piece {
	opts = opts.withDefaults()

	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	spans := scanSpans(markdown)

	var pieces []Piece
	if hasHeadings(spans) {
		for _, sp := range spans {
			pieces = append(pieces, segmentSpan(sp, opts)...)
		}
	} else {
		body := stripMarkdown(markdown)
		for _, text := range packParagraphs(body, opts) {
			pieces = append(pieces, Piece{Type: types.ChunkParagraph, Text: text})
		}
	}

	for i := range pieces {
		pieces[i].Ordinal = i
	}
	return pieces
}

// scanSpans walks the document line by line, opening a new span at every
// second-level heading found outside fenced code blocks. Text before the
// first heading becomes a leading span with an empty heading.
func scanSpans(markdown string) []span {
	lines := strings.Split(markdown, "\n")

	var spans []span
	cur := span{}
	inFence := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			cur.lines = append(cur.lines, line)
			continue
		}
		if !inFence && strings.HasPrefix(line, "## ") {
			if len(cur.lines) > 0 || cur.heading != "" {
				spans = append(spans, cur)
			}
			cur = span{heading: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
			continue
		}
		cur.lines = append(cur.lines, line)
	}
	if len(cur.lines) > 0 || cur.heading != "" {
		spans = append(spans, cur)
	}
	return spans
}

func hasHeadings(spans []span) bool {
	for _, sp := range spans {
		if sp.heading != "" {
			return true
		}
	}
	return false
}

// segmentSpan turns one heading span into pieces. An intact span is kept at
// any non-empty length: a heading's body is semantically meaningful even
// when short. Only re-split pieces are subject to the minimum size.
func segmentSpan(sp span, opts Options) []Piece {
	body := stripMarkdown(strings.Join(sp.lines, "\n"))
	if body == "" {
		return nil
	}

	if utf8.RuneCountInString(body) <= opts.TargetSize {
		return []Piece{{Type: types.ChunkSection, Heading: sp.heading, Text: body}}
	}

	var pieces []Piece
	for _, text := range packSentences(body, opts) {
		pieces = append(pieces, Piece{Type: types.ChunkSection, Heading: sp.heading, Text: text})
	}
	return pieces
}

// packParagraphs merges consecutive short paragraphs up to the target size
// and sentence-packs any paragraph that alone exceeds it. Output below the
// minimum size is dropped.
func packParagraphs(body string, opts Options) []string {
	paras := splitParagraphs(body)

	var out []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" && utf8.RuneCountInString(text) >= opts.MinSize {
			out = append(out, text)
		}
		cur.Reset()
		curLen = 0
	}

	for _, para := range paras {
		pLen := utf8.RuneCountInString(para)

		if pLen > opts.TargetSize {
			flush()
			out = append(out, packSentences(para, opts)...)
			continue
		}

		if curLen > 0 && curLen+pLen+2 > opts.TargetSize {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(para)
		curLen += pLen
	}
	flush()

	return out
}

func splitParagraphs(body string) []string {
	var out []string
	for _, p := range blankRunRe.Split(body, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
