// Package segment divides markdown documents into semantic pieces for
// embedding and search.
//
// Segmentation happens at natural document boundaries so each piece stays
// coherent enough to embed on its own.
//
// # Basic Usage
//
//	pieces := segment.Segment(markdown, segment.DefaultOptions())
//	for _, p := range pieces {
//	    fmt.Printf("%s [%d]: %s\n", p.Type, p.Ordinal, p.Text)
//	}
//
// # Segmentation Strategy
//
// Two strategies cover the two shapes real documents take:
//
//   - Heading-based: second-level headings ("## ") split the document into
//     spans. Each span becomes one piece after markdown stripping. Spans
//     larger than the target size are re-split by sentence packing with
//     overlapping context carried across the cut.
//   - Paragraph fallback: documents without headings are packed paragraph
//     by paragraph, merging short neighbors up to the target size and
//     sentence-packing oversized paragraphs.
//
// Headings inside fenced code blocks do not split. Text before the first
// heading forms a leading span of its own.
//
// # Markdown Stripping
//
// Pieces carry prose, not syntax: code fences reduce to a language tag,
// links and images reduce to their label text, emphasis and list markers
// are removed. See stripMarkdown.
//
// # Sizing
//
// Options{TargetSize, Overlap, MinSize} control packing, measured in
// runes. Sentence-packed pieces shorter than MinSize are dropped; intact
// heading spans are kept at any non-empty length, since a section body is
// meaningful even when short.
//
// Ordinals number pieces 0..n-1 in document order. They are advisory:
// chunk identity is content-derived and position-independent.
package segment
