// Package normalize canonicalizes chunk text and computes content hashes.
//
// Normalization runs before hashing everywhere in the pipeline. Hashing raw
// text would make invisible formatting noise (CRLF line endings, trailing
// spaces, runs of blank lines) churn the hash and defeat chunk reuse.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize returns the canonical form of text: line endings unified to LF,
// trailing whitespace stripped per line, runs of three or more blank lines
// collapsed to exactly two, and surrounding whitespace trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Unify CRLF and bare CR to LF first so line-based passes see one style.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	// Collapse 3+ consecutive blank lines to 2 (one empty line between
	// paragraphs plus the newline ending the previous one).
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		if line == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Hash computes the SHA-256 content hash of already-normalized text.
func Hash(normalized string) [32]byte {
	return sha256.Sum256([]byte(normalized))
}

// HashHex computes the content hash and returns it as a hex string.
func HashHex(normalized string) string {
	sum := Hash(normalized)
	return hex.EncodeToString(sum[:])
}

// NormalizeAndHash is the common composition: canonicalize, then hash.
func NormalizeAndHash(text string) (string, [32]byte) {
	norm := Normalize(text)
	return norm, Hash(norm)
}
