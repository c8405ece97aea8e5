package diff

import (
	"encoding/hex"
	"fmt"

	"github.com/pmahlen/docdex/pkg/types"
)

// idHashBytes is how many bytes of the content hash the stable id embeds.
// The truncation keeps ids compact; the theoretical collision between
// distinct contents is accepted and degraded safely by Classify's
// hash-differs branch (re-embed instead of wrong reuse).
const idHashBytes = 8

// StableID derives a chunk's content-addressed identifier. Identical
// normalized content within the same document and type always yields the
// same id, regardless of where the chunk sits in the document; any content
// change yields a different id.
func StableID(documentID int64, typ types.ChunkType, contentHash [32]byte) string {
	return fmt.Sprintf("%d-%s-%s", documentID, typ, hex.EncodeToString(contentHash[:idHashBytes]))
}
