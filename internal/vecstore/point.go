package vecstore

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// Point is one vector row: the embedding plus the payload columns search
// and deletion operate on.
type Point struct {
	ID         int64
	Vector     []float32
	DocumentID int64
	ChunkID    string
	Ordinal    int
	Content    string
	Title      string
	Hidden     bool
}

// PointID derives the vector point id for a chunk position. The id is the
// first 8 bytes of SHA-256 over (document_id, ordinal), masked positive,
// so re-indexing the same position always lands on the same point. 0 is
// reserved as the unset sentinel and never returned.
func PointID(documentID int64, ordinal int) int64 {
	var key [12]byte
	binary.BigEndian.PutUint64(key[0:8], uint64(documentID))
	binary.BigEndian.PutUint32(key[8:12], uint32(ordinal))
	return idFromHash(sha256.Sum256(key[:]))
}

// NextPointID derives a fallback id by rehashing the current one. Used
// when the natural id for a position is still owned by a live chunk that
// kept its vector from a prior version.
func NextPointID(id int64) int64 {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(id))
	return idFromHash(sha256.Sum256(key[:]))
}

func idFromHash(sum [32]byte) int64 {
	id := int64(binary.BigEndian.Uint64(sum[:8]) & math.MaxInt64)
	if id == 0 {
		id = 1
	}
	return id
}

// validatePoint checks one point ahead of a write. The item index makes
// batch rejections actionable.
func validatePoint(p Point, dimension, item int) error {
	if p.ID == 0 {
		return fmt.Errorf("%w: item %d has no point id", ErrInvalidPoint, item)
	}
	if p.DocumentID <= 0 {
		return fmt.Errorf("%w: item %d has document id %d", ErrInvalidPoint, item, p.DocumentID)
	}
	if p.ChunkID == "" {
		return fmt.Errorf("%w: item %d has no chunk id", ErrInvalidPoint, item)
	}
	if len(p.Vector) != dimension {
		return fmt.Errorf("%w: item %d has %d components, collection uses %d",
			ErrInvalidDimension, item, len(p.Vector), dimension)
	}
	for i, v := range p.Vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: item %d component %d", ErrNonFiniteVector, item, i)
		}
	}
	return nil
}
