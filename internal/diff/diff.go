// Package diff derives chunk identities and classifies the current chunk
// set of a document against the previously persisted set, isolating exactly
// what needs embedding and which vector records need touching.
package diff

import "github.com/pmahlen/docdex/pkg/types"

// Change is a current chunk that must be re-embedded and written over an
// existing vector point. It carries what the plan needs from the previous
// chunk it replaces.
type Change struct {
	Chunk        types.Chunk
	PrevStableID string
	PrevRef      int64 // previous chunk's vector point id, 0 if never embedded
	PrevOrdinal  int
}

// Result partitions a document's chunks after an edit.
type Result struct {
	// Reused chunks carry their previous EmbeddingRef; no embedding call,
	// no vector-store write.
	Reused []types.Chunk
	// Changed chunks are re-embedded and overwrite the previous chunk's
	// vector point in place.
	Changed []Change
	// New chunks are embedded and inserted at fresh points.
	New []types.Chunk
	// Removed chunks existed in the previous version only; their rows and
	// vector records are deleted unconditionally.
	Removed []types.Chunk
}

// InSync reports whether the document needs no vector-store work at all.
func (r *Result) InSync() bool {
	return len(r.Changed) == 0 && len(r.New) == 0 && len(r.Removed) == 0
}

// Classify compares current chunks against the previous version's persisted
// set.
//
// Pass 1 matches by stable id: a known id with an equal content hash is
// reused (the id is content-derived, so this is the normal case); a known
// id with a different hash is a truncated-id collision and is degraded to
// changed rather than silently reusing the wrong vector.
//
// Pass 2 matches leftovers by position: an unknown id sitting at the same
// ordinal as a not-yet-consumed previous chunk is an edit of that chunk,
// classified changed so its vector point is overwritten in place instead of
// accumulating a sibling. Anything still unmatched is new.
//
// Previous chunks never matched by either pass are removed.
func Classify(current, previous []types.Chunk) Result {
	prevByID := make(map[string]*types.Chunk, len(previous))
	for i := range previous {
		prevByID[previous[i].StableID] = &previous[i]
	}

	consumed := make(map[string]bool, len(previous))
	var res Result
	var pending []types.Chunk

	for i := range current {
		cur := current[i]
		prev, ok := prevByID[cur.StableID]
		if !ok || consumed[cur.StableID] {
			pending = append(pending, cur)
			continue
		}
		consumed[cur.StableID] = true

		if prev.ContentHash == cur.ContentHash {
			cur.EmbeddingRef = prev.EmbeddingRef
			res.Reused = append(res.Reused, cur)
			continue
		}
		res.Changed = append(res.Changed, Change{
			Chunk:        cur,
			PrevStableID: prev.StableID,
			PrevRef:      prev.EmbeddingRef,
			PrevOrdinal:  prev.Ordinal,
		})
	}

	prevByOrdinal := make(map[int]*types.Chunk)
	for i := range previous {
		if !consumed[previous[i].StableID] {
			prevByOrdinal[previous[i].Ordinal] = &previous[i]
		}
	}

	for _, cur := range pending {
		prev, ok := prevByOrdinal[cur.Ordinal]
		if ok && !consumed[prev.StableID] {
			consumed[prev.StableID] = true
			res.Changed = append(res.Changed, Change{
				Chunk:        cur,
				PrevStableID: prev.StableID,
				PrevRef:      prev.EmbeddingRef,
				PrevOrdinal:  prev.Ordinal,
			})
			continue
		}
		res.New = append(res.New, cur)
	}

	for i := range previous {
		if !consumed[previous[i].StableID] {
			res.Removed = append(res.Removed, previous[i])
		}
	}
	return res
}
