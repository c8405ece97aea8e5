package docstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/pmahlen/docdex/pkg/types"
)

// MemoryStore is an in-memory Store. Used in tests and for ephemeral runs
// where nothing needs to survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[int64]*types.Document
	hashes map[int64][32]byte
	chunks map[int64][]types.Chunk
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[int64]*types.Document),
		hashes: make(map[int64][32]byte),
		chunks: make(map[int64][]types.Chunk),
	}
}

func (m *MemoryStore) UpsertDocument(_ context.Context, doc *types.Document) (int64, error) {
	if doc.ID <= 0 {
		return 0, types.ErrInvalidDocumentID
	}
	hash := sha256.Sum256([]byte(doc.Content))

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	existing, ok := m.docs[doc.ID]
	if !ok {
		stored := *doc
		stored.Version = 1
		stored.Deleted = false
		stored.IndexStatus = types.StatusPending
		stored.CreatedAt = now
		stored.UpdatedAt = now
		m.docs[doc.ID] = &stored
		m.hashes[doc.ID] = hash
		doc.Version = 1
		return 1, nil
	}

	existing.Title = doc.Title
	existing.Hidden = doc.Hidden
	existing.Deleted = false
	existing.UpdatedAt = now
	if m.hashes[doc.ID] != hash {
		existing.Content = doc.Content
		existing.Version++
		m.hashes[doc.ID] = hash
	}
	doc.Version = existing.Version
	return existing.Version, nil
}

func (m *MemoryStore) GetDocument(_ context.Context, documentID int64) (*types.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MemoryStore) SoftDeleteDocument(_ context.Context, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.Deleted = true
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ReplaceChunks(_ context.Context, documentID, version int64, chunks []types.Chunk) error {
	for i := range chunks {
		if chunks[i].DocumentID != documentID {
			return fmt.Errorf("chunk %d belongs to document %d, not %d",
				i, chunks[i].DocumentID, documentID)
		}
		if err := chunks[i].Validate(); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.chunks[documentID]; len(existing) > 0 && existing[0].Version > version {
		return fmt.Errorf("%w: snapshot at version %d, write targets %d",
			ErrVersionMismatch, existing[0].Version, version)
	}

	snapshot := make([]types.Chunk, len(chunks))
	copy(snapshot, chunks)
	for i := range snapshot {
		snapshot[i].Version = version
	}
	m.chunks[documentID] = snapshot
	return nil
}

func (m *MemoryStore) LatestChunks(_ context.Context, documentID int64) ([]types.Chunk, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.chunks[documentID]
	if len(stored) == 0 {
		return nil, 0, nil
	}
	chunks := make([]types.Chunk, len(stored))
	copy(chunks, stored)
	return chunks, stored[0].Version, nil
}

func (m *MemoryStore) DeleteChunks(_ context.Context, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, documentID)
	return nil
}

func (m *MemoryStore) SetIndexStatus(_ context.Context, documentID int64, status types.IndexStatus, indexError string) error {
	if !status.Valid() {
		return types.ErrInvalidIndexStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	doc.IndexStatus = status
	doc.UpdatedAt = now
	switch status {
	case types.StatusCompleted:
		doc.IndexError = ""
		doc.LastIndexedAt = now
	case types.StatusFailed:
		doc.IndexError = indexError
	default:
		doc.IndexError = ""
	}
	return nil
}

func (m *MemoryStore) GetIndexStatus(_ context.Context, documentID int64) (*DocumentStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &DocumentStatus{
		DocumentID:    documentID,
		Version:       doc.Version,
		Status:        doc.IndexStatus,
		Error:         doc.IndexError,
		LastIndexedAt: doc.LastIndexedAt,
	}, nil
}

func (m *MemoryStore) Counts(_ context.Context) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var documents int64
	for _, doc := range m.docs {
		if !doc.Deleted {
			documents++
		}
	}
	var chunks int64
	for _, snapshot := range m.chunks {
		chunks += int64(len(snapshot))
	}
	return documents, chunks, nil
}

func (m *MemoryStore) Close() error { return nil }
