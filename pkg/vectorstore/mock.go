package vectorstore

import (
	"context"
	"sync"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
)

// MockStore is an in-memory Store for testing. Points are kept in a map;
// Search returns all stored records in insertion order since cosine
// similarity is not meaningful for test fixtures.
type MockStore struct {
	mu     sync.Mutex
	points map[string]*DocumentPoint
	order  []string

	// UpsertErr, when set, is returned by Upsert.
	UpsertErr error

	// Call tracking for verification
	UpsertCalls int
	DeleteCalls int
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{points: make(map[string]*DocumentPoint)}
}

func (m *MockStore) Upsert(ctx context.Context, point *DocumentPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpsertCalls++
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if len(point.Vector) == 0 {
		return apperrors.ErrNoEmbedding
	}
	if _, exists := m.points[point.ID]; !exists {
		m.order = append(m.order, point.ID)
	}
	m.points[point.ID] = point
	return nil
}

func (m *MockStore) Get(ctx context.Context, id string) (*DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.points[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return toRecord(p, 0), nil
}

func (m *MockStore) All(ctx context.Context) ([]*DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]*DocumentRecord, 0, len(m.order))
	for _, id := range m.order {
		if len(records) >= scrollCap {
			break
		}
		records = append(records, toRecord(m.points[id], 0))
	}
	return records, nil
}

func (m *MockStore) Search(ctx context.Context, vector []float32, limit uint64) ([]*DocumentRecord, error) {
	records, _ := m.All(ctx)
	if limit > 0 && uint64(len(records)) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	if _, ok := m.points[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.points, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockStore) Stats(ctx context.Context) (*CollectionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &CollectionStats{
		Collection:  "mock",
		PointsCount: uint64(len(m.points)),
	}, nil
}

func toRecord(p *DocumentPoint, score float32) *DocumentRecord {
	return &DocumentRecord{
		ID:             p.ID,
		FilePath:       p.FilePath,
		Filename:       p.Filename,
		FileType:       p.FileType,
		ContentSummary: p.ContentSummary,
		AnalysisJSON:   p.AnalysisJSON,
		MetadataJSON:   p.MetadataJSON,
		IndexedAt:      p.IndexedAt,
		Score:          score,
	}
}
