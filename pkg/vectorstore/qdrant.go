// Package vectorstore persists document analyses as vector points in Qdrant.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
)

// scrollCap bounds how many points a full-collection read returns.
const scrollCap = 1000

// Config holds Qdrant connection configuration.
type Config struct {
	Host       string
	Port       int
	Collection string
	VectorSize uint64
}

// DocumentPoint is one document analysis headed into the store.
// AnalysisJSON and MetadataJSON are serialized by the caller so the
// payload round-trips without a schema registered in Qdrant.
type DocumentPoint struct {
	ID             string // UUID
	Vector         []float32
	FilePath       string
	Filename       string
	FileType       string
	ContentSummary string
	AnalysisJSON   string
	MetadataJSON   string
	IndexedAt      time.Time
}

// DocumentRecord is a stored point read back out, with the search score
// populated on similarity queries.
type DocumentRecord struct {
	ID             string
	FilePath       string
	Filename       string
	FileType       string
	ContentSummary string
	AnalysisJSON   string
	MetadataJSON   string
	IndexedAt      time.Time
	Score          float32
}

// CollectionStats summarizes the collection for the status surface.
type CollectionStats struct {
	Collection  string
	PointsCount uint64
	VectorSize  uint64
}

// Store defines the interface for vector store operations.
// Use this interface for dependency injection to enable mocking in tests.
type Store interface {
	// Upsert writes or replaces one document point.
	Upsert(ctx context.Context, point *DocumentPoint) error

	// Get retrieves one point by UUID.
	Get(ctx context.Context, id string) (*DocumentRecord, error)

	// All retrieves stored points up to the scroll cap.
	All(ctx context.Context) ([]*DocumentRecord, error)

	// Search returns the most similar points to the query vector.
	Search(ctx context.Context, vector []float32, limit uint64) ([]*DocumentRecord, error)

	// Delete removes one point by UUID.
	Delete(ctx context.Context, id string) error

	// Stats reports collection size information.
	Stats(ctx context.Context) (*CollectionStats, error)
}

// QdrantStore implements Store against a Qdrant instance.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
	logger     *zap.Logger
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore connects to Qdrant and ensures the collection exists.
func NewQdrantStore(ctx context.Context, cfg *Config, logger *zap.Logger) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		logger:     logger.Named("vectorstore"),
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}

	s.logger.Info("created collection",
		zap.String("collection", s.collection),
		zap.Uint64("vector_size", s.vectorSize))
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, point *DocumentPoint) error {
	if len(point.Vector) == 0 {
		return apperrors.ErrNoEmbedding
	}

	indexedAt := point.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	payload := map[string]any{
		"file_path":       point.FilePath,
		"filename":        point.Filename,
		"file_type":       point.FileType,
		"content_summary": point.ContentSummary,
		"analysis_result": point.AnalysisJSON,
		"metadata":        point.MetadataJSON,
		"indexed_at":      indexedAt.Format(time.RFC3339),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(point.ID),
				Vectors: qdrant.NewVectors(point.Vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point %s: %w", point.ID, err)
	}

	s.logger.Debug("upserted document point",
		zap.String("id", point.ID),
		zap.String("file_path", point.FilePath))
	return nil
}

func (s *QdrantStore) Get(ctx context.Context, id string) (*DocumentRecord, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get point %s: %w", id, err)
	}
	if len(points) == 0 {
		return nil, apperrors.ErrNotFound
	}

	return recordFromPayload(points[0].Id, points[0].Payload, 0), nil
}

func (s *QdrantStore) All(ctx context.Context) ([]*DocumentRecord, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(scrollCap)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}

	records := make([]*DocumentRecord, 0, len(points))
	for _, p := range points {
		records = append(records, recordFromPayload(p.Id, p.Payload, 0))
	}
	return records, nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit uint64) ([]*DocumentRecord, error) {
	if limit == 0 {
		limit = 10
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	records := make([]*DocumentRecord, 0, len(points))
	for _, p := range points {
		records = append(records, recordFromPayload(p.Id, p.Payload, p.Score))
	}
	return records, nil
}

func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point %s: %w", id, err)
	}
	return nil
}

func (s *QdrantStore) Stats(ctx context.Context) (*CollectionStats, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	stats := &CollectionStats{
		Collection: s.collection,
		VectorSize: s.vectorSize,
	}
	if info.PointsCount != nil {
		stats.PointsCount = *info.PointsCount
	}
	return stats, nil
}

func recordFromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value, score float32) *DocumentRecord {
	rec := &DocumentRecord{
		ID:    id.GetUuid(),
		Score: score,
	}
	if v, ok := payload["file_path"]; ok {
		rec.FilePath = v.GetStringValue()
	}
	if v, ok := payload["filename"]; ok {
		rec.Filename = v.GetStringValue()
	}
	if v, ok := payload["file_type"]; ok {
		rec.FileType = v.GetStringValue()
	}
	if v, ok := payload["content_summary"]; ok {
		rec.ContentSummary = v.GetStringValue()
	}
	if v, ok := payload["analysis_result"]; ok {
		rec.AnalysisJSON = v.GetStringValue()
	}
	if v, ok := payload["metadata"]; ok {
		rec.MetadataJSON = v.GetStringValue()
	}
	if v, ok := payload["indexed_at"]; ok {
		if ts, err := time.Parse(time.RFC3339, v.GetStringValue()); err == nil {
			rec.IndexedAt = ts
		}
	}
	return rec
}
