package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/docsource"
	"github.com/expirywatch/expiry-engine/pkg/llm"
	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/repositories"
	"github.com/expirywatch/expiry-engine/pkg/vectorstore"
)

// AnalyzeService runs the document analysis workflow: discover files,
// analyze them in bounded-concurrency batches, and persist findings to
// both stores under one journaled session.
type AnalyzeService interface {
	// Run executes the workflow against one directory. The returned
	// result always carries the session ID and whatever counts were
	// reached, even when err is non-nil.
	Run(ctx context.Context, root string, recursive bool, extensions []string) (*AnalyzeResult, error)
}

// AnalyzeResult summarizes one workflow run.
type AnalyzeResult struct {
	SessionID       string   `json:"session_id"`
	FilesProcessed  int      `json:"files_processed"`
	FilesFailed     int      `json:"files_failed"`
	CriticalPoints  int      `json:"critical_points"`
	DocumentsStored int      `json:"documents_stored"`
	Errors          []string `json:"errors,omitempty"`
}

type analyzeService struct {
	discoverer  *docsource.Discoverer
	loader      *docsource.Loader
	analyst     Analyst
	store       vectorstore.Store
	docRepo     repositories.DocumentRepository
	pointRepo   repositories.CriticalPointRepository
	recRepo     repositories.RecommendationRepository
	sessionRepo repositories.SessionRepository
	pool        *llm.WorkerPool
	model       string
	batchSize   int
	logger      *zap.Logger
}

// NewAnalyzeService creates the analyze workflow service. Batch size
// bounds both batch composition and intra-batch concurrency.
func NewAnalyzeService(
	discoverer *docsource.Discoverer,
	loader *docsource.Loader,
	analyst Analyst,
	store vectorstore.Store,
	docRepo repositories.DocumentRepository,
	pointRepo repositories.CriticalPointRepository,
	recRepo repositories.RecommendationRepository,
	sessionRepo repositories.SessionRepository,
	model string,
	batchSize int,
	logger *zap.Logger,
) AnalyzeService {
	if batchSize < 1 {
		batchSize = 1
	}
	log := logger.Named("analyze")
	return &analyzeService{
		discoverer:  discoverer,
		loader:      loader,
		analyst:     analyst,
		store:       store,
		docRepo:     docRepo,
		pointRepo:   pointRepo,
		recRepo:     recRepo,
		sessionRepo: sessionRepo,
		pool:        llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: batchSize}, log),
		model:       model,
		batchSize:   batchSize,
		logger:      log,
	}
}

var _ AnalyzeService = (*analyzeService)(nil)

// documentOutcome is the per-document pipeline result. Skipped
// documents (empty content, no embedding) surface as the apperrors
// sentinels and count as failures without an error detail.
type documentOutcome struct {
	DocumentID      int64
	QdrantID        string
	CriticalPoints  int
	Recommendations int
	Confidence      float64
	UrgencyCounts   map[models.UrgencyLevel]int
}

func (s *analyzeService) Run(ctx context.Context, root string, recursive bool, extensions []string) (*AnalyzeResult, error) {
	startTime := time.Now()

	session := &models.AnalysisSession{
		SessionID:          uuid.NewString(),
		AnalysisModel:      s.model,
		Status:             models.SessionRunning,
		StartedAt:          startTime,
		DirectoriesScanned: []string{root},
	}
	if err := s.sessionRepo.Open(ctx, session); err != nil {
		return nil, fmt.Errorf("open analysis session: %w", err)
	}

	s.logger.Info("analysis session opened",
		zap.String("session_id", session.SessionID),
		zap.String("root", root))

	result := &AnalyzeResult{SessionID: session.SessionID}
	urgencyTotals := make(map[models.UrgencyLevel]int)

	files, err := s.discoverer.Discover(root, recursive, extensions)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Workflow error: %v", err))
		s.closeSession(ctx, session, result, urgencyTotals, nil, models.SessionError, startTime)
		return result, fmt.Errorf("discover documents: %w", err)
	}

	if len(files) == 0 {
		s.logger.Warn("no documents found to analyze", zap.String("root", root))
		s.closeSession(ctx, session, result, urgencyTotals, files, models.SessionCompleted, startTime)
		return result, nil
	}

	s.logger.Info("documents discovered", zap.Int("count", len(files)))

	totalBatches := (len(files) + s.batchSize - 1) / s.batchSize
	for i := 0; i < len(files); i += s.batchSize {
		end := i + s.batchSize
		if end > len(files) {
			end = len(files)
		}
		s.processBatch(ctx, files[i:end], session.SessionID, result, urgencyTotals)
		s.logger.Info("batch complete",
			zap.Int("batch", i/s.batchSize+1),
			zap.Int("total_batches", totalBatches))
	}

	s.closeSession(ctx, session, result, urgencyTotals, files, models.SessionCompleted, startTime)

	s.logger.Info("analyze workflow completed",
		zap.String("session_id", session.SessionID),
		zap.Int("files_processed", result.FilesProcessed),
		zap.Int("files_failed", result.FilesFailed),
		zap.Int("critical_points", result.CriticalPoints),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

// processBatch runs one batch with intra-batch concurrency and folds
// the outcomes into the running totals.
func (s *analyzeService) processBatch(
	ctx context.Context,
	batch []docsource.FileInfo,
	sessionID string,
	result *AnalyzeResult,
	urgencyTotals map[models.UrgencyLevel]int,
) {
	items := make([]llm.WorkItem[*documentOutcome], 0, len(batch))
	for _, file := range batch {
		file := file
		items = append(items, llm.WorkItem[*documentOutcome]{
			ID: file.Filename,
			Execute: func(ctx context.Context) (*documentOutcome, error) {
				return s.processDocument(ctx, file, sessionID)
			},
		})
	}

	progress := func(completed, total int) {
		s.logger.Debug("batch progress",
			zap.Int("completed", completed),
			zap.Int("total", total))
	}

	for _, r := range llm.Process(ctx, s.pool, items, progress) {
		switch {
		case errors.Is(r.Err, apperrors.ErrEmptyDocument), errors.Is(r.Err, apperrors.ErrNoEmbedding):
			// Skipped documents count as failures without an error
			// detail entry.
			result.FilesFailed++
		case r.Err != nil:
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("Document %s: %v", r.ID, r.Err))
		default:
			result.FilesProcessed++
			result.DocumentsStored++
			result.CriticalPoints += r.Result.CriticalPoints
			for urgency, n := range r.Result.UrgencyCounts {
				urgencyTotals[urgency] += n
			}
		}
	}
}

// processDocument runs the full per-document pipeline. Empty content
// and missing embeddings return the matching sentinel so the batch
// collector can skip the document quietly; everything after the vector
// write is best effort against partial dual writes.
func (s *analyzeService) processDocument(ctx context.Context, file docsource.FileInfo, sessionID string) (*documentOutcome, error) {
	s.logger.Debug("processing document", zap.String("filename", file.Filename))

	content, err := s.loader.Load(file)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	if content == "" {
		s.logger.Warn("no content loaded", zap.String("filename", file.Filename))
		return nil, apperrors.ErrEmptyDocument
	}

	modifiedAt := time.Unix(file.ModTime, 0).UTC()
	analysis, embedding, err := s.analyst.Analyze(ctx, content, DocumentMeta{
		Filename:   file.Filename,
		FileType:   file.FileType,
		ModifiedAt: modifiedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if len(embedding) == 0 {
		s.logger.Warn("no embedding generated", zap.String("filename", file.Filename))
		return nil, apperrors.ErrNoEmbedding
	}

	points, err := s.mapCriticalPoints(analysis)
	if err != nil {
		return nil, err
	}

	qdrantID := uuid.NewString()
	analysisJSON, err := json.Marshal(map[string]any{
		"critical_points":   analysis.CriticalPoints,
		"expiry_indicators": analysis.ExpiryIndicators,
		"recommendations":   analysis.Recommendations,
		"confidence_score":  analysis.ConfidenceScore,
	})
	if err != nil {
		return nil, fmt.Errorf("encode analysis payload: %w", err)
	}
	metadataJSON, err := json.Marshal(map[string]any{
		"file_size":  file.Size,
		"mime_type":  file.MimeType,
		"session_id": sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode metadata payload: %w", err)
	}

	if err := s.store.Upsert(ctx, &vectorstore.DocumentPoint{
		ID:             qdrantID,
		Vector:         embedding,
		FilePath:       file.Path,
		Filename:       file.Filename,
		FileType:       file.FileType,
		ContentSummary: analysis.Summary,
		AnalysisJSON:   string(analysisJSON),
		MetadataJSON:   string(metadataJSON),
		IndexedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("vector store write: %w", err)
	}

	doc := &models.Document{
		QdrantID:   qdrantID,
		FilePath:   file.Path,
		Filename:   file.Filename,
		FileType:   file.FileType,
		FileSize:   file.Size,
		MimeType:   file.MimeType,
		Status:     models.DocumentPending,
		ModifiedAt: &modifiedAt,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	confidence := analysis.ConfidenceScore
	if err := s.docRepo.UpdateAnalysis(ctx, doc.ID, qdrantID, &confidence, analysis.Summary, models.DocumentAnalyzed); err != nil {
		return nil, fmt.Errorf("update document analysis: %w", err)
	}

	urgencyCounts := make(map[models.UrgencyLevel]int)
	recommendations := 0
	if len(points) > 0 {
		for _, p := range points {
			p.DocumentID = doc.ID
			p.ExpiryIndicators = analysis.ExpiryIndicators
			p.ConfidenceScore = &confidence
			p.ExtractedByModel = s.model
		}
		if err := s.pointRepo.CreateBulk(ctx, points); err != nil {
			return nil, fmt.Errorf("create critical points: %w", err)
		}

		for _, p := range points {
			urgencyCounts[p.Urgency]++
			if !p.Urgency.RequiresAction() {
				continue
			}
			rec := &models.Recommendation{
				CriticalPointID:    p.ID,
				Title:              fmt.Sprintf("Review %s information", p.Category),
				Description:        fmt.Sprintf("Review and update: %s", p.Description),
				Priority:           p.Urgency,
				SuggestedOwnerRole: "Knowledge Manager",
				SuggestedTimeline:  "30 days",
				GeneratedByModel:   s.model,
			}
			if err := s.recRepo.Create(ctx, rec); err != nil {
				return nil, fmt.Errorf("create recommendation: %w", err)
			}
			recommendations++
		}
	}

	s.logger.Info("document processed",
		zap.String("filename", file.Filename),
		zap.Int("critical_points", len(points)),
		zap.Int("recommendations", recommendations))

	return &documentOutcome{
		DocumentID:      doc.ID,
		QdrantID:        qdrantID,
		CriticalPoints:  len(points),
		Recommendations: recommendations,
		Confidence:      analysis.ConfidenceScore,
		UrgencyCounts:   urgencyCounts,
	}, nil
}

// mapCriticalPoints converts parsed drafts onto the closed category and
// urgency vocabularies. An unmapped value fails the whole document.
func (s *analyzeService) mapCriticalPoints(analysis *AnalysisResult) ([]*models.CriticalPoint, error) {
	points := make([]*models.CriticalPoint, 0, len(analysis.CriticalPoints))
	for _, draft := range analysis.CriticalPoints {
		category, err := models.ParseKnowledgeCategory(draft.Category)
		if err != nil {
			return nil, fmt.Errorf("critical point %q: %w", draft.Description, err)
		}
		urgency, err := models.ParseUrgencyLevel(draft.Urgency)
		if err != nil {
			return nil, fmt.Errorf("critical point %q: %w", draft.Description, err)
		}
		points = append(points, &models.CriticalPoint{
			Description:     draft.Description,
			Category:        category,
			Urgency:         urgency,
			LastUpdatedDate: parseLastUpdated(draft.LastUpdated),
		})
	}
	return points, nil
}

// lastUpdatedLayouts are the date shapes models actually produce for
// the Last_Updated field. Anything else stays unset.
var lastUpdatedLayouts = []string{
	"2006-01-02",
	"2006-01",
	"January 2006",
	"Jan 2006",
	"2006",
}

func parseLastUpdated(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range lastUpdatedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// closeSession finalizes the session journal exactly once, on both the
// success and the error path.
func (s *analyzeService) closeSession(
	ctx context.Context,
	session *models.AnalysisSession,
	result *AnalyzeResult,
	urgencyTotals map[models.UrgencyLevel]int,
	files []docsource.FileInfo,
	status string,
	startTime time.Time,
) {
	completedAt := time.Now()
	duration := int(completedAt.Sub(startTime).Seconds())

	session.Status = status
	session.DocumentsAnalyzed = result.FilesProcessed
	session.CriticalPointsFound = result.CriticalPoints
	session.HighPriorityItems = urgencyTotals[models.UrgencyHigh] + urgencyTotals[models.UrgencyCritical]
	session.MediumPriorityItems = urgencyTotals[models.UrgencyMedium]
	session.LowPriorityItems = urgencyTotals[models.UrgencyLow]
	session.FileTypesAnalyzed = distinctFileTypes(files)
	session.ErrorsEncountered = len(result.Errors)
	session.ErrorDetails = result.Errors
	session.CompletedAt = &completedAt
	session.DurationSeconds = &duration

	if err := s.sessionRepo.Close(ctx, session); err != nil {
		s.logger.Error("failed to close analysis session",
			zap.String("session_id", session.SessionID),
			zap.Error(err))
	}
}

func distinctFileTypes(files []docsource.FileInfo) []string {
	seen := make(map[string]bool)
	for _, f := range files {
		seen[f.FileType] = true
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
