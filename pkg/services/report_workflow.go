package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/repositories"
	"github.com/expirywatch/expiry-engine/pkg/vectorstore"
)

// Exporter writes a report tree to a file in one of the supported
// formats. Implemented by the export package; mocked in tests.
type Exporter interface {
	Export(report *Report, path string, format string, reportType string) error
}

// ReportService generates knowledge expiry reports: gather stored data,
// obtain a model narrative, compute deterministic analytics, and export
// the assembled tree under one journaled report record.
type ReportService interface {
	// Generate runs the report workflow. The returned result always
	// carries the report ID and end status, even when err is non-nil.
	Generate(ctx context.Context, opts ReportOptions) (*ReportResult, error)
}

// ReportOptions selects output shape and data filters for one report.
type ReportOptions struct {
	OutputPath string
	Format     string // excel, json, csv
	ReportType string // executive, detailed, comprehensive
	MinUrgency *models.UrgencyLevel
}

// ReportResult summarizes one report generation run.
type ReportResult struct {
	ReportID          string   `json:"report_id"`
	OutputPath        string   `json:"output_path"`
	Status            string   `json:"status"`
	DocumentsAnalyzed int      `json:"documents_analyzed"`
	ExpiredKnowledge  int      `json:"expired_knowledge"`
	CriticalFindings  int      `json:"critical_findings"`
	Recommendations   int      `json:"recommendations"`
	Errors            []string `json:"errors,omitempty"`
}

type reportService struct {
	analyst    Analyst
	store      vectorstore.Store
	docRepo    repositories.DocumentRepository
	pointRepo  repositories.CriticalPointRepository
	recRepo    repositories.RecommendationRepository
	reportRepo repositories.ReportRepository
	exporter   Exporter
	model      string
	logger     *zap.Logger
}

// NewReportService creates the report workflow service.
func NewReportService(
	analyst Analyst,
	store vectorstore.Store,
	docRepo repositories.DocumentRepository,
	pointRepo repositories.CriticalPointRepository,
	recRepo repositories.RecommendationRepository,
	reportRepo repositories.ReportRepository,
	exporter Exporter,
	model string,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		analyst:    analyst,
		store:      store,
		docRepo:    docRepo,
		pointRepo:  pointRepo,
		recRepo:    recRepo,
		reportRepo: reportRepo,
		exporter:   exporter,
		model:      model,
		logger:     logger.Named("report"),
	}
}

var _ ReportService = (*reportService)(nil)

// gatheredData is everything the report needs from both stores.
type gatheredData struct {
	Records     []*vectorstore.DocumentRecord
	Points      []*models.CriticalPointWithDocument
	DocCounts   map[models.DocumentStatus]int
	PointCounts map[models.UrgencyLevel]int
	RecCount    int
	VectorStats *vectorstore.CollectionStats
	GeneratedAt time.Time
}

func (s *reportService) Generate(ctx context.Context, opts ReportOptions) (*ReportResult, error) {
	startTime := time.Now()

	record := &models.ExpiryReport{
		ReportID:         uuid.NewString(),
		Title:            fmt.Sprintf("Knowledge Expiry Report - %s", time.Now().Format("2006-01-02 15:04")),
		ReportType:       opts.ReportType,
		OutputFormat:     opts.Format,
		GeneratedByModel: s.model,
		Status:           models.ReportGenerating,
		GeneratedAt:      startTime.UTC(),
	}
	if err := s.reportRepo.Open(ctx, record); err != nil {
		return nil, fmt.Errorf("open report record: %w", err)
	}

	s.logger.Info("report generation started",
		zap.String("report_id", record.ReportID),
		zap.String("type", opts.ReportType),
		zap.String("format", opts.Format))

	result := &ReportResult{
		ReportID:   record.ReportID,
		OutputPath: opts.OutputPath,
		Status:     models.ReportGenerating,
	}

	data, err := s.gather(ctx, opts.MinUrgency)
	if err != nil {
		return s.fail(ctx, record, result, startTime, fmt.Errorf("gather report data: %w", err))
	}

	if len(data.Records) == 0 && len(data.Points) == 0 {
		s.logger.Warn("no data found for report generation")
		result.Status = models.ReportNoData
		record.Status = models.ReportNoData
		s.closeRecord(ctx, record, startTime)
		return result, nil
	}

	result.DocumentsAnalyzed = len(data.Records)

	docs := make([]ReportDocument, 0, len(data.Records))
	for _, rec := range data.Records {
		docs = append(docs, ReportDocument{Filename: rec.Filename, Summary: rec.ContentSummary})
	}
	promptPoints := make([]*ReportPoint, 0, len(data.Points))
	for _, p := range data.Points {
		promptPoints = append(promptPoints, &ReportPoint{
			Description: p.Description,
			Urgency:     string(p.Urgency),
		})
	}
	narrative := s.analyst.SummarizeReport(ctx, docs, promptPoints)

	report := s.assemble(data, narrative, opts.ReportType)

	result.ExpiredKnowledge = narrative.ExpiredKnowledgeCount
	result.CriticalFindings = len(narrative.CriticalFindings)
	result.Recommendations = len(narrative.Recommendations)

	if err := s.exporter.Export(report, opts.OutputPath, opts.Format, opts.ReportType); err != nil {
		return s.fail(ctx, record, result, startTime, fmt.Errorf("export report: %w", err))
	}

	record.Status = models.ReportCompleted
	record.OutputPath = opts.OutputPath
	record.DocumentsIncluded = len(data.Records)
	record.ExpiredKnowledgeCount = narrative.ExpiredKnowledgeCount
	record.CriticalFindingsCount = len(narrative.CriticalFindings)
	record.RecommendationsCount = len(narrative.Recommendations)
	s.closeRecord(ctx, record, startTime)

	result.Status = models.ReportCompleted
	s.logger.Info("report generated",
		zap.String("report_id", record.ReportID),
		zap.String("output", opts.OutputPath),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

func (s *reportService) gather(ctx context.Context, minUrgency *models.UrgencyLevel) (*gatheredData, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read vector records: %w", err)
	}

	points, err := s.pointRepo.ListWithDocuments(ctx, repositories.CriticalPointFilter{MinUrgency: minUrgency})
	if err != nil {
		return nil, fmt.Errorf("list critical points: %w", err)
	}

	docCounts, err := s.docRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pointCounts, err := s.pointRepo.CountByUrgency(ctx)
	if err != nil {
		return nil, fmt.Errorf("count critical points: %w", err)
	}

	recCount, err := s.recRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count recommendations: %w", err)
	}

	vectorStats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read vector store stats: %w", err)
	}

	return &gatheredData{
		Records:     records,
		Points:      points,
		DocCounts:   docCounts,
		PointCounts: pointCounts,
		RecCount:    recCount,
		VectorStats: vectorStats,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// assemble builds the full report tree from gathered data and the
// model narrative.
func (s *reportService) assemble(data *gatheredData, narrative *ReportNarrative, reportType string) *Report {
	breakdown := crossTabPoints(data.Points)
	highPriority := len(breakdown.ByUrgency[string(models.UrgencyHigh)]) +
		len(breakdown.ByUrgency[string(models.UrgencyCritical)])

	docStatuses := make(map[string]int, len(data.DocCounts))
	for status, n := range data.DocCounts {
		docStatuses[string(status)] = n
	}
	pointUrgencies := make(map[string]int, len(data.PointCounts))
	for urgency, n := range data.PointCounts {
		pointUrgencies[string(urgency)] = n
	}

	return &Report{
		Metadata: ReportMetadata{
			ReportType:          reportType,
			GeneratedAt:         data.GeneratedAt,
			TotalDocuments:      len(data.Records),
			TotalCriticalPoints: len(data.Points),
			AnalysisModel:       s.model,
		},
		ExecutiveSummary: ExecutiveSummary{
			Overview: narrative.ExecutiveSummary,
			KeyMetrics: KeyMetrics{
				DocumentsAnalyzed:        len(data.Records),
				CriticalPointsIdentified: len(data.Points),
				ExpiredKnowledgeItems:    narrative.ExpiredKnowledgeCount,
				HighPriorityItems:        highPriority,
				AverageConfidence:        averageStoredConfidence(data.Records),
			},
		},
		CriticalFindings: narrative.CriticalFindings,
		CriticalPoints:   breakdown,
		DocumentAnalysis: analyzeDocuments(data.Records, data.GeneratedAt),
		ExpiryAnalysis:   analyzeExpiryIndicators(data.Points),
		TimelineAnalysis: buildTimeline(data.Points, data.GeneratedAt),
		Recommendations: ReportRecommendations{
			Strategic:   narrative.Recommendations,
			ActionItems: narrative.ActionItems,
		},
		Appendix: Appendix{
			DatabaseStatistics: DatabaseStats{
				DocumentsByStatus:       docStatuses,
				CriticalPointsByUrgency: pointUrgencies,
				TotalRecommendations:    data.RecCount,
			},
			VectorDBStatistics: VectorStats{
				Collection:  data.VectorStats.Collection,
				PointsCount: data.VectorStats.PointsCount,
				VectorSize:  data.VectorStats.VectorSize,
			},
		},
	}
}

// fail closes the report record as errored and returns the structured
// failure alongside the error.
func (s *reportService) fail(ctx context.Context, record *models.ExpiryReport, result *ReportResult, startTime time.Time, err error) (*ReportResult, error) {
	s.logger.Error("report workflow failed",
		zap.String("report_id", record.ReportID),
		zap.Error(err))
	result.Status = models.ReportError
	result.Errors = append(result.Errors, fmt.Sprintf("Workflow error: %v", err))
	record.Status = models.ReportError
	s.closeRecord(ctx, record, startTime)
	return result, err
}

func (s *reportService) closeRecord(ctx context.Context, record *models.ExpiryReport, startTime time.Time) {
	duration := int(time.Since(startTime).Seconds())
	record.GenerationDurationSeconds = &duration
	if err := s.reportRepo.Close(ctx, record); err != nil {
		s.logger.Error("failed to close report record",
			zap.String("report_id", record.ReportID),
			zap.Error(err))
	}
}
