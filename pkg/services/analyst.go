package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/llm"
	"github.com/expirywatch/expiry-engine/pkg/retry"
)

// analysisTemperature keeps extraction deterministic enough to parse.
const analysisTemperature = 0.1

// Analyst turns documents into structured expiry analyses and session
// data into report narratives. Provider failures degrade to empty
// results with zero confidence; callers decide what a degraded analysis
// means for the document.
type Analyst interface {
	// Analyze extracts expiry findings from one document and embeds its
	// content. A nil embedding means the document cannot be indexed.
	Analyze(ctx context.Context, content string, meta DocumentMeta) (*AnalysisResult, []float32, error)

	// SummarizeReport generates the narrative sections of a report.
	SummarizeReport(ctx context.Context, docs []ReportDocument, points []*ReportPoint) *ReportNarrative
}

// ReportPoint is the minimal point view the report prompt consumes.
type ReportPoint struct {
	Description string
	Urgency     string
}

type analyst struct {
	client         llm.Client
	embeddingModel string
	logger         *zap.Logger
}

// NewAnalyst creates an analyst backed by the given provider client.
func NewAnalyst(client llm.Client, embeddingModel string, logger *zap.Logger) Analyst {
	return &analyst{
		client:         client,
		embeddingModel: embeddingModel,
		logger:         logger.Named("analyst"),
	}
}

var _ Analyst = (*analyst)(nil)

func (a *analyst) Analyze(ctx context.Context, content string, meta DocumentMeta) (*AnalysisResult, []float32, error) {
	prompt := BuildAnalysisPrompt(content, meta)

	response, err := retry.DoWithResult(ctx, retry.ProviderConfig(), func() (string, error) {
		return a.client.GenerateResponse(ctx, prompt, analysisSystemMessage, analysisTemperature)
	})

	var result *AnalysisResult
	if err != nil {
		a.logger.Error("document analysis failed",
			zap.String("filename", meta.Filename),
			zap.Error(err))
		result = &AnalysisResult{Summary: "Analysis failed", ConfidenceScore: 0.0}
	} else {
		result = ParseAnalysis(response)
	}

	embeddingInput := content
	if len(embeddingInput) > maxEmbeddingInput {
		embeddingInput = embeddingInput[:maxEmbeddingInput]
	}
	embedding, err := retry.DoWithResult(ctx, retry.ProviderConfig(), func() ([]float32, error) {
		return a.client.CreateEmbedding(ctx, embeddingInput, a.embeddingModel)
	})
	if err != nil {
		a.logger.Error("embedding generation failed",
			zap.String("filename", meta.Filename),
			zap.Error(err))
		embedding = nil
	}

	return result, embedding, nil
}

func (a *analyst) SummarizeReport(ctx context.Context, docs []ReportDocument, points []*ReportPoint) *ReportNarrative {
	prompt := BuildReportPrompt(docs, points)

	response, err := retry.DoWithResult(ctx, retry.ProviderConfig(), func() (string, error) {
		return a.client.GenerateResponse(ctx, prompt, reportSystemMessage, analysisTemperature)
	})
	if err != nil {
		a.logger.Error("report narrative generation failed", zap.Error(err))
		return &ReportNarrative{ExecutiveSummary: "Report generation failed"}
	}

	return ParseReport(response)
}
