package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/docsource"
	"github.com/expirywatch/expiry-engine/pkg/llm"
	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/vectorstore"
)

const structuredAnalysisResponse = `**DOCUMENT_SUMMARY:**
Operations runbook with dated references.

**CRITICAL_POINTS:**
- Point: Mentions a retired load balancer
- Category: Technical
- Urgency: High
- Point: Approval flow references an old org chart
- Category: Organizational
- Urgency: Medium

**EXPIRY_INDICATORS:**
- Version 2.3 references

**RECOMMENDATIONS:**
- Refresh infrastructure references

**CONFIDENCE_SCORE:**
0.8
`

type analyzeFixture struct {
	svc      AnalyzeService
	client   *llm.MockClient
	store    *vectorstore.MockStore
	docs     *mockDocumentRepo
	points   *mockPointRepo
	recs     *mockRecRepo
	sessions *mockSessionRepo
}

func newAnalyzeFixture(t *testing.T, batchSize int) *analyzeFixture {
	t.Helper()
	logger := zap.NewNop()

	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return structuredAnalysisResponse, nil
	}
	client.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return []float32{0.1, 0.2, 0.3}, nil
	}

	f := &analyzeFixture{
		client:   client,
		store:    vectorstore.NewMockStore(),
		docs:     &mockDocumentRepo{},
		points:   &mockPointRepo{},
		recs:     &mockRecRepo{},
		sessions: &mockSessionRepo{},
	}
	f.svc = NewAnalyzeService(
		docsource.NewDiscoverer(50, logger),
		docsource.NewLoader(logger),
		NewAnalyst(client, "text-embedding-ada-002", logger),
		f.store,
		f.docs,
		f.points,
		f.recs,
		f.sessions,
		"gpt-4-turbo-preview",
		batchSize,
		logger,
	)
	return f
}

func writeDocs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("deploy with version 2.3 of the balancer"), 0o644))
	}
}

func TestAnalyzeService_Run_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "runbook.md", "notes.txt", "guide.md")
	f := newAnalyzeFixture(t, 10)

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilesProcessed)
	assert.Zero(t, result.FilesFailed)
	assert.Equal(t, 3, result.DocumentsStored)
	assert.Equal(t, 6, result.CriticalPoints)
	assert.Empty(t, result.Errors)

	// One vector point and one relational row per document.
	records, err := f.store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Len(t, f.docs.docs, 3)

	for _, doc := range f.docs.docs {
		assert.Equal(t, models.DocumentAnalyzed, doc.Status)
		assert.NotEmpty(t, doc.QdrantID)
		assert.Equal(t, "Operations runbook with dated references.", doc.ContentSummary)
		require.NotNil(t, doc.AnalysisConfidence)
		assert.InDelta(t, 0.8, *doc.AnalysisConfidence, 1e-9)
	}

	// Each document yields one high and one medium point carrying the
	// document-level indicators.
	require.Len(t, f.points.points, 6)
	for _, p := range f.points.points {
		assert.NotZero(t, p.DocumentID)
		assert.Equal(t, []string{"- Version 2.3 references"}, p.ExpiryIndicators)
		assert.Equal(t, "gpt-4-turbo-preview", p.ExtractedByModel)
	}

	// Only the high point per document gets an automatic recommendation.
	require.Len(t, f.recs.recs, 3)
	for _, rec := range f.recs.recs {
		assert.Equal(t, "Review technical information", rec.Title)
		assert.Equal(t, "Review and update: Mentions a retired load balancer", rec.Description)
		assert.Equal(t, models.UrgencyHigh, rec.Priority)
		assert.Equal(t, "Knowledge Manager", rec.SuggestedOwnerRole)
		assert.Equal(t, "30 days", rec.SuggestedTimeline)
	}

	require.Len(t, f.sessions.sessions, 1)
	session := f.sessions.sessions[0]
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 3, session.DocumentsAnalyzed)
	assert.Equal(t, 6, session.CriticalPointsFound)
	assert.Equal(t, 3, session.HighPriorityItems)
	assert.Equal(t, 3, session.MediumPriorityItems)
	assert.Zero(t, session.LowPriorityItems)
	assert.Equal(t, []string{"md", "txt"}, session.FileTypesAnalyzed)
	assert.NotNil(t, session.CompletedAt)
	assert.NotNil(t, session.DurationSeconds)
	assert.Equal(t, 1, f.sessions.closeCalls)
}

func TestAnalyzeService_Run_EmptyDirectory(t *testing.T) {
	f := newAnalyzeFixture(t, 10)

	result, err := f.svc.Run(context.Background(), t.TempDir(), true, nil)
	require.NoError(t, err)

	assert.Zero(t, result.FilesProcessed)
	assert.Zero(t, result.CriticalPoints)
	assert.Empty(t, result.Errors)

	// The session closes on the empty path too.
	require.Equal(t, 1, f.sessions.closeCalls)
	assert.Equal(t, models.SessionCompleted, f.sessions.sessions[0].Status)
	generate, _ := f.client.Calls()
	assert.Zero(t, generate)
}

func TestAnalyzeService_Run_NoEmbedding_FailsWithoutWrites(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "runbook.md")
	f := newAnalyzeFixture(t, 10)
	f.client.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return nil, nil
	}

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	assert.Zero(t, result.FilesProcessed)
	assert.Equal(t, 1, result.FilesFailed)
	assert.Empty(t, result.Errors)

	assert.Zero(t, f.store.UpsertCalls)
	assert.Empty(t, f.docs.docs)
	assert.Empty(t, f.points.points)
}

func TestAnalyzeService_Run_EmptyContentCountsFailed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))
	f := newAnalyzeFixture(t, 10)

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesFailed)
	assert.Empty(t, result.Errors)
	generate, _ := f.client.Calls()
	assert.Zero(t, generate)
}

func TestAnalyzeService_Run_UnmappedUrgencyFailsDocument(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "runbook.md")
	f := newAnalyzeFixture(t, 10)
	f.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "**CRITICAL_POINTS:**\n- Point: Something stale\n- Urgency: Eventually\n", nil
	}

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesFailed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "runbook.md")
	assert.Contains(t, result.Errors[0], "Something stale")

	assert.Zero(t, f.store.UpsertCalls)
	assert.Empty(t, f.docs.docs)

	session := f.sessions.sessions[0]
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.Equal(t, 1, session.ErrorsEncountered)
}

func TestAnalyzeService_Run_BarePointsDefaultToTechnicalMedium(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "runbook.md")
	f := newAnalyzeFixture(t, 10)
	f.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "**CRITICAL_POINTS:**\n- Point: First\n- Point: Second\n", nil
	}

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.CriticalPoints)
	require.Len(t, f.points.points, 2)
	for _, p := range f.points.points {
		assert.Equal(t, models.CategoryTechnical, p.Category)
		assert.Equal(t, models.UrgencyMedium, p.Urgency)
	}
	// Medium urgency never triggers automatic recommendations.
	assert.Empty(t, f.recs.recs)
}

func TestAnalyzeService_Run_BatchInvariant(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "a.md", "b.md", "c.md", "d.md", "e.md")
	f := newAnalyzeFixture(t, 2)

	// Fail exactly one document with a non-retryable provider error so
	// the totals mix successes and failures.
	f.client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		if strings.Contains(prompt, "Filename: c.md") {
			return "", errors.New("invalid request payload")
		}
		return structuredAnalysisResponse, nil
	}

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	// The failed analysis degrades but the embedding still succeeds, so
	// the document lands with zero points rather than failing outright.
	assert.Equal(t, 5, result.FilesProcessed+result.FilesFailed)
	assert.Equal(t, 5, result.FilesProcessed)
	assert.Equal(t, 8, result.CriticalPoints)

	degraded, err := f.docs.GetByPath(context.Background(), filepath.Join(dir, "c.md"))
	require.NoError(t, err)
	assert.Equal(t, "Analysis failed", degraded.ContentSummary)
	require.NotNil(t, degraded.AnalysisConfidence)
	assert.Zero(t, *degraded.AnalysisConfidence)
}

func TestAnalyzeService_Run_StoreWriteFailure(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, "runbook.md")
	f := newAnalyzeFixture(t, 10)
	f.store.UpsertErr = errors.New("collection unavailable")

	result, err := f.svc.Run(context.Background(), dir, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesFailed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "vector store write")
	assert.Empty(t, f.docs.docs)
}

func TestAnalyzeService_Run_MissingDirectoryClosesSessionAsError(t *testing.T) {
	f := newAnalyzeFixture(t, 10)

	result, err := f.svc.Run(context.Background(), "/nonexistent/path", true, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.SessionID)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Workflow error")

	require.Equal(t, 1, f.sessions.closeCalls)
	assert.Equal(t, models.SessionError, f.sessions.sessions[0].Status)
}
