package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/llm"
)

func TestAnalyst_Analyze_ParsesAndEmbeds(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		assert.Equal(t, analysisSystemMessage, system)
		assert.InDelta(t, analysisTemperature, temperature, 1e-9)
		return structuredAnalysisResponse, nil
	}
	var embeddedInput string
	client.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		embeddedInput = input
		assert.Equal(t, "text-embedding-ada-002", model)
		return []float32{0.5}, nil
	}

	a := NewAnalyst(client, "text-embedding-ada-002", zap.NewNop())
	result, embedding, err := a.Analyze(context.Background(), "content body", DocumentMeta{Filename: "doc.md"})
	require.NoError(t, err)

	assert.Equal(t, "Operations runbook with dated references.", result.Summary)
	assert.Len(t, result.CriticalPoints, 2)
	assert.Equal(t, []float32{0.5}, embedding)
	assert.Equal(t, "content body", embeddedInput)
}

func TestAnalyst_Analyze_TruncatesEmbeddingInput(t *testing.T) {
	client := llm.NewMockClient()
	client.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		assert.Len(t, input, maxEmbeddingInput)
		return []float32{0.1}, nil
	}

	a := NewAnalyst(client, "", zap.NewNop())
	long := make([]byte, maxEmbeddingInput+1000)
	for i := range long {
		long[i] = 'x'
	}
	_, _, err := a.Analyze(context.Background(), string(long), DocumentMeta{})
	require.NoError(t, err)
}

func TestAnalyst_Analyze_GenerationFailureDegrades(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", errors.New("model rejected the request")
	}
	client.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return []float32{0.2}, nil
	}

	a := NewAnalyst(client, "", zap.NewNop())
	result, embedding, err := a.Analyze(context.Background(), "content", DocumentMeta{})
	require.NoError(t, err)

	assert.Equal(t, "Analysis failed", result.Summary)
	assert.Zero(t, result.ConfidenceScore)
	assert.Empty(t, result.CriticalPoints)
	// Embeddings are independent of the chat completion.
	assert.Equal(t, []float32{0.2}, embedding)
}

func TestAnalyst_Analyze_EmbeddingFailureYieldsNilVector(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return structuredAnalysisResponse, nil
	}
	client.CreateEmbeddingFunc = func(ctx context.Context, input, model string) ([]float32, error) {
		return nil, errors.New("embedding model not found")
	}

	a := NewAnalyst(client, "", zap.NewNop())
	result, embedding, err := a.Analyze(context.Background(), "content", DocumentMeta{})
	require.NoError(t, err)

	assert.NotNil(t, result)
	assert.Nil(t, embedding)
}

func TestAnalyst_SummarizeReport(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		assert.Equal(t, reportSystemMessage, system)
		assert.Contains(t, prompt, "ANALYZED DOCUMENTS (1):")
		return "**EXECUTIVE_SUMMARY:**\nAll good.\n**EXPIRED_KNOWLEDGE_COUNT:**\n3", nil
	}

	a := NewAnalyst(client, "", zap.NewNop())
	narrative := a.SummarizeReport(context.Background(),
		[]ReportDocument{{Filename: "doc.md", Summary: "s"}},
		[]*ReportPoint{{Description: "d", Urgency: "high"}})

	assert.Equal(t, "All good.", narrative.ExecutiveSummary)
	assert.Equal(t, 3, narrative.ExpiredKnowledgeCount)
}

func TestAnalyst_SummarizeReport_FailureDegrades(t *testing.T) {
	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", errors.New("model rejected the request")
	}

	a := NewAnalyst(client, "", zap.NewNop())
	narrative := a.SummarizeReport(context.Background(), nil, nil)

	assert.Equal(t, "Report generation failed", narrative.ExecutiveSummary)
	assert.Zero(t, narrative.ExpiredKnowledgeCount)
}
