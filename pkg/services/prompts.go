package services

import (
	"fmt"
	"strings"
)

// Content and list caps keep prompts inside model context limits. The
// caps are part of the contract: analysis prompts never carry more than
// maxPromptContent characters of document text, and report prompts
// sample at most maxReportDocs documents and maxReportPoints points.
const (
	maxPromptContent  = 10000
	maxEmbeddingInput = 8000
	maxReportDocs     = 20
	maxReportPoints   = 50
	maxDocSummaryLen  = 200
)

const analysisSystemMessage = "You are an expert knowledge analyst specializing in identifying outdated or expiring information in documents."

const reportSystemMessage = "You are a senior knowledge management consultant creating executive reports on knowledge expiry risks."

// DocumentMeta carries the file identity the analysis prompt embeds.
type DocumentMeta struct {
	Filename   string
	FileType   string
	ModifiedAt string
}

// BuildAnalysisPrompt renders the structured-analysis prompt for one
// document. Content beyond the cap is truncated, never summarized.
func BuildAnalysisPrompt(content string, meta DocumentMeta) string {
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	filename := meta.Filename
	if filename == "" {
		filename = "Unknown"
	}
	fileType := meta.FileType
	if fileType == "" {
		fileType = "Unknown"
	}
	modifiedAt := meta.ModifiedAt
	if modifiedAt == "" {
		modifiedAt = "Unknown"
	}

	return fmt.Sprintf(`Analyze the following document for knowledge expiry patterns and outdated information.

Document Information:
- Filename: %s
- File Type: %s
- Last Modified: %s

Document Content:
%s

Please provide a structured analysis in the following format:

**DOCUMENT_SUMMARY:**
[Provide a concise summary of the document's main topics and purpose]

**CRITICAL_POINTS:**
[List specific knowledge points that may expire, each with:
- Point: [Description]
- Category: [Technical, Process, Policy, etc.]
- Urgency: [High/Medium/Low]
- Last_Updated: [When this info was likely last relevant]]

**EXPIRY_INDICATORS:**
[List specific indicators that suggest knowledge may be outdated:
- Date references
- Technology versions
- Deprecated practices
- Obsolete regulations]

**RECOMMENDATIONS:**
[Specific actions to address potential knowledge expiry]

**CONFIDENCE_SCORE:**
[Provide a confidence score from 0.0 to 1.0 for your analysis]`,
		filename, fileType, modifiedAt, content)
}

// ReportDocument is one analyzed document sampled into the report prompt.
type ReportDocument struct {
	Filename string
	Summary  string
}

// BuildReportPrompt renders the report-narrative prompt from analyzed
// documents and stored critical points. Both lists are capped and each
// document summary is clipped.
func BuildReportPrompt(docs []ReportDocument, points []*ReportPoint) string {
	totalDocs := len(docs)
	totalPoints := len(points)

	sampledDocs := docs
	if len(sampledDocs) > maxReportDocs {
		sampledDocs = sampledDocs[:maxReportDocs]
	}
	docLines := make([]string, 0, len(sampledDocs))
	for _, doc := range sampledDocs {
		filename := doc.Filename
		if filename == "" {
			filename = "Unknown"
		}
		summary := doc.Summary
		if summary == "" {
			summary = "No summary"
		}
		if len(summary) > maxDocSummaryLen {
			summary = summary[:maxDocSummaryLen]
		}
		docLines = append(docLines, fmt.Sprintf("- %s: %s", filename, summary))
	}

	sampledPoints := points
	if len(sampledPoints) > maxReportPoints {
		sampledPoints = sampledPoints[:maxReportPoints]
	}
	pointLines := make([]string, 0, len(sampledPoints))
	for _, p := range sampledPoints {
		pointLines = append(pointLines, fmt.Sprintf("- %s: Urgency %s", p.Description, p.Urgency))
	}

	return fmt.Sprintf(`Generate a comprehensive knowledge expiry report based on the analyzed documents and critical points.

ANALYZED DOCUMENTS (%d):
%s

CRITICAL KNOWLEDGE POINTS (%d):
%s

Please provide a structured report in the following format:

**EXECUTIVE_SUMMARY:**
[High-level overview of knowledge expiry risks and key findings]

**EXPIRED_KNOWLEDGE_COUNT:**
[Number of items identified as likely expired]

**CRITICAL_FINDINGS:**
[Top 10 most critical findings with:
- Finding: [Description]
- Impact: [Business impact]
- Recommendation: [Specific action]]

**RECOMMENDATIONS:**
[Strategic recommendations for knowledge management]

**ACTION_ITEMS:**
[Specific, actionable items with:
- Task: [Description]
- Priority: [High/Medium/Low]
- Owner: [Suggested role/department]
- Timeline: [Suggested timeframe]]`,
		totalDocs, strings.Join(docLines, "\n"),
		totalPoints, strings.Join(pointLines, "\n"))
}
