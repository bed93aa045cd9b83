package services

import (
	"context"
	"sync"
	"time"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/repositories"
)

// mockDocumentRepo implements repositories.DocumentRepository in memory.
type mockDocumentRepo struct {
	mu        sync.Mutex
	docs      []*models.Document
	nextID    int64
	createErr error
	updateErr error
}

func (m *mockDocumentRepo) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	doc.ID = m.nextID
	doc.CreatedAt = time.Now()
	m.docs = append(m.docs, doc)
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDocumentRepo) GetByPath(_ context.Context, path string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.docs) - 1; i >= 0; i-- {
		if m.docs[i].FilePath == path {
			return m.docs[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDocumentRepo) UpdateAnalysis(_ context.Context, id int64, qdrantID string, confidence *float64, summary string, status models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, d := range m.docs {
		if d.ID == id {
			now := time.Now()
			d.QdrantID = qdrantID
			d.AnalysisConfidence = confidence
			d.ContentSummary = summary
			d.Status = status
			d.ProcessedAt = &now
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockDocumentRepo) UpdateStatus(_ context.Context, id int64, status models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			d.Status = status
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockDocumentRepo) List(_ context.Context) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Document(nil), m.docs...), nil
}

func (m *mockDocumentRepo) CountByStatus(_ context.Context) (map[models.DocumentStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.DocumentStatus]int)
	for _, d := range m.docs {
		counts[d.Status]++
	}
	return counts, nil
}

// mockPointRepo implements repositories.CriticalPointRepository in memory.
type mockPointRepo struct {
	mu        sync.Mutex
	points    []*models.CriticalPoint
	docNames  map[int64]string
	docPaths  map[int64]string
	nextID    int64
	createErr error
	listErr   error
}

func (m *mockPointRepo) CreateBulk(_ context.Context, points []*models.CriticalPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range points {
		m.nextID++
		p.ID = m.nextID
		p.CreatedAt = time.Now()
		m.points = append(m.points, p)
	}
	return nil
}

func (m *mockPointRepo) GetByID(_ context.Context, id int64) (*models.CriticalPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.points {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockPointRepo) ListByDocument(_ context.Context, documentID int64) ([]*models.CriticalPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CriticalPoint
	for _, p := range m.points {
		if p.DocumentID == documentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPointRepo) ListWithDocuments(_ context.Context, filter repositories.CriticalPointFilter) ([]*models.CriticalPointWithDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.CriticalPointWithDocument
	for _, p := range m.points {
		if filter.MinUrgency != nil && p.Urgency.Rank() < filter.MinUrgency.Rank() {
			continue
		}
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		out = append(out, &models.CriticalPointWithDocument{
			CriticalPoint:    *p,
			DocumentFilename: m.docNames[p.DocumentID],
			DocumentPath:     m.docPaths[p.DocumentID],
		})
	}
	return out, nil
}

func (m *mockPointRepo) CountByUrgency(_ context.Context) (map[models.UrgencyLevel]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.UrgencyLevel]int)
	for _, p := range m.points {
		counts[p.Urgency]++
	}
	return counts, nil
}

// mockRecRepo implements repositories.RecommendationRepository in memory.
type mockRecRepo struct {
	mu        sync.Mutex
	recs      []*models.Recommendation
	nextID    int64
	createErr error
}

func (m *mockRecRepo) Create(_ context.Context, rec *models.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *mockRecRepo) ListPending(_ context.Context) ([]*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Recommendation
	for _, r := range m.recs {
		if !r.IsImplemented {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecRepo) ListByCriticalPoint(_ context.Context, criticalPointID int64) ([]*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Recommendation
	for _, r := range m.recs {
		if r.CriticalPointID == criticalPointID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecRepo) MarkImplemented(_ context.Context, id int64, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.ID == id {
			now := time.Now()
			r.IsImplemented = true
			r.ImplementedDate = &now
			r.ImplementationNotes = notes
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockRecRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs), nil
}

// mockSessionRepo implements repositories.SessionRepository in memory.
type mockSessionRepo struct {
	mu       sync.Mutex
	sessions []*models.AnalysisSession
	openErr  error
	closeErr error

	openCalls  int
	closeCalls int
}

func (m *mockSessionRepo) Open(_ context.Context, s *models.AnalysisSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	if m.openErr != nil {
		return m.openErr
	}
	s.ID = int64(len(m.sessions) + 1)
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *mockSessionRepo) Close(_ context.Context, s *models.AnalysisSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	if m.closeErr != nil {
		return m.closeErr
	}
	for _, existing := range m.sessions {
		if existing.SessionID == s.SessionID {
			*existing = *s
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockSessionRepo) GetBySessionID(_ context.Context, sessionID string) (*models.AnalysisSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.SessionID == sessionID {
			return s, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockSessionRepo) ListRecent(_ context.Context, limit int) ([]*models.AnalysisSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*models.AnalysisSession(nil), m.sessions...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockReportRepo implements repositories.ReportRepository in memory.
type mockReportRepo struct {
	mu      sync.Mutex
	reports []*models.ExpiryReport
	openErr error

	openCalls  int
	closeCalls int
}

func (m *mockReportRepo) Open(_ context.Context, rep *models.ExpiryReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	if m.openErr != nil {
		return m.openErr
	}
	rep.ID = int64(len(m.reports) + 1)
	m.reports = append(m.reports, rep)
	return nil
}

func (m *mockReportRepo) Close(_ context.Context, rep *models.ExpiryReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	for _, existing := range m.reports {
		if existing.ReportID == rep.ReportID {
			*existing = *rep
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockReportRepo) GetByReportID(_ context.Context, reportID string) (*models.ExpiryReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ReportID == reportID {
			return r, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockReportRepo) ListRecent(_ context.Context, limit int) ([]*models.ExpiryReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*models.ExpiryReport(nil), m.reports...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockExporter records export calls without writing files.
type mockExporter struct {
	mu     sync.Mutex
	err    error
	calls  int
	report *Report
	path   string
	format string
}

func (m *mockExporter) Export(report *Report, path string, format string, reportType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.report = report
	m.path = path
	m.format = format
	return m.err
}
