package service

import (
	"context"
	"sort"
	"sync"

	"github.com/RubachokBoss/essay-grader/internal/models"
	"github.com/RubachokBoss/essay-grader/internal/repository"
	"github.com/RubachokBoss/essay-grader/internal/storage"
)

type memoryReports struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	err     error
}

func newMemoryReports() *memoryReports {
	return &memoryReports{reports: map[string]*models.Report{}}
}

func (m *memoryReports) Create(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memoryReports) GetByID(_ context.Context, id string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryReports) List(_ context.Context, limit, offset int) ([]models.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *memoryReports) update(id string, fn func(r *models.Report)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(r)
	return nil
}

func (m *memoryReports) MarkProcessing(_ context.Context, id string) error {
	return m.update(id, func(r *models.Report) { r.Status = models.ReportStatusProcessing.String() })
}

func (m *memoryReports) Complete(_ context.Context, id string, total, maxScore float64, result []byte, archiveKey string) error {
	return m.update(id, func(r *models.Report) {
		r.Status = models.ReportStatusCompleted.String()
		r.TotalScore = &total
		r.MaxScore = &maxScore
		r.Result = result
		r.ArchiveKey = archiveKey
	})
}

func (m *memoryReports) Fail(_ context.Context, id, message string) error {
	return m.update(id, func(r *models.Report) {
		r.Status = models.ReportStatusFailed.String()
		r.ErrorMessage = message
	})
}

func (m *memoryReports) Ping(context.Context) error { return nil }

func (m *memoryReports) get(id string) *models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id]
}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{objects: map[string][]byte{}}
}

func (a *memoryArchive) SaveEssay(_ context.Context, id, essay string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := "essays/" + id + ".txt"
	a.objects[key] = []byte(essay)
	return key, nil
}

func (a *memoryArchive) SaveResult(_ context.Context, id string, result []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := "results/" + id + ".json"
	a.objects[key] = result
	return key, nil
}

func (a *memoryArchive) LoadResult(_ context.Context, id string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects["results/"+id+".json"]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	requested []models.GradingRequestedEvent
	completed []models.GradingCompletedEvent
	err       error
}

func (p *recordingPublisher) PublishGradingRequested(_ context.Context, e models.GradingRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.requested = append(p.requested, e)
	return nil
}

func (p *recordingPublisher) PublishGradingCompleted(_ context.Context, e models.GradingCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.completed = append(p.completed, e)
	return nil
}
