package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"csatguardian/classifier"
	"csatguardian/models"
)

// In-memory collaborators for engine tests. The alert store enforces the same
// one-open-alert-per-(case, type) rule the real schema does.

type fakeCaseStore struct {
	mu        sync.Mutex
	cases     map[int64]*models.Case
	timelines map[int64][]models.TimelineEntry
	engineers map[int64]*models.Engineer
}

func newFakeCaseStore() *fakeCaseStore {
	return &fakeCaseStore{
		cases:     make(map[int64]*models.Case),
		timelines: make(map[int64][]models.TimelineEntry),
		engineers: make(map[int64]*models.Engineer),
	}
}

func (f *fakeCaseStore) GetCaseByID(caseID int64) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[caseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCaseStore) GetTimelineEntries(caseID int64) ([]models.TimelineEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TimelineEntry(nil), f.timelines[caseID]...), nil
}

func (f *fakeCaseStore) ListActiveCaseIDs() ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, c := range f.cases {
		if c.Status == models.CaseStatusActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeCaseStore) GetEngineerByID(engineerID int64) (*models.Engineer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.engineers[engineerID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeCaseStore) addEntry(e models.TimelineEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.EntryID = int64(len(f.timelines[e.CaseID]) + 1)
	f.timelines[e.CaseID] = append(f.timelines[e.CaseID], e)
}

type fakeSentimentStore struct {
	mu      sync.Mutex
	results map[int64]models.SentimentResult // by timeline entry id
	nextID  int64
}

func newFakeSentimentStore() *fakeSentimentStore {
	return &fakeSentimentStore{results: make(map[int64]models.SentimentResult)}
}

func (f *fakeSentimentStore) GetEntryResults(caseID int64) (map[int64]models.SentimentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]models.SentimentResult)
	for id, r := range f.results {
		if r.CaseID == caseID {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeSentimentStore) CreateSentimentResult(result *models.SentimentResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	result.ResultID = f.nextID
	f.results[result.TimelineEntryID.Int64] = *result
	return nil
}

type fakeAlertStore struct {
	mu       sync.Mutex
	alerts   []models.Alert
	nextID   int64
	listHook func() // runs after ListActiveAlerts returns its snapshot
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{}
}

func (f *fakeAlertStore) ListActiveAlerts(caseID int64) ([]models.Alert, error) {
	f.mu.Lock()
	var out []models.Alert
	for _, a := range f.alerts {
		if a.CaseID == caseID && !a.Acknowledged {
			out = append(out, a)
		}
	}
	f.mu.Unlock()
	if f.listHook != nil {
		f.listHook()
	}
	return out, nil
}

func (f *fakeAlertStore) CreateAlert(alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.CaseID == alert.CaseID && a.AlertType == alert.AlertType && !a.Acknowledged {
			return models.ErrDuplicateAlert
		}
	}
	f.nextID++
	alert.AlertID = f.nextID
	if alert.AlertRef == "" {
		alert.AlertRef = "ref-" + time.Now().Format("150405.000000000")
	}
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeAlertStore) AcknowledgeAlert(alertID int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].AlertID == alertID && !f.alerts[i].Acknowledged {
			f.alerts[i].Acknowledged = true
			f.alerts[i].AcknowledgedAt = sql.NullTime{Time: time.Now(), Valid: true}
			f.alerts[i].ResolutionReason = sql.NullString{String: reason, Valid: true}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAlertStore) open(caseID int64, alertType models.AlertType) []models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Alert
	for _, a := range f.alerts {
		if a.CaseID == caseID && a.AlertType == alertType && !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[int64]models.CaseMonitoringState
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[int64]models.CaseMonitoringState)}
}

func (f *fakeStateStore) GetState(caseID int64) (*models.CaseMonitoringState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[caseID]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (f *fakeStateStore) UpsertState(state *models.CaseMonitoringState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.CaseID] = *state
	return nil
}

// fakeClassifier scores by keyword so tests control the label space
type fakeClassifier struct {
	classify func(text string) (classifier.Result, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (classifier.Result, error) {
	return f.classify(text)
}

func (f *fakeClassifier) ModelVersion() string { return "test/v1" }

type sentAlert struct {
	alert     models.Alert
	recipient int64
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentAlert
}

func (f *fakeSender) Send(ctx context.Context, alert *models.Alert, c *models.Case, recipient *models.Engineer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentAlert{alert: *alert, recipient: recipient.EngineerID})
	return nil
}
