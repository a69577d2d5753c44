package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"csatguardian/classifier"
	"csatguardian/logger"
	"csatguardian/models"
)

type engineHarness struct {
	cases      *fakeCaseStore
	sentiments *fakeSentimentStore
	alerts     *fakeAlertStore
	states     *fakeStateStore
	sender     *fakeSender
	monitor    *MonitorService
	now        time.Time
}

// scriptClassifier maps entry content to a fixed result so tests control the
// score sequence exactly.
func scriptClassifier(script map[string]classifier.Result) *fakeClassifier {
	return &fakeClassifier{classify: func(text string) (classifier.Result, error) {
		r, ok := script[text]
		if !ok {
			return classifier.Result{}, fmt.Errorf("no scripted result for %q", text)
		}
		return r, nil
	}}
}

func newEngineHarness(cls classifier.Classifier) *engineHarness {
	log := logger.New()
	h := &engineHarness{
		cases:      newFakeCaseStore(),
		sentiments: newFakeSentimentStore(),
		alerts:     newFakeAlertStore(),
		states:     newFakeStateStore(),
		sender:     &fakeSender{},
		now:        time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
	cfg := testMonitorConfig()
	timeline := NewTimelineService(h.cases, h.sentiments, cls, 5*time.Second, log)
	h.monitor = NewMonitorService(
		h.cases,
		h.alerts,
		h.states,
		timeline,
		NewTrendService(cfg),
		NewComplianceService(cfg),
		NewDecisionService(cfg, log),
		h.sender,
		log,
	)
	h.monitor.SetClock(func() time.Time { return h.now })
	return h
}

func (h *engineHarness) addCase(caseID, ownerID int64, status models.CaseStatus, lastActivity time.Time) {
	h.cases.cases[caseID] = &models.Case{
		CaseID:     caseID,
		CaseNumber: fmt.Sprintf("CS-%04d", caseID),
		Title:      "production outage",
		Status:     status,
		Priority:   models.PriorityHigh,
		OwnerID:    ownerID,
		CustomerID: 1,
		CreatedOn:  lastActivity.Add(-72 * time.Hour),
		ModifiedOn: lastActivity,
	}
	h.cases.engineers[ownerID] = &models.Engineer{
		EngineerID: ownerID,
		FullName:   "On-call Engineer",
		Email:      "oncall@example.com",
		IsActive:   true,
	}
}

func (h *engineHarness) addEmail(caseID int64, content string, inbound bool, at time.Time) {
	direction := models.DirectionOutbound
	if inbound {
		direction = models.DirectionInbound
	}
	h.cases.addEntry(models.TimelineEntry{
		CaseID:                  caseID,
		EntryType:               models.EntryTypeEmail,
		Content:                 content,
		Direction:               sql.NullString{String: string(direction), Valid: true},
		IsCustomerCommunication: true,
		CreatedBy:               1,
		CreatedOn:               at,
	})
}

func TestEvaluateCase_ProgressiveDecline(t *testing.T) {
	script := map[string]classifier.Result{
		"thanks for the update":           {Label: models.LabelNeutral, Score: 0.1},
		"still broken after the patch":    {Label: models.LabelNegative, Score: -0.3},
		"this is getting worse every day": {Label: models.LabelNegative, Score: -0.55},
		"unacceptable, escalate this now": {Label: models.LabelFrustratedEscalated, Score: -0.9},
	}
	h := newEngineHarness(scriptClassifier(script))
	h.addCase(2, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	base := h.now.Add(-48 * time.Hour)

	// Neutral start: nothing fires.
	h.addEmail(2, "thanks for the update", true, base)
	res, err := h.monitor.EvaluateCase(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsEmitted) != 0 {
		t.Fatalf("neutral timeline must not alert, got %+v", res.AlertsEmitted)
	}

	// First dip: hysteresis holds the signal back.
	h.addEmail(2, "still broken after the patch", true, base.Add(6*time.Hour))
	res, err = h.monitor.EvaluateCase(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsEmitted) != 0 {
		t.Fatalf("single dip must not alert, got %+v", res.AlertsEmitted)
	}
	if !res.Trajectory.PendingDecline {
		t.Fatal("first dip should persist a pending decline")
	}

	// Second consecutive decline: sentiment_decline fires and reaches the owner.
	h.addEmail(2, "this is getting worse every day", true, base.Add(12*time.Hour))
	res, err = h.monitor.EvaluateCase(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsEmitted) != 1 || res.AlertsEmitted[0].AlertType != models.AlertSentimentDecline {
		t.Fatalf("expected a single sentiment_decline, got %+v", res.AlertsEmitted)
	}
	if res.AlertsEmitted[0].RecipientID != 7 {
		t.Fatalf("alert must route to the case owner, got recipient %d", res.AlertsEmitted[0].RecipientID)
	}
	if len(h.sender.sent) != 1 || h.sender.sent[0].recipient != 7 {
		t.Fatalf("expected one delivery to engineer 7, got %+v", h.sender.sent)
	}

	// Frustrated inbound message: escalation fast path, sentiment_decline stays
	// deduplicated behind the already-open alert.
	h.addEmail(2, "unacceptable, escalate this now", true, base.Add(18*time.Hour))
	res, err = h.monitor.EvaluateCase(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsEmitted) != 1 || res.AlertsEmitted[0].AlertType != models.AlertEscalationDetected {
		t.Fatalf("expected a single escalation_detected, got %+v", res.AlertsEmitted)
	}
	if got := len(h.alerts.open(2, models.AlertSentimentDecline)); got != 1 {
		t.Fatalf("expected exactly one open sentiment_decline, got %d", got)
	}
}

func TestEvaluateCase_Idempotent(t *testing.T) {
	script := map[string]classifier.Result{
		"nothing works anymore": {Label: models.LabelNegative, Score: -0.8},
	}
	h := newEngineHarness(scriptClassifier(script))
	h.addCase(3, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	h.addEmail(3, "nothing works anymore", true, h.now.Add(-2*time.Hour))

	first, err := h.monitor.EvaluateCase(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.AlertsEmitted) != 1 {
		t.Fatalf("expected one alert on the first pass, got %d", len(first.AlertsEmitted))
	}

	second, err := h.monitor.EvaluateCase(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.AlertsEmitted) != 0 || len(second.AlertsResolved) != 0 {
		t.Fatalf("re-evaluating unchanged inputs must be a no-op, got %d emitted %d resolved",
			len(second.AlertsEmitted), len(second.AlertsResolved))
	}
}

func TestEvaluateCase_ReevaluationDoesNotAdvanceHysteresis(t *testing.T) {
	script := map[string]classifier.Result{
		"all good":      {Label: models.LabelPositive, Score: 0.4},
		"fine thanks":   {Label: models.LabelPositive, Score: 0.4},
		"works well":    {Label: models.LabelPositive, Score: 0.4},
		"hm, not great": {Label: models.LabelNeutral, Score: -0.1},
		"getting worse": {Label: models.LabelNegative, Score: -0.4},
	}
	h := newEngineHarness(scriptClassifier(script))
	h.addCase(12, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	base := h.now.Add(-24 * time.Hour)
	h.addEmail(12, "all good", true, base)
	h.addEmail(12, "fine thanks", true, base.Add(time.Hour))
	h.addEmail(12, "works well", true, base.Add(2*time.Hour))
	h.addEmail(12, "hm, not great", true, base.Add(3*time.Hour))

	// The latest entry is a decline-sized dip: held back by hysteresis.
	first, err := h.monitor.EvaluateCase(context.Background(), 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.AlertsEmitted) != 0 {
		t.Fatalf("single dip must not alert, got %+v", first.AlertsEmitted)
	}
	if !first.Trajectory.PendingDecline {
		t.Fatal("dip should persist a pending decline")
	}

	// Identical inputs: the persisted carry bit must not turn the same dip
	// into a second consecutive decline.
	second, err := h.monitor.EvaluateCase(context.Background(), 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.AlertsEmitted) != 0 {
		t.Fatalf("re-evaluation on unchanged inputs emitted %+v", second.AlertsEmitted)
	}
	if second.Trajectory.Risk != models.RiskStable {
		t.Fatalf("unchanged inputs must replay stable, got %s", second.Trajectory.Risk)
	}

	// New scored data is what arms the second consecutive decline.
	h.addEmail(12, "getting worse", true, base.Add(4*time.Hour))
	third, err := h.monitor.EvaluateCase(context.Background(), 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(third.AlertsEmitted) != 1 || third.AlertsEmitted[0].AlertType != models.AlertSentimentDecline {
		t.Fatalf("sustained decline with new data should emit sentiment_decline, got %+v", third.AlertsEmitted)
	}
}

func TestEvaluateCase_BreachSkipsApproaching(t *testing.T) {
	h := newEngineHarness(scriptClassifier(nil))
	h.addCase(6, 7, models.CaseStatusActive, h.now.Add(-9*24*time.Hour))

	res, err := h.monitor.EvaluateCase(context.Background(), 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsEmitted) != 1 || res.AlertsEmitted[0].AlertType != models.AlertSLABreach {
		t.Fatalf("nine days idle should produce exactly one sla_breach, got %+v", res.AlertsEmitted)
	}
	if got := len(h.alerts.open(6, models.AlertSLAApproaching)); got != 0 {
		t.Fatalf("breached case must not open an sla_approaching alert, got %d", got)
	}
}

func TestEvaluateCase_ApproachingAutoResolves(t *testing.T) {
	h := newEngineHarness(scriptClassifier(nil))
	h.addCase(8, 7, models.CaseStatusActive, h.now.Add(-5*24*time.Hour))

	res, err := h.monitor.EvaluateCase(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsEmitted) != 1 || res.AlertsEmitted[0].AlertType != models.AlertSLAApproaching {
		t.Fatalf("expected sla_approaching, got %+v", res.AlertsEmitted)
	}

	// Engineer touches the case; the warning clears itself.
	h.cases.cases[8].ModifiedOn = h.now.Add(-time.Hour)
	res, err = h.monitor.EvaluateCase(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AlertsResolved) != 1 {
		t.Fatalf("resumed activity should auto-resolve the warning, got %d resolved", len(res.AlertsResolved))
	}
	if reason := res.AlertsResolved[0].ResolutionReason.String; reason != resolveBackOnTrack {
		t.Fatalf("expected reason %q, got %q", resolveBackOnTrack, reason)
	}
	if got := len(h.alerts.open(8, models.AlertSLAApproaching)); got != 0 {
		t.Fatalf("warning should be closed in the store, %d still open", got)
	}
}

func TestEvaluateCase_ClassifierFailureIsNonFatal(t *testing.T) {
	cls := &fakeClassifier{classify: func(string) (classifier.Result, error) {
		return classifier.Result{}, &classifier.ClassificationError{Err: fmt.Errorf("model timeout")}
	}}
	h := newEngineHarness(cls)
	h.addCase(4, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	h.addEmail(4, "please help", true, h.now.Add(-2*time.Hour))

	res, err := h.monitor.EvaluateCase(context.Background(), 4)
	if err != nil {
		t.Fatalf("classifier failure must not fail the evaluation: %v", err)
	}
	if res.UnscoredEntries != 1 {
		t.Fatalf("expected 1 unscored entry, got %d", res.UnscoredEntries)
	}
	if len(res.AlertsEmitted) != 0 {
		t.Fatalf("unscored-only timeline must not alert, got %+v", res.AlertsEmitted)
	}
	if !res.Trajectory.InsufficientData {
		t.Fatal("no scored entries should report insufficient data")
	}
}

func TestEvaluateCase_DataIntegrityErrors(t *testing.T) {
	h := newEngineHarness(scriptClassifier(nil))

	// Unknown case.
	_, err := h.monitor.EvaluateCase(context.Background(), 999)
	var integrity *DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("missing case should fail with DataIntegrityError, got %v", err)
	}

	// Case whose owner no longer exists.
	h.addCase(5, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	delete(h.cases.engineers, 7)
	_, err = h.monitor.EvaluateCase(context.Background(), 5)
	if !errors.As(err, &integrity) {
		t.Fatalf("dangling owner should fail with DataIntegrityError, got %v", err)
	}
	if integrity.CaseID != 5 {
		t.Fatalf("error should carry the case id, got %d", integrity.CaseID)
	}
}

func TestEvaluateCase_StoreRaceReconciled(t *testing.T) {
	script := map[string]classifier.Result{
		"everything is on fire": {Label: models.LabelNegative, Score: -0.8},
	}
	h := newEngineHarness(scriptClassifier(script))
	h.addCase(9, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	h.addEmail(9, "everything is on fire", true, h.now.Add(-2*time.Hour))

	// Another evaluator commits the same alert between this pass's read of the
	// alert history and its write. The unique index turns the write into a
	// duplicate, and the pass reconciles instead of failing.
	raced := false
	h.alerts.listHook = func() {
		if raced {
			return
		}
		raced = true
		h.alerts.listHook = nil
		if err := h.alerts.CreateAlert(&models.Alert{
			CaseID:      9,
			AlertType:   models.AlertSentimentDecline,
			Message:     "committed by the other evaluator",
			RecipientID: 7,
		}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := h.monitor.EvaluateCase(context.Background(), 9)
	if err != nil {
		t.Fatalf("duplicate rejection must reconcile, not fail: %v", err)
	}
	if len(res.AlertsEmitted) != 0 {
		t.Fatalf("raced alert must not be reported as emitted, got %+v", res.AlertsEmitted)
	}
	if got := len(h.alerts.open(9, models.AlertSentimentDecline)); got != 1 {
		t.Fatalf("expected exactly one open sentiment_decline after the race, got %d", got)
	}
}

func TestEvaluateCase_ConcurrentCallsKeepDedup(t *testing.T) {
	script := map[string]classifier.Result{
		"worst support experience ever": {Label: models.LabelNegative, Score: -0.85},
	}
	h := newEngineHarness(scriptClassifier(script))
	h.addCase(11, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	h.addEmail(11, "worst support experience ever", true, h.now.Add(-2*time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.monitor.EvaluateCase(context.Background(), 11); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := len(h.alerts.open(11, models.AlertSentimentDecline)); got != 1 {
		t.Fatalf("concurrent evaluations must leave one open alert, got %d", got)
	}
}

func TestEvaluateActiveCases_SweepSurvivesBadCase(t *testing.T) {
	h := newEngineHarness(scriptClassifier(nil))
	h.addCase(20, 7, models.CaseStatusActive, h.now.Add(-time.Hour))
	h.addCase(21, 8, models.CaseStatusActive, h.now.Add(-time.Hour))
	h.addCase(22, 9, models.CaseStatusClosed, h.now.Add(-30*24*time.Hour))
	delete(h.cases.engineers, 8) // case 21 has a dangling owner

	results, err := h.monitor.EvaluateActiveCases(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("sweep should evaluate the one healthy active case, got %d results", len(results))
	}
	if results[0].CaseID != 20 {
		t.Fatalf("expected case 20, got %d", results[0].CaseID)
	}
}
