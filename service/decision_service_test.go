package service

import (
	"database/sql"
	"testing"
	"time"

	"csatguardian/logger"
	"csatguardian/models"
)

func decisionTestCase() *models.Case {
	return &models.Case{
		CaseID:     42,
		CaseNumber: "CS-0042",
		Status:     models.CaseStatusActive,
		OwnerID:    7,
	}
}

func openAlert(caseID int64, alertType models.AlertType) models.Alert {
	return models.Alert{AlertID: 1, CaseID: caseID, AlertType: alertType, RecipientID: 7}
}

func emittedTypes(d Decision) map[models.AlertType]bool {
	out := make(map[models.AlertType]bool)
	for _, a := range d.Emit {
		out[a.AlertType] = true
	}
	return out
}

func newDecisionService() *DecisionService {
	return NewDecisionService(testMonitorConfig(), logger.New())
}

func TestDecide_SentimentDeclineEmitAndDedup(t *testing.T) {
	decision := newDecisionService()
	c := decisionTestCase()
	now := time.Now().UTC()
	traj := models.Trajectory{Risk: models.RiskDeclining, CurrentScore: -0.5, ScoredEntries: 3}
	comp := models.ComplianceReport{State: models.ComplianceOnTrack}

	d := decision.Decide(c, traj, comp, nil, nil, nil, now)
	if !emittedTypes(d)[models.AlertSentimentDecline] {
		t.Fatal("declining risk with no open alert should emit sentiment_decline")
	}
	for _, a := range d.Emit {
		if a.RecipientID != c.OwnerID {
			t.Fatalf("alert must route to case owner %d, got %d", c.OwnerID, a.RecipientID)
		}
	}

	active := []models.Alert{openAlert(c.CaseID, models.AlertSentimentDecline)}
	d = decision.Decide(c, traj, comp, active, nil, nil, now)
	if len(d.Emit) != 0 {
		t.Fatalf("open sentiment_decline alert must suppress re-emission, got %d emits", len(d.Emit))
	}
}

func TestDecide_SentimentDeclineAutoResolve(t *testing.T) {
	decision := newDecisionService()
	c := decisionTestCase()
	now := time.Now().UTC()
	comp := models.ComplianceReport{State: models.ComplianceOnTrack}
	active := []models.Alert{openAlert(c.CaseID, models.AlertSentimentDecline)}

	d := decision.Decide(c, models.Trajectory{Risk: models.RiskImproving, ScoredEntries: 4}, comp, active, nil, nil, now)
	if len(d.Resolve) != 1 {
		t.Fatalf("recovered trajectory should auto-resolve the open alert, got %d resolutions", len(d.Resolve))
	}
	if d.Resolve[0].Reason != resolveConditionCleared {
		t.Fatalf("expected reason %q, got %q", resolveConditionCleared, d.Resolve[0].Reason)
	}
}

func TestDecide_SLAApproachingTransitions(t *testing.T) {
	decision := newDecisionService()
	c := decisionTestCase()
	now := time.Now().UTC()
	traj := models.Trajectory{Risk: models.RiskStable}
	comp := models.ComplianceReport{State: models.ComplianceApproaching, DaysSinceLastActivity: 5}

	// Transition on_track -> approaching emits.
	d := decision.Decide(c, traj, comp, nil, nil, nil, now)
	if !emittedTypes(d)[models.AlertSLAApproaching] {
		t.Fatal("transition into approaching should emit sla_approaching")
	}

	// Still approaching after the engineer acknowledged: no re-emit until the
	// case leaves and re-enters the warning window.
	prev := &models.CaseMonitoringState{LastComplianceState: models.ComplianceApproaching}
	d = decision.Decide(c, traj, comp, nil, nil, prev, now)
	if len(d.Emit) != 0 {
		t.Fatalf("acknowledged approaching state must not re-emit, got %d emits", len(d.Emit))
	}

	// Activity resumed: open alert is auto-resolved.
	active := []models.Alert{openAlert(c.CaseID, models.AlertSLAApproaching)}
	onTrack := models.ComplianceReport{State: models.ComplianceOnTrack}
	d = decision.Decide(c, traj, onTrack, active, nil, prev, now)
	if len(d.Resolve) != 1 || d.Resolve[0].Reason != resolveBackOnTrack {
		t.Fatalf("expected back-on-track resolution, got %+v", d.Resolve)
	}
}

func TestDecide_BreachSupersedesApproaching(t *testing.T) {
	decision := newDecisionService()
	c := decisionTestCase()
	now := time.Now().UTC()
	traj := models.Trajectory{Risk: models.RiskStable}
	comp := models.ComplianceReport{State: models.ComplianceBreached, DaysSinceLastActivity: 8}
	prev := &models.CaseMonitoringState{LastComplianceState: models.ComplianceApproaching}
	active := []models.Alert{openAlert(c.CaseID, models.AlertSLAApproaching)}

	d := decision.Decide(c, traj, comp, active, nil, prev, now)
	if !emittedTypes(d)[models.AlertSLABreach] {
		t.Fatal("transition into breached should emit sla_breach")
	}
	if emittedTypes(d)[models.AlertSLAApproaching] {
		t.Fatal("breached compliance must not emit sla_approaching")
	}
	if len(d.Resolve) != 1 || d.Resolve[0].Reason != resolveSuperseded {
		t.Fatalf("breach should supersede the open approaching alert, got %+v", d.Resolve)
	}
}

func TestDecide_EscalationFastPath(t *testing.T) {
	decision := newDecisionService()
	c := decisionTestCase()
	now := time.Now().UTC()
	comp := models.ComplianceReport{State: models.ComplianceOnTrack}

	inbound := &ScoredEntry{
		Entry: models.TimelineEntry{
			EntryType: models.EntryTypeEmail,
			Direction: sql.NullString{String: string(models.DirectionInbound), Valid: true},
		},
		Result: &models.SentimentResult{Label: models.LabelFrustratedEscalated, Score: -0.9},
	}

	// One entry total: critical risk via the single-entry rule, and the fast
	// path fires with no trend window.
	traj := models.Trajectory{Risk: models.RiskCritical, ScoredEntries: 1, CurrentScore: -0.9}
	d := decision.Decide(c, traj, comp, nil, inbound, nil, now)
	types := emittedTypes(d)
	if !types[models.AlertEscalationDetected] {
		t.Fatal("inbound frustrated entry should emit escalation_detected with a single entry")
	}
	if !types[models.AlertSentimentDecline] {
		t.Fatal("critical risk should also emit sentiment_decline")
	}

	// Outbound frustrated message (an engineer quoting the customer) must not
	// trip the fast path.
	outbound := &ScoredEntry{
		Entry: models.TimelineEntry{
			EntryType: models.EntryTypeEmail,
			Direction: sql.NullString{String: string(models.DirectionOutbound), Valid: true},
		},
		Result: &models.SentimentResult{Label: models.LabelFrustratedEscalated, Score: -0.9},
	}
	d = decision.Decide(c, models.Trajectory{Risk: models.RiskStable, ScoredEntries: 1}, comp, nil, outbound, nil, now)
	if emittedTypes(d)[models.AlertEscalationDetected] {
		t.Fatal("outbound entry must not emit escalation_detected")
	}
}

func TestDecide_UnchangedInputsEmitNothing(t *testing.T) {
	decision := newDecisionService()
	c := decisionTestCase()
	now := time.Now().UTC()
	traj := models.Trajectory{Risk: models.RiskDeclining, ScoredEntries: 3}
	comp := models.ComplianceReport{State: models.ComplianceApproaching, DaysSinceLastActivity: 5}
	prev := &models.CaseMonitoringState{
		LastRisk:            models.RiskDeclining,
		LastComplianceState: models.ComplianceApproaching,
	}
	active := []models.Alert{
		openAlert(c.CaseID, models.AlertSentimentDecline),
		openAlert(c.CaseID, models.AlertSLAApproaching),
	}

	d := decision.Decide(c, traj, comp, active, nil, prev, now)
	if len(d.Emit) != 0 || len(d.Resolve) != 0 {
		t.Fatalf("unchanged inputs must produce an empty decision, got %d emits %d resolves", len(d.Emit), len(d.Resolve))
	}
}
