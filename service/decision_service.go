package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"csatguardian/config"
	"csatguardian/logger"
	"csatguardian/models"
)

// Auto-resolution reasons written when the engine clears its own alerts
const (
	resolveConditionCleared = "condition cleared"
	resolveBackOnTrack      = "compliance back on track"
	resolveCaseInactive     = "case no longer active"
	resolveSuperseded       = "superseded by sla_breach"
)

// Resolution pairs an open alert with the reason the engine is clearing it
type Resolution struct {
	Alert  models.Alert
	Reason string
}

// Decision is the outcome of one decision pass: alerts to create and open
// alerts to auto-resolve. The engine never deletes alerts.
type Decision struct {
	Emit    []models.Alert
	Resolve []Resolution
}

// DecisionService combines the trajectory, the compliance report and the
// current alert history into emit/suppress/auto-resolve decisions. Each alert
// type is decided independently; a case may carry several open alerts of
// different types, never two of the same type. Decide is pure: re-running it
// on unchanged inputs yields an empty decision.
type DecisionService struct {
	cfg config.MonitorConfig
	log *logrus.Entry
}

// NewDecisionService creates a new decision service
func NewDecisionService(cfg config.MonitorConfig, log *logger.Logger) *DecisionService {
	return &DecisionService{cfg: cfg, log: log.WithComponent("decision")}
}

// Decide evaluates the decision rules for one case.
// latest is the most recent scored customer-facing entry (nil when none);
// prev is the persisted monitoring state (nil on first evaluation); active is
// the case's current unacknowledged alerts.
func (s *DecisionService) Decide(
	c *models.Case,
	traj models.Trajectory,
	comp models.ComplianceReport,
	active []models.Alert,
	latest *ScoredEntry,
	prev *models.CaseMonitoringState,
	now time.Time,
) Decision {
	open := make(map[models.AlertType]models.Alert, len(active))
	for _, a := range active {
		open[a.AlertType] = a
	}

	prevCompliance := models.ComplianceOnTrack
	if prev != nil {
		prevCompliance = prev.LastComplianceState
	}

	var d Decision

	// sentiment_decline: open while risk is declining/critical, cleared when
	// the trajectory recovers.
	declineOpen, hasDecline := open[models.AlertSentimentDecline]
	switch traj.Risk {
	case models.RiskDeclining, models.RiskCritical:
		if !hasDecline {
			d.Emit = append(d.Emit, s.newAlert(c, models.AlertSentimentDecline, now, fmt.Sprintf(
				"Sentiment is %s on case %s: latest score %.2f, delta %.2f across the last %d customer messages.",
				traj.Risk, c.CaseNumber, traj.CurrentScore, traj.Delta, traj.ScoredEntries)))
		}
	case models.RiskStable, models.RiskImproving:
		if hasDecline {
			d.Resolve = append(d.Resolve, Resolution{Alert: declineOpen, Reason: resolveConditionCleared})
		}
	}

	// sla_approaching: emitted on the transition into approaching, cleared
	// when the case recovers or leaves active status.
	approachingOpen, hasApproaching := open[models.AlertSLAApproaching]
	if comp.State == models.ComplianceApproaching {
		if !hasApproaching && prevCompliance != models.ComplianceApproaching {
			d.Emit = append(d.Emit, s.newAlert(c, models.AlertSLAApproaching, now, fmt.Sprintf(
				"Case %s has had no activity for %d days; the SLA window is %d days.",
				c.CaseNumber, comp.DaysSinceLastActivity, s.cfg.SLAWindowDays)))
		}
	} else if hasApproaching {
		reason := resolveBackOnTrack
		if c.Status != models.CaseStatusActive {
			reason = resolveCaseInactive
		} else if comp.State == models.ComplianceBreached {
			// Breach makes the warning meaningless; resolved below alongside
			// the breach emission.
			reason = resolveSuperseded
		}
		d.Resolve = append(d.Resolve, Resolution{Alert: approachingOpen, Reason: reason})
	}

	// sla_breach: emitted on the transition into breached.
	_, hasBreach := open[models.AlertSLABreach]
	if comp.State == models.ComplianceBreached && !hasBreach && prevCompliance != models.ComplianceBreached {
		d.Emit = append(d.Emit, s.newAlert(c, models.AlertSLABreach, now, fmt.Sprintf(
			"Case %s breached the %d-day SLA: %d days since last activity.",
			c.CaseNumber, s.cfg.SLAWindowDays, comp.DaysSinceLastActivity)))
	}

	// escalation_detected: fast path for an inbound frustrated/escalated
	// message, no trend window required. Deduplicated like every other type.
	if _, hasEscalation := open[models.AlertEscalationDetected]; !hasEscalation &&
		latest != nil && latest.Result != nil &&
		latest.Result.Label == models.LabelFrustratedEscalated &&
		latest.Entry.IsInbound() {
		d.Emit = append(d.Emit, s.newAlert(c, models.AlertEscalationDetected, now, fmt.Sprintf(
			"Customer escalation detected on case %s: inbound %s scored %.2f.",
			c.CaseNumber, latest.Entry.EntryType, latest.Result.Score)))
	}

	if len(d.Emit) > 0 || len(d.Resolve) > 0 {
		s.log.WithFields(logrus.Fields{
			"case_id": c.CaseID,
			"emit":    len(d.Emit),
			"resolve": len(d.Resolve),
			"risk":    traj.Risk,
			"sla":     comp.State,
		}).Info("decision pass produced actions")
	}

	return d
}

func (s *DecisionService) newAlert(c *models.Case, alertType models.AlertType, now time.Time, message string) models.Alert {
	return models.Alert{
		CaseID:      c.CaseID,
		AlertType:   alertType,
		Message:     message,
		RecipientID: c.OwnerID,
		SentAt:      now,
	}
}
