package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"csatguardian/logger"
	"csatguardian/models"
	"csatguardian/notification"
)

// caseLocks serializes evaluations of the same case while leaving different
// cases free to evaluate in parallel.
type caseLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *caseLocks) forCase(caseID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[caseID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[caseID] = m
	}
	return m
}

// MonitorService is the evaluation entry point: one call runs the aggregator,
// trend engine, compliance evaluator and decision engine for a case as a
// single logical transaction, with the alert store writes as the commit
// point. Re-running on unchanged inputs emits nothing.
type MonitorService struct {
	cases      CaseStore
	alerts     AlertStore
	states     StateStore
	timeline   *TimelineService
	trend      *TrendService
	compliance *ComplianceService
	decision   *DecisionService
	sender     notification.Sender
	locks      caseLocks
	log        *logrus.Entry
	now        func() time.Time
}

// NewMonitorService creates a new monitor service
func NewMonitorService(
	cases CaseStore,
	alerts AlertStore,
	states StateStore,
	timeline *TimelineService,
	trend *TrendService,
	compliance *ComplianceService,
	decision *DecisionService,
	sender notification.Sender,
	log *logger.Logger,
) *MonitorService {
	return &MonitorService{
		cases:      cases,
		alerts:     alerts,
		states:     states,
		timeline:   timeline,
		trend:      trend,
		compliance: compliance,
		decision:   decision,
		sender:     sender,
		log:        log.WithComponent("monitor"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the evaluation clock. Test hook.
func (s *MonitorService) SetClock(now func() time.Time) {
	s.now = now
}

// EvaluateCase runs one monitoring pass for a case and returns what it did.
// Concurrent calls for the same case are serialized; a missing case or a
// dangling owner reference fails with *DataIntegrityError.
func (s *MonitorService) EvaluateCase(ctx context.Context, caseID int64) (*models.EvaluationResult, error) {
	lock := s.locks.forCase(caseID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	c, err := s.cases.GetCaseByID(caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &DataIntegrityError{CaseID: caseID, Err: fmt.Errorf("case not found")}
		}
		return nil, err
	}

	owner, err := s.cases.GetEngineerByID(c.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &DataIntegrityError{CaseID: caseID, Err: fmt.Errorf("owner %d not found", c.OwnerID)}
		}
		return nil, err
	}

	entries, unscored, err := s.timeline.BuildTimeline(ctx, c)
	if err != nil {
		return nil, err
	}

	prev, err := s.states.GetState(caseID)
	if err != nil {
		return nil, err
	}

	traj := s.trend.ComputeTrajectory(entries, prev)
	comp := s.compliance.Evaluate(c, now)

	active, err := s.alerts.ListActiveAlerts(caseID)
	if err != nil {
		return nil, err
	}

	latest := latestScored(entries)
	decision := s.decision.Decide(c, traj, comp, active, latest, prev, now)

	result := &models.EvaluationResult{
		CaseID:          caseID,
		Trajectory:      traj,
		Compliance:      comp,
		UnscoredEntries: unscored,
		EvaluatedAt:     now,
	}

	for _, res := range decision.Resolve {
		if err := s.alerts.AcknowledgeAlert(res.Alert.AlertID, res.Reason); err != nil {
			return nil, fmt.Errorf("failed to auto-resolve alert %d: %w", res.Alert.AlertID, err)
		}
		resolved := res.Alert
		resolved.Acknowledged = true
		resolved.ResolutionReason = sql.NullString{String: res.Reason, Valid: true}
		result.AlertsResolved = append(result.AlertsResolved, resolved)
		s.log.WithFields(logrus.Fields{
			"case_id":    caseID,
			"alert_type": res.Alert.AlertType,
			"reason":     res.Reason,
		}).Info("alert auto-resolved")
	}

	for i := range decision.Emit {
		alert := decision.Emit[i]
		if err := s.alerts.CreateAlert(&alert); err != nil {
			if errors.Is(err, models.ErrDuplicateAlert) {
				// Another pass won the race. Reconcile by trusting the store:
				// the alert exists, so there is nothing left to do for this type.
				s.log.WithFields(logrus.Fields{
					"case_id":    caseID,
					"alert_type": alert.AlertType,
				}).Warn("duplicate alert rejected by store; reconciled")
				continue
			}
			return nil, fmt.Errorf("failed to create alert: %w", err)
		}
		result.AlertsEmitted = append(result.AlertsEmitted, alert)
		s.log.WithFields(logrus.Fields{
			"case_id":    caseID,
			"alert_type": alert.AlertType,
			"recipient":  alert.RecipientID,
		}).Info("alert emitted")

		// Delivery is best effort; the store write above is the commit point.
		if s.sender != nil {
			if err := s.sender.Send(ctx, &alert, c, owner); err != nil {
				s.log.WithError(err).WithField("alert_ref", alert.AlertRef).Warn("alert delivery failed")
			}
		}
	}

	state := &models.CaseMonitoringState{
		CaseID:              caseID,
		LastRisk:            traj.Risk,
		LastComplianceState: comp.State,
		PendingDecline:      traj.PendingDecline,
		LastScoredCount:     traj.ScoredEntries,
		EvaluatedAt:         now,
	}
	if latest != nil {
		state.LastScoredEntryID = latest.Entry.EntryID
	}
	if err := s.states.UpsertState(state); err != nil {
		return nil, err
	}

	return result, nil
}

// EvaluateActiveCases sweeps every active case once. A failure on one case is
// logged and does not stop the sweep.
func (s *MonitorService) EvaluateActiveCases(ctx context.Context) ([]models.EvaluationResult, error) {
	ids, err := s.cases.ListActiveCaseIDs()
	if err != nil {
		return nil, err
	}

	var results []models.EvaluationResult
	for _, id := range ids {
		res, err := s.EvaluateCase(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("case_id", id).Error("case evaluation failed")
			continue
		}
		results = append(results, *res)
	}

	return results, nil
}

// latestScored returns the most recent entry that has a sentiment result
func latestScored(entries []ScoredEntry) *ScoredEntry {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Result != nil {
			return &entries[i]
		}
	}
	return nil
}
