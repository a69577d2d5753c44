package service

import (
	"csatguardian/config"
	"csatguardian/models"
)

// TrendService computes a sentiment trajectory and risk signal from the
// scored timeline. It is pure given its inputs: the only cross-evaluation
// signal (the hysteresis carry bit) arrives through the persisted monitoring
// state, so repeated evaluation on a growing timeline is deterministic.
type TrendService struct {
	cfg config.MonitorConfig
}

// NewTrendService creates a new trend service
func NewTrendService(cfg config.MonitorConfig) *TrendService {
	return &TrendService{cfg: cfg}
}

// ComputeTrajectory derives the trajectory summary for one evaluation pass.
// prev is the monitoring state from the previous pass, nil on first
// evaluation. Unscored entries are skipped; evaluation order is the timeline
// order (ties already resolved by insertion order upstream).
func (s *TrendService) ComputeTrajectory(entries []ScoredEntry, prev *models.CaseMonitoringState) models.Trajectory {
	var scores []float64
	var labels []models.SentimentLabel
	var lastEntryID int64
	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		scores = append(scores, e.Result.Score)
		labels = append(labels, e.Result.Label)
		lastEntryID = e.Entry.EntryID
	}

	n := len(scores)
	if n == 0 {
		return models.Trajectory{
			Risk:             models.RiskStable,
			InsufficientData: true,
		}
	}

	latest := scores[n-1]
	latestLabel := labels[n-1]
	traj := models.Trajectory{
		CurrentScore:  latest,
		CurrentLabel:  latestLabel,
		WindowAverage: mean(tail(scores, s.cfg.TrendWindow)),
		ScoredEntries: n,
	}

	if n >= 2 {
		prior := tail(scores[:n-1], s.cfg.TrendWindow)
		traj.Delta = latest - mean(prior)
	}

	// A pass that saw no new scored data replays the previous outcome.
	// Re-evaluating an unchanged timeline must not count the same dip as a
	// second consecutive decline.
	if prev != nil && prev.LastScoredEntryID == lastEntryID && prev.LastScoredCount == n {
		traj.Risk = prev.LastRisk
		traj.PendingDecline = prev.PendingDecline
		return traj
	}

	if n == 1 {
		// Single data point: risk from the absolute label/score only.
		switch {
		case latestLabel == models.LabelFrustratedEscalated || latest <= s.cfg.CritThreshold:
			traj.Risk = models.RiskCritical
		case latest <= s.cfg.NegThreshold:
			traj.Risk = models.RiskDeclining
		default:
			traj.Risk = models.RiskStable
		}
		return traj
	}

	dip := traj.Delta <= -s.cfg.DeclineDelta
	traj.PendingDecline = dip

	switch {
	case latestLabel == models.LabelFrustratedEscalated || latest <= s.cfg.CritThreshold:
		traj.Risk = models.RiskCritical
	case dip && prev != nil && prev.PendingDecline:
		// Hysteresis: a single dip does not trigger; two consecutive
		// evaluations with a decline-sized delta do.
		traj.Risk = models.RiskDeclining
	case traj.Delta >= s.cfg.DeclineDelta:
		traj.Risk = models.RiskImproving
	default:
		traj.Risk = models.RiskStable
	}

	return traj
}

// tail returns the last k elements (all if fewer)
func tail(s []float64, k int) []float64 {
	if k <= 0 || len(s) <= k {
		return s
	}
	return s[len(s)-k:]
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
