package models

import (
	"database/sql"
	"time"
)

// SentimentLabel is the closed label set the core operates on. Whatever raw
// labels the classifier vendor returns are normalized into this set at the
// adapter boundary.
type SentimentLabel string

const (
	LabelPositive            SentimentLabel = "positive"
	LabelNeutral             SentimentLabel = "neutral"
	LabelNegative            SentimentLabel = "negative"
	LabelFrustratedEscalated SentimentLabel = "frustrated_escalated"
)

// SentimentResult is one classification outcome. Score is on [-1, 1]:
// -1 = maximally negative, +1 = maximally positive.
type SentimentResult struct {
	ResultID        int64          `db:"result_id" json:"result_id"`
	CaseID          int64          `db:"case_id" json:"case_id"`
	TimelineEntryID sql.NullInt64  `db:"timeline_entry_id" json:"timeline_entry_id"` // NULL = case-level aggregate
	Label           SentimentLabel `db:"label" json:"label"`
	Score           float64        `db:"score" json:"score"`
	ModelVersion    string         `db:"model_version" json:"model_version"`
	AnalyzedAt      time.Time      `db:"analyzed_at" json:"analyzed_at"`
}

// RiskSignal summarizes the direction of a case's sentiment trajectory
type RiskSignal string

const (
	RiskStable    RiskSignal = "stable"
	RiskImproving RiskSignal = "improving"
	RiskDeclining RiskSignal = "declining"
	RiskCritical  RiskSignal = "critical"
)

// Trajectory is the trend engine output for one evaluation pass
type Trajectory struct {
	Risk             RiskSignal     `json:"risk"`
	CurrentScore     float64        `json:"current_score"`
	CurrentLabel     SentimentLabel `json:"current_label"`
	WindowAverage    float64        `json:"window_average"` // mean of the short window (last k scored entries)
	Delta            float64        `json:"delta"`          // current score minus mean of the prior window
	ScoredEntries    int            `json:"scored_entries"`
	InsufficientData bool           `json:"insufficient_data"` // no scored entries; risk degraded to stable
	PendingDecline   bool           `json:"pending_decline"`   // this pass saw a decline-sized dip (hysteresis carry)
}

// ComplianceState is the SLA-deadline status of a case
type ComplianceState string

const (
	ComplianceOnTrack     ComplianceState = "on_track"
	ComplianceApproaching ComplianceState = "approaching"
	ComplianceBreached    ComplianceState = "breached"
)

// ComplianceReport is the compliance evaluator output for one evaluation pass
type ComplianceReport struct {
	State                 ComplianceState `json:"state"`
	DaysSinceLastActivity int             `json:"days_since_last_activity"`
	Exempt                bool            `json:"exempt"` // non-active case; always on_track
}

// CaseMonitoringState is the small persisted per-case record carrying signal
// across evaluation passes, so hysteresis survives restarts and multiple
// monitoring workers see the same history.
type CaseMonitoringState struct {
	CaseID              int64           `db:"case_id" json:"case_id"`
	LastRisk            RiskSignal      `db:"last_risk" json:"last_risk"`
	LastComplianceState ComplianceState `db:"last_compliance_state" json:"last_compliance_state"`
	PendingDecline      bool            `db:"pending_decline" json:"pending_decline"`
	LastScoredEntryID   int64           `db:"last_scored_entry_id" json:"last_scored_entry_id"` // newest scored entry at the last pass
	LastScoredCount     int             `db:"last_scored_count" json:"last_scored_count"`
	EvaluatedAt         time.Time       `db:"evaluated_at" json:"evaluated_at"`
}
