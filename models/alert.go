package models

import (
	"database/sql"
	"errors"
	"time"
)

// AlertType identifies the risk condition an alert flags. For a given
// (case_id, alert_type) pair at most one unacknowledged alert exists at a
// time; the alerts table enforces this with a unique index over the open flag.
type AlertType string

const (
	AlertSentimentDecline   AlertType = "sentiment_decline"
	AlertSLAApproaching     AlertType = "sla_approaching"
	AlertSLABreach          AlertType = "sla_breach"
	AlertEscalationDetected AlertType = "escalation_detected"
)

// ErrDuplicateAlert is returned by the alert store when a create would violate
// the one-open-alert-per-(case, type) invariant. Callers reconcile by
// re-reading active alerts; a second alert of the same type is never created.
var ErrDuplicateAlert = errors.New("an unacknowledged alert of this type already exists for the case")

// Alert represents a dispatched risk notification. Alerts are never deleted;
// acknowledgment (engineer or auto-resolution) is the only state transition
// after creation.
type Alert struct {
	AlertID          int64          `db:"alert_id" json:"alert_id"`
	AlertRef         string         `db:"alert_ref" json:"alert_ref"` // stable external reference (uuid)
	CaseID           int64          `db:"case_id" json:"case_id"`
	AlertType        AlertType      `db:"alert_type" json:"alert_type"`
	Message          string         `db:"message" json:"message"`
	RecipientID      int64          `db:"recipient_id" json:"recipient_id"` // case owner at emission time
	SentAt           time.Time      `db:"sent_at" json:"sent_at"`
	Acknowledged     bool           `db:"acknowledged" json:"acknowledged"`
	AcknowledgedAt   sql.NullTime   `db:"acknowledged_at" json:"acknowledged_at"`
	ResolutionReason sql.NullString `db:"resolution_reason" json:"resolution_reason"`
}

// EvaluationResult is the outcome of one EvaluateCase pass
type EvaluationResult struct {
	CaseID          int64            `json:"case_id"`
	Trajectory      Trajectory       `json:"trajectory"`
	Compliance      ComplianceReport `json:"compliance"`
	AlertsEmitted   []Alert          `json:"alerts_emitted"`
	AlertsResolved  []Alert          `json:"alerts_resolved"`
	UnscoredEntries int              `json:"unscored_entries"` // classification failures this pass; retried next cycle
	EvaluatedAt     time.Time        `json:"evaluated_at"`
}
