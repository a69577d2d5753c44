package repository

import (
	"csatguardian/models"
	"database/sql"
	"fmt"
)

// StateRepository handles the per-case monitoring state record
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetState returns the monitoring state for a case, or nil when the case has
// never been evaluated.
func (r *StateRepository) GetState(caseID int64) (*models.CaseMonitoringState, error) {
	query := `
		SELECT case_id, last_risk, last_compliance_state, pending_decline,
			last_scored_entry_id, last_scored_count, evaluated_at
		FROM case_monitoring_state
		WHERE case_id = ?
	`

	var s models.CaseMonitoringState
	err := r.db.QueryRow(query, caseID).Scan(
		&s.CaseID,
		&s.LastRisk,
		&s.LastComplianceState,
		&s.PendingDecline,
		&s.LastScoredEntryID,
		&s.LastScoredCount,
		&s.EvaluatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load monitoring state for case %d: %w", caseID, err)
	}

	return &s, nil
}

// UpsertState writes the monitoring state for a case after an evaluation pass
func (r *StateRepository) UpsertState(state *models.CaseMonitoringState) error {
	query := `
		INSERT INTO case_monitoring_state (
			case_id, last_risk, last_compliance_state, pending_decline,
			last_scored_entry_id, last_scored_count, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			last_risk = VALUES(last_risk),
			last_compliance_state = VALUES(last_compliance_state),
			pending_decline = VALUES(pending_decline),
			last_scored_entry_id = VALUES(last_scored_entry_id),
			last_scored_count = VALUES(last_scored_count),
			evaluated_at = VALUES(evaluated_at)
	`

	_, err := r.db.Exec(
		query,
		state.CaseID,
		state.LastRisk,
		state.LastComplianceState,
		state.PendingDecline,
		state.LastScoredEntryID,
		state.LastScoredCount,
		state.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monitoring state for case %d: %w", state.CaseID, err)
	}

	return nil
}
