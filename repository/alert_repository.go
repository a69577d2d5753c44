package repository

import (
	"csatguardian/models"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// AlertRepository handles database operations for alerts
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// mysqlDuplicateEntry is the MySQL error number for unique-key violations
const mysqlDuplicateEntry = 1062

// ListActiveAlerts returns the unacknowledged alerts for a case
func (r *AlertRepository) ListActiveAlerts(caseID int64) ([]models.Alert, error) {
	query := `
		SELECT alert_id, alert_ref, case_id, alert_type, message, recipient_id,
			sent_at, acknowledged, acknowledged_at, resolution_reason
		FROM alerts
		WHERE case_id = ? AND acknowledged = FALSE
		ORDER BY sent_at ASC, alert_id ASC
	`

	rows, err := r.db.Query(query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts for case %d: %w", caseID, err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(
			&a.AlertID,
			&a.AlertRef,
			&a.CaseID,
			&a.AlertType,
			&a.Message,
			&a.RecipientID,
			&a.SentAt,
			&a.Acknowledged,
			&a.AcknowledgedAt,
			&a.ResolutionReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// GetAlertByID loads a single alert
func (r *AlertRepository) GetAlertByID(alertID int64) (*models.Alert, error) {
	query := `
		SELECT alert_id, alert_ref, case_id, alert_type, message, recipient_id,
			sent_at, acknowledged, acknowledged_at, resolution_reason
		FROM alerts
		WHERE alert_id = ?
	`

	var a models.Alert
	err := r.db.QueryRow(query, alertID).Scan(
		&a.AlertID,
		&a.AlertRef,
		&a.CaseID,
		&a.AlertType,
		&a.Message,
		&a.RecipientID,
		&a.SentAt,
		&a.Acknowledged,
		&a.AcknowledgedAt,
		&a.ResolutionReason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load alert %d: %w", alertID, err)
	}

	return &a, nil
}

// CreateAlert persists a new alert. The uq_case_type_open index rejects a
// second open alert of the same type for the case; that violation is surfaced
// as models.ErrDuplicateAlert so the engine can reconcile instead of silently
// double-alerting.
func (r *AlertRepository) CreateAlert(alert *models.Alert) error {
	if alert.AlertRef == "" {
		alert.AlertRef = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (
			alert_ref, case_id, alert_type, message, recipient_id, sent_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Exec(
		query,
		alert.AlertRef,
		alert.CaseID,
		alert.AlertType,
		alert.Message,
		alert.RecipientID,
		alert.SentAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return models.ErrDuplicateAlert
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}

	alertID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get alert ID: %w", err)
	}

	alert.AlertID = alertID
	return nil
}

// AcknowledgeAlert marks an alert acknowledged with the given reason and
// clears open_flag so a new alert of the same type may be created later.
// Used both for engineer acknowledgment and for auto-resolution.
func (r *AlertRepository) AcknowledgeAlert(alertID int64, reason string) error {
	query := `
		UPDATE alerts
		SET acknowledged = TRUE,
			acknowledged_at = NOW(),
			resolution_reason = ?,
			open_flag = NULL
		WHERE alert_id = ? AND acknowledged = FALSE
	`

	res, err := r.db.Exec(query, reason, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", alertID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read acknowledge result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %d not found or already acknowledged", alertID)
	}

	return nil
}
