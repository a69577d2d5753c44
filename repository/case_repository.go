package repository

import (
	"csatguardian/models"
	"database/sql"
	"fmt"
)

// CaseRepository handles database operations for cases and their timelines
type CaseRepository struct {
	db *sql.DB
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// GetCaseByID loads a single case. Returns sql.ErrNoRows when the case does
// not exist; the caller decides whether that is a data-integrity failure.
func (r *CaseRepository) GetCaseByID(caseID int64) (*models.Case, error) {
	query := `
		SELECT case_id, case_number, title, description, status, priority,
			owner_id, customer_id, created_on, modified_on
		FROM cases
		WHERE case_id = ?
	`

	var c models.Case
	err := r.db.QueryRow(query, caseID).Scan(
		&c.CaseID,
		&c.CaseNumber,
		&c.Title,
		&c.Description,
		&c.Status,
		&c.Priority,
		&c.OwnerID,
		&c.CustomerID,
		&c.CreatedOn,
		&c.ModifiedOn,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load case %d: %w", caseID, err)
	}

	return &c, nil
}

// GetTimelineEntries returns all timeline entries for a case ordered oldest
// first. Ties on created_on are broken by insertion order (entry_id), never
// re-ordered by anything else.
func (r *CaseRepository) GetTimelineEntries(caseID int64) ([]models.TimelineEntry, error) {
	query := `
		SELECT entry_id, case_id, entry_type, subject, content,
			direction, is_customer_communication, created_by, created_on
		FROM case_timeline
		WHERE case_id = ?
		ORDER BY created_on ASC, entry_id ASC
	`

	rows, err := r.db.Query(query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline for case %d: %w", caseID, err)
	}
	defer rows.Close()

	var entries []models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		err := rows.Scan(
			&e.EntryID,
			&e.CaseID,
			&e.EntryType,
			&e.Subject,
			&e.Content,
			&e.Direction,
			&e.IsCustomerCommunication,
			&e.CreatedBy,
			&e.CreatedOn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline entries: %w", err)
	}

	return entries, nil
}

// ListActiveCaseIDs returns the ids of all active cases, oldest activity
// first, for the monitoring sweep.
func (r *CaseRepository) ListActiveCaseIDs() ([]int64, error) {
	query := `
		SELECT case_id
		FROM cases
		WHERE status = 'active'
		ORDER BY modified_on ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active cases: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan case id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active cases: %w", err)
	}

	return ids, nil
}

// GetEngineerByID loads an engineer (alert recipient / case owner).
func (r *CaseRepository) GetEngineerByID(engineerID int64) (*models.Engineer, error) {
	query := `
		SELECT engineer_id, full_name, email, password_hash, webhook_url, is_active, created_at
		FROM engineers
		WHERE engineer_id = ?
	`

	var e models.Engineer
	err := r.db.QueryRow(query, engineerID).Scan(
		&e.EngineerID,
		&e.FullName,
		&e.Email,
		&e.PasswordHash,
		&e.WebhookURL,
		&e.IsActive,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load engineer %d: %w", engineerID, err)
	}

	return &e, nil
}

// GetEngineerByEmail loads an engineer by login email.
func (r *CaseRepository) GetEngineerByEmail(email string) (*models.Engineer, error) {
	query := `
		SELECT engineer_id, full_name, email, password_hash, webhook_url, is_active, created_at
		FROM engineers
		WHERE email = ?
	`

	var e models.Engineer
	err := r.db.QueryRow(query, email).Scan(
		&e.EngineerID,
		&e.FullName,
		&e.Email,
		&e.PasswordHash,
		&e.WebhookURL,
		&e.IsActive,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load engineer by email: %w", err)
	}

	return &e, nil
}
