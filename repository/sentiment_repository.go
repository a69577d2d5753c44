package repository

import (
	"csatguardian/models"
	"database/sql"
	"fmt"
)

// SentimentRepository handles database operations for sentiment results
type SentimentRepository struct {
	db *sql.DB
}

// NewSentimentRepository creates a new sentiment repository
func NewSentimentRepository(db *sql.DB) *SentimentRepository {
	return &SentimentRepository{db: db}
}

// GetEntryResults returns the per-entry sentiment results for a case, keyed by
// timeline entry id. Case-level aggregates (NULL entry id) are excluded.
func (r *SentimentRepository) GetEntryResults(caseID int64) (map[int64]models.SentimentResult, error) {
	query := `
		SELECT result_id, case_id, timeline_entry_id, label, score, model_version, analyzed_at
		FROM sentiment_results
		WHERE case_id = ? AND timeline_entry_id IS NOT NULL
	`

	rows, err := r.db.Query(query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiment results for case %d: %w", caseID, err)
	}
	defer rows.Close()

	results := make(map[int64]models.SentimentResult)
	for rows.Next() {
		var s models.SentimentResult
		err := rows.Scan(
			&s.ResultID,
			&s.CaseID,
			&s.TimelineEntryID,
			&s.Label,
			&s.Score,
			&s.ModelVersion,
			&s.AnalyzedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sentiment result: %w", err)
		}
		if s.TimelineEntryID.Valid {
			results[s.TimelineEntryID.Int64] = s
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sentiment results: %w", err)
	}

	return results, nil
}

// CreateSentimentResult persists a classification outcome for a timeline entry
func (r *SentimentRepository) CreateSentimentResult(result *models.SentimentResult) error {
	query := `
		INSERT INTO sentiment_results (
			case_id, timeline_entry_id, label, score, model_version, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Exec(
		query,
		result.CaseID,
		result.TimelineEntryID,
		result.Label,
		result.Score,
		result.ModelVersion,
		result.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sentiment result: %w", err)
	}

	resultID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get sentiment result ID: %w", err)
	}

	result.ResultID = resultID
	return nil
}
