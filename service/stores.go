package service

import "csatguardian/models"

// CaseStore provides case, timeline and engineer reads.
// Satisfied by repository.CaseRepository.
type CaseStore interface {
	GetCaseByID(caseID int64) (*models.Case, error)
	GetTimelineEntries(caseID int64) ([]models.TimelineEntry, error)
	ListActiveCaseIDs() ([]int64, error)
	GetEngineerByID(engineerID int64) (*models.Engineer, error)
}

// SentimentStore persists per-entry classification results.
// Satisfied by repository.SentimentRepository.
type SentimentStore interface {
	GetEntryResults(caseID int64) (map[int64]models.SentimentResult, error)
	CreateSentimentResult(result *models.SentimentResult) error
}

// AlertStore is the alert persistence collaborator. CreateAlert must reject a
// second open alert of the same (case, type) with models.ErrDuplicateAlert.
// Satisfied by repository.AlertRepository.
type AlertStore interface {
	ListActiveAlerts(caseID int64) ([]models.Alert, error)
	CreateAlert(alert *models.Alert) error
	AcknowledgeAlert(alertID int64, reason string) error
}

// StateStore persists the per-case monitoring state record.
// Satisfied by repository.StateRepository.
type StateStore interface {
	GetState(caseID int64) (*models.CaseMonitoringState, error)
	UpsertState(state *models.CaseMonitoringState) error
}
