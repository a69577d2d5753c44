package service

import (
	"time"

	"csatguardian/config"
	"csatguardian/models"
)

// ComplianceService computes SLA-deadline state from case timestamps. The
// window boundaries are whole days: a case last touched exactly
// SLAWindowDays*24h ago is breached; one hour less keeps it approaching.
type ComplianceService struct {
	cfg config.MonitorConfig
}

// NewComplianceService creates a new compliance service
func NewComplianceService(cfg config.MonitorConfig) *ComplianceService {
	return &ComplianceService{cfg: cfg}
}

// Evaluate returns the compliance report for a case at the given instant.
// Only active cases are subject to the SLA; resolved/closed cases are exempt
// and always report on_track.
func (s *ComplianceService) Evaluate(c *models.Case, now time.Time) models.ComplianceReport {
	days := int(now.Sub(c.ModifiedOn).Hours() / 24)
	if days < 0 {
		days = 0
	}

	report := models.ComplianceReport{
		State:                 models.ComplianceOnTrack,
		DaysSinceLastActivity: days,
	}

	if c.Status != models.CaseStatusActive {
		report.Exempt = true
		return report
	}

	switch {
	case days >= s.cfg.SLAWindowDays:
		report.State = models.ComplianceBreached
	case days >= s.cfg.SLAWarnDays:
		report.State = models.ComplianceApproaching
	}

	return report
}
