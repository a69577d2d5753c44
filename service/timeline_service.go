package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"csatguardian/classifier"
	"csatguardian/logger"
	"csatguardian/models"
)

// ScoredEntry is one customer-facing timeline entry with its sentiment
// result. Result is nil while the entry is unscored (classification failed
// this pass); unscored entries stay in the timeline but are excluded from
// trend math and retried on the next cycle.
type ScoredEntry struct {
	Entry  models.TimelineEntry
	Result *models.SentimentResult
}

// TimelineService builds the ordered, scored view of a case's customer
// communications used for trend analysis.
type TimelineService struct {
	cases           CaseStore
	sentiments      SentimentStore
	classifier      classifier.Classifier
	classifyTimeout time.Duration
	log             *logrus.Entry
}

// NewTimelineService creates a new timeline service
func NewTimelineService(
	cases CaseStore,
	sentiments SentimentStore,
	cls classifier.Classifier,
	classifyTimeout time.Duration,
	log *logger.Logger,
) *TimelineService {
	return &TimelineService{
		cases:           cases,
		sentiments:      sentiments,
		classifier:      cls,
		classifyTimeout: classifyTimeout,
		log:             log.WithComponent("timeline"),
	}
}

// BuildTimeline returns the ordered subsequence of customer-facing entries
// with their sentiment results, oldest first, plus the count of entries left
// unscored this pass. Entries without a stored result are classified on
// demand under a per-entry timeout; a classifier failure marks that entry
// unscored and never aborts the rest of the timeline.
func (s *TimelineService) BuildTimeline(ctx context.Context, c *models.Case) ([]ScoredEntry, int, error) {
	entries, err := s.cases.GetTimelineEntries(c.CaseID)
	if err != nil {
		return nil, 0, err
	}

	existing, err := s.sentiments.GetEntryResults(c.CaseID)
	if err != nil {
		return nil, 0, err
	}

	var scored []ScoredEntry
	unscoredCount := 0
	for _, entry := range entries {
		if !entry.IsCustomerCommunication {
			// Internal notes/calls carry no customer signal; callers that want
			// display context load the full timeline themselves.
			continue
		}

		if result, ok := existing[entry.EntryID]; ok {
			scored = append(scored, ScoredEntry{Entry: entry, Result: &result})
			continue
		}

		result := s.classifyEntry(ctx, entry)
		if result == nil {
			unscoredCount++
		}
		scored = append(scored, ScoredEntry{Entry: entry, Result: result})
	}

	return scored, unscoredCount, nil
}

// classifyEntry classifies one entry and persists the result. Returns nil on
// failure; the entry is retried on the next evaluation cycle.
func (s *TimelineService) classifyEntry(ctx context.Context, entry models.TimelineEntry) *models.SentimentResult {
	classifyCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	res, err := s.classifier.Classify(classifyCtx, entry.Content)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"case_id":  entry.CaseID,
			"entry_id": entry.EntryID,
		}).Warn("entry left unscored")
		return nil
	}

	result := &models.SentimentResult{
		CaseID:          entry.CaseID,
		TimelineEntryID: sql.NullInt64{Int64: entry.EntryID, Valid: true},
		Label:           res.Label,
		Score:           res.Score,
		ModelVersion:    s.classifier.ModelVersion(),
		AnalyzedAt:      time.Now().UTC(),
	}
	if err := s.sentiments.CreateSentimentResult(result); err != nil {
		// The score is still usable this pass; persistence is retried next cycle.
		s.log.WithError(err).WithFields(logrus.Fields{
			"case_id":  entry.CaseID,
			"entry_id": entry.EntryID,
		}).Warn("failed to persist sentiment result")
	}

	return result
}
