package reconciliation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"invoice-reconciliation-backend/internal/models"
)

// Report summarizes one completed run for external consumption: counts
// by decision kind, the overall reconciliation rate, and the flagged
// items a reviewer needs to act on.
type Report struct {
	JobID    uuid.UUID `json:"job_id"`
	TenantID uuid.UUID `json:"tenant_id"`

	ScannedCount  int `json:"scanned_count"`
	AutoCount     int `json:"auto_count"`
	ReviewCount   int `json:"review_count"`
	RejectedCount int `json:"rejected_count"`
	ErroredCount  int `json:"errored_count"`

	ReconciliationRate float64 `json:"reconciliation_rate"`

	ReviewItems []ReviewItem `json:"review_items"`
}

type ReviewItem struct {
	MovementID uuid.UUID       `json:"movement_id"`
	DocumentID *uuid.UUID      `json:"document_id"`
	Score      float64         `json:"score"`
	Details    json.RawMessage `json:"details"`
}

// BuildReport derives the report from the job row and its decisions. Pure
// function: no side effects, no storage access.
func BuildReport(job *models.AutomationJob, decisions []models.MatchDecision) Report {
	report := Report{
		JobID:        job.ID,
		TenantID:     job.TenantID,
		ScannedCount: job.ScannedCount,
		ErroredCount: job.ErroredCount,
	}

	for _, d := range decisions {
		switch d.Kind {
		case models.DecisionAuto:
			report.AutoCount++
		case models.DecisionReview:
			report.ReviewCount++
			report.ReviewItems = append(report.ReviewItems, ReviewItem{
				MovementID: d.MovementID,
				DocumentID: d.DocumentID,
				Score:      d.Score,
				Details:    json.RawMessage(d.Details),
			})
		case models.DecisionRejected:
			report.RejectedCount++
		}
	}

	if job.ScannedCount > 0 {
		report.ReconciliationRate = float64(report.AutoCount) / float64(job.ScannedCount)
	}
	return report
}

// GetRunReport loads a finished job and builds its report. Jobs still in
// flight have nothing meaningful to report yet.
func (s *Service) GetRunReport(jobID uuid.UUID) (Report, error) {
	job, err := s.automation.GetJob(jobID)
	if err != nil {
		return Report{}, err
	}
	if job.Status != models.JobCompleted && job.Status != models.JobFailed {
		return Report{}, fmt.Errorf("job %s is still %s", jobID, job.Status)
	}
	decisions, err := s.automation.ListDecisionsByJob(jobID)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(job, decisions), nil
}
