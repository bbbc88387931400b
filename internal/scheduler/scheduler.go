package scheduler

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"

	"invoice-reconciliation-backend/internal/pkg/logger"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/reconciliation"
)

// Scheduler triggers periodic reconciliation runs for every tenant that
// has an unmatched backlog. Tenants run independently; one already-active
// tenant is skipped, not an error.
type Scheduler struct {
	cron      *cron.Cron
	service   *reconciliation.Service
	movements *repository.MovementRepository
	log       *logger.Logger
}

func New(service *reconciliation.Service, movements *repository.MovementRepository, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		service:   service,
		movements: movements,
		log:       log,
	}
}

// Start registers the sweep under the given cron expression and starts
// the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("reconciliation scheduler started", "spec", spec)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) sweep() {
	tenants, err := s.movements.TenantsWithBacklog()
	if err != nil {
		s.log.Error("scheduler could not list tenants", "error", err.Error())
		return
	}

	for _, tenantID := range tenants {
		jobID, err := s.service.RunBatch(context.Background(), tenantID)
		if err != nil {
			if errors.Is(err, reconciliation.ErrRunActive) {
				s.log.Debug("tenant run already active, skipping", "tenant_id", tenantID)
				continue
			}
			s.log.Error("scheduled run failed to start", "tenant_id", tenantID, "error", err.Error())
			continue
		}
		s.log.Info("scheduled run finished", "tenant_id", tenantID, "job_id", jobID)
	}
}
