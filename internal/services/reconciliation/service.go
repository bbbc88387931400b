package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/embedding"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/pkg/logger"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/matching"
	"invoice-reconciliation-backend/internal/services/normalize"
)

// ErrRunActive is surfaced to callers of StartRun when the tenant's lease
// is held by another job.
var ErrRunActive = repository.ErrRunActive

// Service orchestrates one reconciliation run per tenant: job lifecycle,
// record preparation, embedding fan-out, the global score-sorted claim
// pass, and counter/log bookkeeping.
type Service struct {
	movements  *repository.MovementRepository
	documents  *repository.DocumentRepository
	automation *repository.AutomationRepository
	provider   embedding.Provider
	log        *logger.Logger
	defaults   config.MatchingConfig

	embedConcurrency int
	leaseTTL         time.Duration
}

func NewService(
	movements *repository.MovementRepository,
	documents *repository.DocumentRepository,
	automation *repository.AutomationRepository,
	provider embedding.Provider,
	log *logger.Logger,
) *Service {
	return &Service{
		movements:        movements,
		documents:        documents,
		automation:       automation,
		provider:         provider,
		log:              log,
		defaults:         config.DefaultMatchingConfig(),
		embedConcurrency: 8,
		leaseTTL:         15 * time.Minute,
	}
}

// StartRun begins an asynchronous run and returns the job id immediately;
// callers poll job status. Fails with ErrRunActive when a run is already
// in flight for the tenant.
func (s *Service) StartRun(ctx context.Context, tenantID uuid.UUID) (uuid.UUID, error) {
	run, err := s.prepare(tenantID)
	if err != nil {
		return uuid.Nil, err
	}
	go s.execute(context.Background(), run)
	return run.job.ID, nil
}

// RunBatch is the synchronous variant used by the scheduler and tests.
func (s *Service) RunBatch(ctx context.Context, tenantID uuid.UUID) (uuid.UUID, error) {
	run, err := s.prepare(tenantID)
	if err != nil {
		return uuid.Nil, err
	}
	s.execute(ctx, run)
	return run.job.ID, nil
}

type runState struct {
	job *models.AutomationJob
	cfg config.MatchingConfig

	counters models.AutomationJob
	logSeq   int
}

// prepare takes the tenant lease and creates the job row. The lease is
// acquired under the job id before the row exists, so a crash between the
// two writes leaves only an expiring lease behind.
func (s *Service) prepare(tenantID uuid.UUID) (*runState, error) {
	cfg, err := s.automation.LoadMatchingConfig(tenantID, s.defaults)
	if err != nil {
		s.log.Warn("tenant matching config rejected, using defaults",
			"tenant_id", tenantID, "error", err.Error())
		cfg = s.defaults
	}

	jobID := uuid.New()
	if err := s.automation.AcquireLease(tenantID, jobID, s.leaseTTL); err != nil {
		return nil, err
	}

	job := &models.AutomationJob{
		ID:        jobID,
		TenantID:  tenantID,
		Status:    models.JobPending,
		StartedAt: time.Now(),
	}
	if err := s.automation.CreateJob(job); err != nil {
		_ = s.automation.ReleaseLease(tenantID, jobID)
		return nil, err
	}
	return &runState{job: job, cfg: cfg}, nil
}

func (s *Service) execute(ctx context.Context, run *runState) {
	job := run.job
	log := s.log.With("job_id", job.ID, "tenant_id", job.TenantID)
	defer func() {
		_ = s.automation.ReleaseLease(job.TenantID, job.ID)
	}()

	if err := s.automation.MarkJobRunning(job.ID); err != nil {
		log.Error("could not mark job running", "error", err.Error())
		return
	}

	movements, err := s.movements.ListUnmatched(job.TenantID)
	if err != nil {
		s.fail(run, "loading movements: "+err.Error())
		return
	}
	documents, err := s.documents.ListUnconsumed(job.TenantID)
	if err != nil {
		s.fail(run, "loading documents: "+err.Error())
		return
	}
	run.counters.ScannedCount = len(movements)
	log.Info("run started", "movements", len(movements), "documents", len(documents))

	mvItems, docEntries := s.normalizeAll(run, movements, documents)
	if cancelled := s.embedAll(ctx, run, mvItems, docEntries); cancelled {
		s.fail(run, "cancelled")
		return
	}

	scorer := matching.NewScorer(run.cfg)
	ranker := matching.NewRanker(scorer, run.cfg.TieEpsilon)

	eligible := docEntries[:0]
	for _, d := range docEntries {
		if d.Vector != nil {
			eligible = append(eligible, d)
		}
	}

	var ranked []matching.RankedMovement
	for _, item := range mvItems {
		if item.vector == nil {
			continue
		}
		ranked = append(ranked, ranker.Rank(item.movement, item.record, item.vector, eligible))
	}

	decisions := matching.Decide(ranked, run.cfg)
	if fatal := s.applyDecisions(ctx, run, decisions); fatal != nil {
		s.fail(run, fatal.Error())
		return
	}

	if err := s.automation.FinalizeJob(job.ID, models.JobCompleted, run.counters, ""); err != nil {
		log.Error("could not finalize job", "error", err.Error())
		return
	}
	log.Info("run completed",
		"scanned", run.counters.ScannedCount,
		"matched", run.counters.MatchedCount,
		"flagged", run.counters.FlaggedCount,
		"errored", run.counters.ErroredCount,
	)
}

type movementItem struct {
	movement *models.Movement
	record   normalize.Record
	vector   []float32
}

// normalizeAll builds canonical records, excluding malformed rows instead
// of defaulting them. Exclusions land in the job log and counters so
// nothing disappears silently.
func (s *Service) normalizeAll(run *runState, movements []models.Movement, documents []models.Document) ([]*movementItem, []matching.DocumentEntry) {
	var mvItems []*movementItem
	for i := range movements {
		mv := &movements[i]
		rec, err := normalize.Movement(mv)
		if err != nil {
			run.counters.ErroredCount++
			s.appendLog(run, "warn", "movement excluded: "+err.Error(), &mv.ID, nil)
			continue
		}
		mvItems = append(mvItems, &movementItem{movement: mv, record: rec})
	}

	var docEntries []matching.DocumentEntry
	for i := range documents {
		doc := &documents[i]
		rec, err := normalize.Document(doc)
		if err != nil {
			s.appendLog(run, "warn", "document excluded: "+err.Error(), nil, &doc.ID)
			continue
		}
		docEntries = append(docEntries, matching.DocumentEntry{Document: doc, Record: rec})
	}
	return mvItems, docEntries
}

// embedAll issues embedding calls concurrently across independent records
// and collects every result before returning; the claim pass that follows
// is strictly sequential. A provider failure skips the record, never the
// run. Returns true when the context was cancelled mid-flight.
func (s *Service) embedAll(ctx context.Context, run *runState, mvItems []*movementItem, docEntries []matching.DocumentEntry) bool {
	cache := embedding.NewCache(s.provider)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)

	for _, item := range mvItems {
		item := item
		g.Go(func() error {
			vec, err := cache.Embed(gctx, item.record.Text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				run.counters.ErroredCount++
				s.appendLog(run, "warn", "movement embedding skipped: "+err.Error(), &item.movement.ID, nil)
				return nil
			}
			item.vector = vec
			return nil
		})
	}
	for i := range docEntries {
		entry := &docEntries[i]
		g.Go(func() error {
			vec, err := cache.Embed(gctx, entry.Record.Text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.appendLog(run, "warn", "document embedding skipped: "+err.Error(), nil, &entry.Document.ID)
				return nil
			}
			entry.Vector = vec
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err() != nil
}

// applyDecisions is the sequential claim pass. Decisions arrive already
// sorted by descending score, so the conditional document claim plus the
// guarded movement transition preserve highest-score-wins even when a
// previous partial run or a concurrent reviewer touched the rows. A
// returned error is fatal bookkeeping corruption; per-record conflicts
// are logged and left for the next run.
func (s *Service) applyDecisions(ctx context.Context, run *runState, decisions []matching.Decision) error {
	for _, d := range decisions {
		if ctx.Err() != nil {
			return errors.New("cancelled")
		}

		mv := d.Movement
		switch d.Kind {
		case models.DecisionAuto:
			doc := d.Candidate.Document
			if err := s.documents.Claim(doc.ID, mv.ID); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					run.counters.ErroredCount++
					s.appendLog(run, "warn", "document claim conflict, movement deferred", &mv.ID, &doc.ID)
					continue
				}
				return err
			}
			if err := s.movements.MarkAutoMatched(mv.ID, doc.ID, d.Candidate.Score.Composite); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					_ = s.documents.Release(doc.ID)
					run.counters.ErroredCount++
					s.appendLog(run, "warn", "movement state changed concurrently, claim rolled back", &mv.ID, &doc.ID)
					continue
				}
				return err
			}
			if err := s.persistDecision(run, d); err != nil {
				return err
			}
			run.counters.MatchedCount++

		case models.DecisionReview:
			doc := d.Candidate.Document
			if err := s.movements.MarkReviewPending(mv.ID, doc.ID, d.Candidate.Score.Composite); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					run.counters.ErroredCount++
					s.appendLog(run, "warn", "movement state changed concurrently, review skipped", &mv.ID, &doc.ID)
					continue
				}
				return err
			}
			if err := s.persistDecision(run, d); err != nil {
				return err
			}
			run.counters.FlaggedCount++

		case models.DecisionRejected:
			if err := s.persistDecision(run, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) persistDecision(run *runState, d matching.Decision) error {
	decision := &models.MatchDecision{
		ID:         uuid.New(),
		TenantID:   run.job.TenantID,
		JobID:      run.job.ID,
		MovementID: d.Movement.ID,
		Kind:       d.Kind,
		Details:    decisionDetails(d),
	}
	if d.Candidate != nil {
		decision.Score = d.Candidate.Score.Composite
		// Rejected decisions chose no document; the weak candidate lives
		// only in the details blob.
		if d.Kind != models.DecisionRejected {
			docID := d.Candidate.Document.ID
			decision.DocumentID = &docID
		}
	}
	return s.automation.CreateDecision(decision)
}

func decisionDetails(d matching.Decision) datatypes.JSON {
	details := map[string]interface{}{
		"decision": d.Kind,
		"degraded": d.Degraded,
	}
	if d.Candidate != nil {
		details["candidate"] = candidateDetails(d.Candidate)
	}
	if d.NextBest != nil {
		details["next_best"] = candidateDetails(d.NextBest)
	}
	raw, _ := json.Marshal(details)
	return raw
}

func candidateDetails(c *matching.Candidate) map[string]interface{} {
	return map[string]interface{}{
		"document_id":  c.Document.ID.String(),
		"counterparty": c.Document.CounterpartyName,
		"breakdown":    c.Score,
	}
}

func (s *Service) fail(run *runState, reason string) {
	if err := s.automation.FinalizeJob(run.job.ID, models.JobFailed, run.counters, reason); err != nil {
		s.log.Error("could not mark job failed",
			"job_id", run.job.ID, "reason", reason, "error", err.Error())
		return
	}
	s.log.Warn("run failed", "job_id", run.job.ID, "reason", reason)
}

func (s *Service) appendLog(run *runState, level, message string, movementID, documentID *uuid.UUID) {
	run.logSeq++
	if err := s.automation.AppendLog(run.job.ID, run.logSeq, level, message, movementID, documentID); err != nil {
		s.log.Error("could not append job log", "job_id", run.job.ID, "error", err.Error())
	}
}

// GetJobStatus returns the job row with its counters.
func (s *Service) GetJobStatus(jobID uuid.UUID) (*models.AutomationJob, error) {
	return s.automation.GetJob(jobID)
}

// ManualUnmatch releases a human-confirmed or pending match: the movement
// returns to the backlog and the consumed invoice, if any, becomes a
// candidate again.
func (s *Service) ManualUnmatch(movementID uuid.UUID) error {
	documentID, err := s.movements.ClearMatch(movementID)
	if err != nil {
		return err
	}
	if documentID != nil {
		if err := s.documents.Release(*documentID); err != nil && !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	s.log.Info("movement unmatched manually", "movement_id", movementID)
	return nil
}
