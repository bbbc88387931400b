package matching

import (
	"sort"

	"github.com/google/uuid"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
)

// Decision is the engine's verdict for one movement in one run.
type Decision struct {
	Movement  *models.Movement
	Candidate *Candidate
	NextBest  *Candidate
	Kind      string
	// Degraded is set when the score cleared the auto threshold but the
	// document had already been claimed by a higher-scoring movement.
	Degraded bool
}

// Decide evaluates all ranked movements as one batch. Documents must be
// claimed in descending score order across the whole batch, not
// movement-by-movement, so two movements contending for the same invoice
// resolve in favor of the higher composite score; the loser degrades to
// review even when its own score clears the auto threshold.
func Decide(ranked []RankedMovement, cfg config.MatchingConfig) []Decision {
	ordered := make([]RankedMovement, len(ranked))
	copy(ordered, ranked)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := topScore(ordered[i]), topScore(ordered[j])
		if si != sj {
			return si > sj
		}
		return ordered[i].Movement.ID.String() < ordered[j].Movement.ID.String()
	})

	claimed := make(map[uuid.UUID]bool)
	decisions := make([]Decision, 0, len(ordered))

	for _, rm := range ordered {
		d := Decision{Movement: rm.Movement, Candidate: rm.Top(), NextBest: rm.NextBest()}

		switch {
		case d.Candidate == nil || d.Candidate.Score.Composite < cfg.ReviewThreshold:
			d.Kind = models.DecisionRejected
		case d.Candidate.Score.Composite < cfg.AutoThreshold:
			d.Kind = models.DecisionReview
		case claimed[d.Candidate.Document.ID]:
			d.Kind = models.DecisionReview
			d.Degraded = true
		default:
			d.Kind = models.DecisionAuto
			claimed[d.Candidate.Document.ID] = true
		}

		decisions = append(decisions, d)
	}
	return decisions
}

func topScore(rm RankedMovement) float64 {
	if top := rm.Top(); top != nil {
		return top.Score.Composite
	}
	return 0
}
