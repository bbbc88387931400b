package matching

import (
	"math"
	"sort"
	"strings"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/services/normalize"
)

// Candidate is one scored (movement, document) pairing. Ephemeral: only
// the decision derived from the top candidate is persisted; the rest
// survive only inside the report payload as next-best visibility.
type Candidate struct {
	Document *models.Document
	Record   normalize.Record
	Score    Breakdown
}

// RankedMovement is a movement with its candidates in deciding order.
type RankedMovement struct {
	Movement   *models.Movement
	Record     normalize.Record
	Candidates []Candidate
}

func (r RankedMovement) Top() *Candidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

func (r RankedMovement) NextBest() *Candidate {
	if len(r.Candidates) < 2 {
		return nil
	}
	return &r.Candidates[1]
}

// DocumentEntry is a document prepared for ranking: canonical record plus
// its embedding.
type DocumentEntry struct {
	Document *models.Document
	Record   normalize.Record
	Vector   []float32
}

type Ranker struct {
	scorer     *Scorer
	tieEpsilon float64
}

func NewRanker(scorer *Scorer, tieEpsilon float64) *Ranker {
	return &Ranker{scorer: scorer, tieEpsilon: tieEpsilon}
}

// Rank scores one movement against every eligible document and orders the
// candidates. Scores within the tie epsilon are broken by smaller amount
// difference, then smaller date difference, then lexicographically smaller
// document id, so the ranking is deterministic and reproducible.
func (r *Ranker) Rank(mv *models.Movement, rec normalize.Record, vec []float32, docs []DocumentEntry) RankedMovement {
	ranked := RankedMovement{Movement: mv, Record: rec}
	for _, d := range docs {
		ranked.Candidates = append(ranked.Candidates, Candidate{
			Document: d.Document,
			Record:   d.Record,
			Score:    r.scorer.Score(rec, d.Record, vec, d.Vector),
		})
	}

	sort.SliceStable(ranked.Candidates, func(i, j int) bool {
		return r.less(rec, ranked.Candidates[i], ranked.Candidates[j])
	})
	return ranked
}

func (r *Ranker) less(rec normalize.Record, a, b Candidate) bool {
	if math.Abs(a.Score.Composite-b.Score.Composite) > r.tieEpsilon {
		return a.Score.Composite > b.Score.Composite
	}

	amountA, _ := rec.Amount.Sub(a.Record.Amount).Abs().Float64()
	amountB, _ := rec.Amount.Sub(b.Record.Amount).Abs().Float64()
	if amountA != amountB {
		return amountA < amountB
	}

	daysA := math.Abs(rec.Date.Sub(a.Record.Date).Hours())
	daysB := math.Abs(rec.Date.Sub(b.Record.Date).Hours())
	if daysA != daysB {
		return daysA < daysB
	}

	return strings.Compare(a.Document.ID.String(), b.Document.ID.String()) < 0
}
