package matching

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/services/normalize"
)

// Breakdown holds the three normalized sub-scores and their weighted
// composite, all in [0,1]. It is persisted verbatim into the decision
// details so a reviewer can see why a candidate scored the way it did.
type Breakdown struct {
	Text      float64 `json:"text"`
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Composite float64 `json:"composite"`
}

type Scorer struct {
	cfg config.MatchingConfig
}

func NewScorer(cfg config.MatchingConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the composite confidence of matching a movement against
// a document, given both canonical records and their embeddings.
func (s *Scorer) Score(mv, doc normalize.Record, mvVec, docVec []float32) Breakdown {
	b := Breakdown{
		Text:   clamp01(Cosine(mvVec, docVec)),
		Amount: amountProximity(mv.Amount, doc.Amount, s.cfg.AmountTolerance),
		Date:   dateProximity(mv.Date, doc.Date, s.cfg.DateWindowDays),
	}
	b.Composite = clamp01(s.cfg.TextWeight*b.Text + s.cfg.AmountWeight*b.Amount + s.cfg.DateWeight*b.Date)
	return b
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude or the dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

const amountEpsilon = 0.01

// amountProximity scores how close the movement amount is to the invoice
// amount, relative to the invoice. An exact match scores 1.0; relative
// differences beyond the tolerance floor to 0.
func amountProximity(mv, doc decimal.Decimal, tolerance float64) float64 {
	diff, _ := mv.Sub(doc).Abs().Float64()
	if diff == 0 {
		return 1.0
	}
	ref, _ := doc.Abs().Float64()
	rel := diff / math.Max(amountEpsilon, ref)
	if rel > tolerance {
		return 0
	}
	return 1 - math.Min(1, rel)
}

// dateProximity decays linearly from 1.0 (same day) to 0 over the window.
func dateProximity(mv, doc time.Time, windowDays int) float64 {
	days := math.Abs(mv.Sub(doc).Hours() / 24)
	window := float64(windowDays)
	if days >= window {
		return 0
	}
	return 1 - days/window
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
