package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
)

func docEntry(id uuid.UUID, amount float64, date time.Time, vec []float32) DocumentEntry {
	return DocumentEntry{
		Document: &models.Document{ID: id},
		Record:   record(amount, date, "doc"),
		Vector:   vec,
	}
}

func newTestRanker() *Ranker {
	cfg := config.DefaultMatchingConfig()
	return NewRanker(NewScorer(cfg), cfg.TieEpsilon)
}

func TestRankOrdersByScore(t *testing.T) {
	r := newTestRanker()
	mv := &models.Movement{ID: uuid.New()}
	rec := record(100, day, "mv")
	vec := []float32{1, 0}

	strong := docEntry(uuid.New(), 100, day, []float32{1, 0})
	weak := docEntry(uuid.New(), 100, day.AddDate(0, 0, 8), []float32{0, 1})

	ranked := r.Rank(mv, rec, vec, []DocumentEntry{weak, strong})
	require.Len(t, ranked.Candidates, 2)
	assert.Equal(t, strong.Document.ID, ranked.Top().Document.ID)
	assert.Equal(t, weak.Document.ID, ranked.NextBest().Document.ID)
	assert.Greater(t, ranked.Top().Score.Composite, ranked.NextBest().Score.Composite)
}

func TestRankTieBreaks(t *testing.T) {
	r := newTestRanker()
	mv := &models.Movement{ID: uuid.New()}
	rec := record(100, day, "mv")
	vec := []float32{1, 0}

	t.Run("smaller amount difference wins", func(t *testing.T) {
		closer := docEntry(uuid.New(), 100.00, day, vec)
		further := docEntry(uuid.New(), 100.50, day, vec)
		// 0.5% off: composite difference is inside the tie epsilon.
		ranked := r.Rank(mv, rec, vec, []DocumentEntry{further, closer})
		assert.Equal(t, closer.Document.ID, ranked.Top().Document.ID)
	})

	t.Run("smaller date difference wins next", func(t *testing.T) {
		sameDay := docEntry(uuid.New(), 100, day, vec)
		dayOff := docEntry(uuid.New(), 100, day.AddDate(0, 0, 1), vec)
		// One day over a ten-day window moves the composite by 0.01,
		// exactly the epsilon, so the date tie-break decides.
		ranked := r.Rank(mv, rec, vec, []DocumentEntry{dayOff, sameDay})
		assert.Equal(t, sameDay.Document.ID, ranked.Top().Document.ID)
	})

	t.Run("lexicographically smaller document id decides exact ties", func(t *testing.T) {
		idA := uuid.MustParse("11111111-1111-1111-1111-111111111111")
		idB := uuid.MustParse("22222222-2222-2222-2222-222222222222")
		a := docEntry(idA, 100, day, vec)
		b := docEntry(idB, 100, day, vec)

		ranked := r.Rank(mv, rec, vec, []DocumentEntry{b, a})
		assert.Equal(t, idA, ranked.Top().Document.ID)

		// Input order must not matter.
		ranked = r.Rank(mv, rec, vec, []DocumentEntry{a, b})
		assert.Equal(t, idA, ranked.Top().Document.ID)
	})
}

func TestRankNoCandidates(t *testing.T) {
	r := newTestRanker()
	mv := &models.Movement{ID: uuid.New()}
	ranked := r.Rank(mv, record(100, day, "mv"), []float32{1, 0}, nil)
	assert.Nil(t, ranked.Top())
	assert.Nil(t, ranked.NextBest())
}
