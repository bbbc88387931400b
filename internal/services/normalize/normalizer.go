package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"invoice-reconciliation-backend/internal/models"
)

// Record is the canonical form of a movement or document used for
// matching: the cleaned descriptor text plus the numeric/date tuple.
type Record struct {
	Text   string
	Amount decimal.Decimal
	Date   time.Time
}

// DataError marks a record as unusable for matching: the record is
// excluded and logged, never defaulted to zero/now.
type DataError struct {
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Movement builds the canonical record for a bank-statement line.
func Movement(m *models.Movement) (Record, error) {
	if m.Amount.IsZero() {
		return Record{}, &DataError{Field: "amount", Reason: "missing or zero"}
	}
	if m.MovementDate.IsZero() {
		return Record{}, &DataError{Field: "movement_date", Reason: "missing"}
	}
	text := CanonicalText(m.Descriptor)
	if text == "" {
		return Record{}, &DataError{Field: "descriptor", Reason: "empty after normalization"}
	}
	return Record{Text: text, Amount: m.Amount.Abs(), Date: m.MovementDate}, nil
}

// Document builds the canonical record for an invoice. Counterparty name,
// tax id and description are folded into one text so the descriptor of a
// payment embeds close to the invoice it settles.
func Document(d *models.Document) (Record, error) {
	if d.Amount.IsZero() {
		return Record{}, &DataError{Field: "amount", Reason: "missing or zero"}
	}
	if d.IssueDate.IsZero() {
		return Record{}, &DataError{Field: "issue_date", Reason: "missing"}
	}
	text := CanonicalText(strings.Join([]string{d.CounterpartyName, d.CounterpartyTaxID, d.Description}, " "))
	if text == "" {
		return Record{}, &DataError{Field: "counterparty", Reason: "empty after normalization"}
	}
	return Record{Text: text, Amount: d.Amount.Abs(), Date: d.IssueDate}, nil
}

var (
	punctRe    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	cardMaskRe = regexp.MustCompile(`^[*x]+[0-9]{2,4}$`)
	txCodeRe   = regexp.MustCompile(`^[0-9]{6,}$`)
	deaccenter = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// CanonicalText lower-cases, strips diacritics and punctuation, drops
// noise tokens (card masks, long transaction codes) and collapses
// whitespace, so textually similar entities embed close together
// regardless of bank formatting.
func CanonicalText(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(deaccenter, s); err == nil {
		s = folded
	}

	var kept []string
	for _, tok := range strings.Fields(s) {
		// Card masks must be recognized before their asterisks are
		// stripped as punctuation.
		if cardMaskRe.MatchString(tok) {
			continue
		}
		for _, sub := range strings.Fields(punctRe.ReplaceAllString(tok, " ")) {
			if isNoiseToken(sub) {
				continue
			}
			kept = append(kept, sub)
		}
	}
	return strings.Join(kept, " ")
}

func isNoiseToken(tok string) bool {
	if cardMaskRe.MatchString(tok) || txCodeRe.MatchString(tok) {
		return true
	}
	// Reference codes: long alphanumeric tokens that are mostly digits.
	if len(tok) >= 8 {
		digits := 0
		for _, r := range tok {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if float64(digits)/float64(len(tok)) >= 0.7 {
			return true
		}
	}
	return false
}
