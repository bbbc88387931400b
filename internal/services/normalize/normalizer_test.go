package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-backend/internal/models"
)

func TestCanonicalText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and strips punctuation", "TELCEL, PAGO. SERV", "telcel pago serv"},
		{"strips diacritics", "Electricidad Pública Ibérica", "electricidad publica iberica"},
		{"collapses whitespace", "  pago   de  servicios ", "pago de servicios"},
		{"drops card masks", "COMPRA ****1234 OXXO", "compra oxxo"},
		{"drops x-style card masks", "COMPRA xxxx9921 OXXO", "compra oxxo"},
		{"drops long transaction codes", "SPEI ENVIADO 0034598201 BANORTE", "spei enviado banorte"},
		{"drops digit-heavy reference codes", "PAGO REF20250811015X TELMEX", "pago telmex"},
		{"keeps short numbers", "SUC 42 PAGO", "suc 42 pago"},
		{"empty after cleanup", "****0001 99887766", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalText(tt.in))
		})
	}
}

func TestMovementFailsClosed(t *testing.T) {
	valid := models.Movement{
		Descriptor:   "TELCEL PAGO SERV",
		Amount:       decimal.NewFromFloat(-740.23),
		MovementDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("valid movement", func(t *testing.T) {
		rec, err := Movement(&valid)
		require.NoError(t, err)
		assert.Equal(t, "telcel pago serv", rec.Text)
		// Amounts are compared in absolute value; the sign only says the
		// money left the account.
		assert.True(t, rec.Amount.Equal(decimal.NewFromFloat(740.23)))
	})

	t.Run("zero amount excluded", func(t *testing.T) {
		m := valid
		m.Amount = decimal.Zero
		_, err := Movement(&m)
		var dataErr *DataError
		require.ErrorAs(t, err, &dataErr)
		assert.Equal(t, "amount", dataErr.Field)
	})

	t.Run("missing date excluded", func(t *testing.T) {
		m := valid
		m.MovementDate = time.Time{}
		_, err := Movement(&m)
		var dataErr *DataError
		require.ErrorAs(t, err, &dataErr)
		assert.Equal(t, "movement_date", dataErr.Field)
	})

	t.Run("descriptor of pure noise excluded", func(t *testing.T) {
		m := valid
		m.Descriptor = "****1234 00953117"
		_, err := Movement(&m)
		require.Error(t, err)
	})
}

func TestDocumentCanonicalRecord(t *testing.T) {
	doc := models.Document{
		CounterpartyName:  "Telcel",
		CounterpartyTaxID: "RFC-TCEL840101",
		Description:       "Servicio de telefonía móvil",
		Amount:            decimal.NewFromFloat(740.23),
		IssueDate:         time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	rec, err := Document(&doc)
	require.NoError(t, err)
	assert.Contains(t, rec.Text, "telcel")
	assert.Contains(t, rec.Text, "telefonia")

	doc.IssueDate = time.Time{}
	_, err = Document(&doc)
	require.Error(t, err)
}
