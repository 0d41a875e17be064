package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() Transaction {
	return Transaction{
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount:      1250.50,
		Category:    "Groceries",
		Description: "Supermarket",
		MCC:         "5411",
		Cashback:    12.5,
		IsExpense:   true,
	}
}

func TestPointIDDeterministic(t *testing.T) {
	tx := sampleTransaction()

	first := PointID(7, tx)
	second := PointID(7, tx)
	assert.Equal(t, first, second)

	_, err := uuid.Parse(first)
	require.NoError(t, err)
}

func TestPointIDScopedToUser(t *testing.T) {
	tx := sampleTransaction()
	assert.NotEqual(t, PointID(1, tx), PointID(2, tx))
}

func TestPointIDIgnoresMCCAndCashback(t *testing.T) {
	tx := sampleTransaction()
	other := tx
	other.MCC = ""
	other.Cashback = 0

	// Same identifying fields map to the same point so re-uploads
	// overwrite instead of duplicating.
	assert.Equal(t, PointID(7, tx), PointID(7, other))
}

func TestPointIDChangesWithIdentifyingFields(t *testing.T) {
	tx := sampleTransaction()
	base := PointID(7, tx)

	changed := tx
	changed.Amount = 1250.51
	assert.NotEqual(t, base, PointID(7, changed))

	changed = tx
	changed.Description = "Another store"
	assert.NotEqual(t, base, PointID(7, changed))
}

func TestPayloadDerivedFields(t *testing.T) {
	tx := sampleTransaction() // 2024-02-01 is a Thursday
	payload := tx.Payload(7)

	assert.Equal(t, int64(7), payload["user_id"])
	assert.Equal(t, 2024, payload["year"])
	assert.Equal(t, 2, payload["month"])
	assert.Equal(t, 1, payload["quarter"])
	assert.Equal(t, 3, payload["day_of_week"])
	assert.Equal(t, "2024-02-01", payload["date"])
}

func TestEmbeddingText(t *testing.T) {
	tx := sampleTransaction()
	assert.Equal(t, "2024-02-01 Groceries Supermarket 1250.5 MCC:5411", tx.EmbeddingText())

	tx.MCC = ""
	assert.Equal(t, "2024-02-01 Groceries Supermarket 1250.5", tx.EmbeddingText())
}
