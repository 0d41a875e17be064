package transaction

import (
	"fmt"
	"strconv"
	"time"
)

// Transaction is one normalized bank transaction. Amount is always the
// absolute value; the sign lives in IsExpense.
type Transaction struct {
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	MCC         string    `json:"mcc,omitempty"`
	Cashback    float64   `json:"cashback"`
	IsExpense   bool      `json:"is_expense"`
}

const dateLayout = "2006-01-02"

func (t Transaction) DateString() string {
	return t.Date.Format(dateLayout)
}

// EmbeddingText renders the transaction into the single descriptive string
// that gets embedded. The template is fixed: changing it invalidates every
// cached embedding batch.
func (t Transaction) EmbeddingText() string {
	text := fmt.Sprintf("%s %s %s %s",
		t.DateString(),
		t.Category,
		t.Description,
		strconv.FormatFloat(t.Amount, 'f', -1, 64),
	)
	if t.MCC != "" {
		text += " MCC:" + t.MCC
	}
	return text
}

// Payload builds the point payload: the transaction fields plus the derived
// filter fields the retrieval side searches on.
func (t Transaction) Payload(userID int64) map[string]any {
	return map[string]any{
		"date":        t.DateString(),
		"amount":      t.Amount,
		"category":    t.Category,
		"description": t.Description,
		"mcc":         t.MCC,
		"cashback":    t.Cashback,
		"is_expense":  t.IsExpense,
		"user_id":     userID,
		"year":        t.Date.Year(),
		"month":       int(t.Date.Month()),
		"quarter":     (int(t.Date.Month())-1)/3 + 1,
		"day_of_week": weekdayMondayFirst(t.Date),
	}
}

// weekdayMondayFirst maps Monday..Sunday to 0..6.
func weekdayMondayFirst(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}
