package rag

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatContext renders retrieved transactions as the markdown block fed
// to the LLM.
func FormatContext(transactions []RetrievedTransaction) string {
	if len(transactions) == 0 {
		return noMatchesSentence
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant transactions:\n\n", len(transactions))
	for i, t := range transactions {
		fmt.Fprintf(&b, "%d. **%s** - *%s*\n   Amount: %s\n   Description: %s\n   Relevance: %.1f%%\n\n",
			i+1, t.Date, t.Category, formatAmount(t.Amount), t.Description, t.Score*100)
	}
	return b.String()
}

func formatAmount(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	return groupThousands(s[:dot]) + s[dot:]
}

// groupThousands inserts a space every three digits from the right.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
