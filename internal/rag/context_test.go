package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatContext(t *testing.T) {
	got := FormatContext([]RetrievedTransaction{
		{ID: "a", Date: "2024-02-01", Amount: 1250.5, Category: "Groceries", Description: "Supermarket", Score: 0.85},
		{ID: "b", Date: "2024-02-03", Amount: 300, Category: "Cafe", Description: "Coffee", Score: 0.42},
	})

	assert.True(t, strings.HasPrefix(got, "Found 2 relevant transactions:"))
	assert.Contains(t, got, "1. **2024-02-01** - *Groceries*")
	assert.Contains(t, got, "Amount: 1 250.50")
	assert.Contains(t, got, "Description: Supermarket")
	assert.Contains(t, got, "Relevance: 85.0%")
	assert.Contains(t, got, "2. **2024-02-03** - *Cafe*")
	assert.Contains(t, got, "Amount: 300.00")
}

func TestFormatContextEmpty(t *testing.T) {
	assert.Equal(t, noMatchesSentence, FormatContext(nil))
}

func TestGroupThousands(t *testing.T) {
	cases := map[string]string{
		"5":       "5",
		"999":     "999",
		"1000":    "1 000",
		"45000":   "45 000",
		"1234567": "1 234 567",
	}
	for in, want := range cases {
		assert.Equal(t, want, groupThousands(in), "input %s", in)
	}
}
