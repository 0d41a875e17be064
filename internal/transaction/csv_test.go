package transaction

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	src := strings.Join([]string{
		"Date;Amount;Category;Description;MCC;Cashback",
		"01.02.2024 14:30:00;-1250,50;Groceries;Supermarket;5411;12,50",
		"2024-02-03;-300;Cafe;Coffee shop;;",
		"05.02.2024;45000;Salary;Monthly salary;;",
	}, "\n")

	got, err := ParseCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "2024-02-01", first.DateString())
	assert.Equal(t, 1250.50, first.Amount)
	assert.True(t, first.IsExpense)
	assert.Equal(t, "Groceries", first.Category)
	assert.Equal(t, "Supermarket", first.Description)
	assert.Equal(t, "5411", first.MCC)
	assert.Equal(t, 12.50, first.Cashback)

	assert.Equal(t, "2024-02-03", got[1].DateString())
	assert.True(t, got[1].IsExpense)
	assert.Empty(t, got[1].MCC)

	salary := got[2]
	assert.False(t, salary.IsExpense)
	assert.Equal(t, 45000.0, salary.Amount)
}

func TestParseCSVMissingColumn(t *testing.T) {
	src := "Date;Amount;Description\n01.02.2024;-10;x\n"

	_, err := ParseCSV(strings.NewReader(src))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "Category")
}

func TestParseCSVSkipsBadRows(t *testing.T) {
	src := strings.Join([]string{
		"Date;Amount;Category;Description",
		"not-a-date;-10;Cafe;bad date",
		"01.02.2024;not-a-number;Cafe;bad amount",
		"01.02.2024;-10;Cafe;good row",
	}, "\n")

	got, err := ParseCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good row", got[0].Description)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	src := "Date;Amount;Category;Description\n"

	got, err := ParseCSV(strings.NewReader(src))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseCSVBadCashbackDefaultsToZero(t *testing.T) {
	src := strings.Join([]string{
		"Date;Amount;Category;Description;Cashback",
		"01.02.2024;-10;Cafe;coffee;abc",
	}, "\n")

	got, err := ParseCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Cashback)
}
