package transaction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a source that could not be parsed into transactions
// at all: missing required column, broken CSV structure. Rows that fail
// individually are skipped with a warning instead.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse transactions: %s: %v", e.Reason, e.Err)
	}
	return "parse transactions: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

var requiredColumns = []string{"Date", "Amount", "Category", "Description"}

var dateLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCSV reads a ;-separated transaction export. A structurally broken
// source returns *ParseError; a well-formed source with no usable rows
// returns an empty slice and nil error, so callers can tell the two apart.
func ParseCSV(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &ParseError{Reason: "read header", Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("missing column %q", name)}
		}
	}

	var (
		transactions []Transaction
		skipped      int
	)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("read row %d", line), Err: err}
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		dateStr := field("Date")
		if dateStr == "" {
			skipped++
			continue
		}
		date, ok := parseDate(dateStr)
		if !ok {
			slog.Warn("skipping row with unparseable date", "row", line, "date", dateStr)
			skipped++
			continue
		}

		amount, err := parseAmount(field("Amount"))
		if err != nil {
			slog.Warn("skipping row with unparseable amount", "row", line, "amount", field("Amount"))
			skipped++
			continue
		}

		cashback, err := parseAmount(field("Cashback"))
		if err != nil {
			cashback = 0
		}

		transactions = append(transactions, Transaction{
			Date:        date,
			Amount:      math.Abs(amount),
			Category:    field("Category"),
			Description: field("Description"),
			MCC:         field("MCC"),
			Cashback:    cashback,
			IsExpense:   amount < 0,
		})
	}

	if skipped > 0 {
		slog.Warn("skipped rows during CSV parse", "skipped", skipped, "parsed", len(transactions))
	}
	return transactions, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
