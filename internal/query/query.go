// Package query derives the visible rows and their totals from a record
// collection and a status plus text filter.
package query

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maruel/recordbook/internal/models"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// searchFields are the fields matched by the free-text query.
var searchFields = []string{
	models.FieldCode,
	models.FieldCustomer,
	models.FieldAmount,
	models.FieldNote,
	models.FieldPhone,
}

// State is the user's current filter.
type State struct {
	// Query is matched case-insensitively as a substring. Empty matches all.
	Query string `json:"q"`
	// Status must equal the record's status exactly. Empty or StatusAll
	// matches all.
	Status string `json:"status"`
}

// Totals aggregates the visible rows.
type Totals struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Result is the outcome of a query.
type Result struct {
	Rows   []models.Record `json:"rows"`
	Totals Totals          `json:"totals"`
}

// Run filters records by status then by text, keeping their order, and
// totals the rows that remain.
func Run(records []models.Record, st State) Result {
	rows := make([]models.Record, 0, len(records))
	q := strings.ToLower(st.Query)
	for _, r := range records {
		if matchesStatus(r, st.Status) && matchesText(r, q) {
			rows = append(rows, r)
		}
	}
	return Result{Rows: rows, Totals: Total(rows)}
}

func matchesStatus(r models.Record, status string) bool {
	if status == "" || status == StatusAll {
		return true
	}
	return r.Text(models.FieldStatus) == status
}

// matchesText expects q to be lowercased already.
func matchesText(r models.Record, q string) bool {
	if q == "" {
		return true
	}
	for _, k := range searchFields {
		if strings.Contains(strings.ToLower(r.Text(k)), q) {
			return true
		}
	}
	return false
}

// Total counts records and sums their amount. Non-numeric or missing amounts
// count as 0.
func Total(records []models.Record) Totals {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(decimal.NewFromFloat(models.NumberValue(r.Value(models.FieldAmount))))
	}
	return Totals{Count: len(records), Amount: sum.InexactFloat64()}
}

// CountByStatus returns the number of records whose status is status.
// StatusAll counts every record.
func CountByStatus(records []models.Record, status string) int {
	if status == StatusAll {
		return len(records)
	}
	n := 0
	for _, r := range records {
		if r.Text(models.FieldStatus) == status {
			n++
		}
	}
	return n
}
