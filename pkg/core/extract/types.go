// Package extract locates financial statement tables in EDGAR filing HTML
// and parses them into raw row/column records.
package extract

import (
	"fmt"

	"fincanon/pkg/core/edgar"
)

// RawRow is one labeled statement row with one raw cell per period column.
// Cells keep their original formatting (parentheses, dashes, footnote marks).
type RawRow struct {
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

// RawTable is the extractor's output for a single statement.
// Invariant: len(row.Cells) == len(PeriodLabels) for every row.
type RawTable struct {
	Filing        edgar.Filing       `json:"filing"`
	StatementType edgar.StatementType `json:"statement_type"`
	Caption       string             `json:"caption"` // table caption + nearby context, kept for scale detection
	PeriodLabels  []string           `json:"period_labels"`
	Rows          []RawRow           `json:"rows"`
}

// Warning records a recoverable anomaly encountered during extraction.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SectionNotFoundError indicates no table in the document scored above the
// relevance threshold for a statement type.
type SectionNotFoundError struct {
	StatementType edgar.StatementType
	BestScore     float64
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("extract: no %s section found (best relevance %.2f)", e.StatementType, e.BestScore)
}

// TableMalformedError indicates a located table could not be repaired into a
// rectangular structure.
type TableMalformedError struct {
	StatementType edgar.StatementType
	Reason        string
}

func (e *TableMalformedError) Error() string {
	return fmt.Sprintf("extract: %s table malformed: %s", e.StatementType, e.Reason)
}
