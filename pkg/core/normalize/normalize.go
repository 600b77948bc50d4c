// Package normalize converts raw statement cells into signed numeric values
// at a single consistent scale.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fincanon/pkg/core/edgar"
	"fincanon/pkg/core/extract"
)

// NormalizedRow is a RawRow with cells parsed into plain-unit values.
// A nil value means the cell was empty or a recognized placeholder.
type NormalizedRow struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

// NormalizedTable is the normalizer's output: every value multiplied out to
// units, with the detected scale recorded as metadata.
type NormalizedTable struct {
	Filing         edgar.Filing        `json:"filing"`
	StatementType  edgar.StatementType `json:"statement_type"`
	PeriodLabels   []string            `json:"period_labels"`
	Rows           []NormalizedRow     `json:"rows"`
	ScaleFactor    float64             `json:"scale_factor"`
	ScaleConfident bool                `json:"scale_confident"`
	Currency       string              `json:"currency"`
}

// NumericParseError is a cell-level failure: the cell was non-empty, not a
// placeholder, and not numeric after stripping. It is recorded per cell and
// never aborts the row.
type NumericParseError struct {
	Label  string
	Period string
	Cell   string
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("normalize: unparseable cell %q (row %q, period %q)", e.Cell, e.Label, e.Period)
}

// CellWarning wraps a NumericParseError collected during normalization.
type CellWarning struct {
	Row    string `json:"row"`
	Period string `json:"period"`
	Cell   string `json:"cell"`
}

// Normalizer detects the reporting scale of a RawTable and parses its cells.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize parses every cell of the raw table, applies the detected scale,
// and returns the normalized table plus per-cell warnings for cells that
// could not be parsed.
func (n *Normalizer) Normalize(raw *extract.RawTable) (*NormalizedTable, []CellWarning) {
	factor, _, confident := DetectScale(raw.Caption)

	out := &NormalizedTable{
		Filing:         raw.Filing,
		StatementType:  raw.StatementType,
		PeriodLabels:   raw.PeriodLabels,
		ScaleFactor:    factor,
		ScaleConfident: confident,
		Currency:       detectCurrency(raw.Caption),
	}

	var warnings []CellWarning
	for _, row := range raw.Rows {
		nr := NormalizedRow{Label: row.Label, Values: make([]*float64, len(row.Cells))}
		for i, cell := range row.Cells {
			val, err := ParseCell(cell)
			if err != nil {
				period := ""
				if i < len(raw.PeriodLabels) {
					period = raw.PeriodLabels[i]
				}
				warnings = append(warnings, CellWarning{Row: row.Label, Period: period, Cell: cell})
				continue
			}
			if val != nil {
				scaled := *val * factor
				nr.Values[i] = &scaled
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, warnings
}

// DetectScale finds the reporting scale declared in a table caption or
// nearby context. Returns the factor, a unit name, and whether the
// detection is confident (false means the "units" default was assumed).
func DetectScale(text string) (float64, string, bool) {
	t := strings.ToLower(text)

	switch {
	case strings.Contains(t, "billion"):
		return 1e9, "billions", true
	case strings.Contains(t, "million"):
		return 1e6, "millions", true
	case strings.Contains(t, "thousand"), strings.Contains(t, "000s"):
		return 1e3, "thousands", true
	}
	return 1, "units", false
}

func detectCurrency(text string) string {
	switch {
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	case strings.Contains(text, "¥"):
		return "JPY"
	}
	return "USD"
}

// placeholders that mean "no value", not zero
var nullCells = map[string]bool{
	"-": true, "–": true, "—": true, "*": true,
	"n/a": true, "na": true, "nm": true, "nil": true,
}

var (
	monthPattern = regexp.MustCompile(`(?i)jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`)
	datePattern  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
	numberChars  = regexp.MustCompile(`^-?[\d.]+$`)
)

// ParseCell converts one raw cell into a value.
// Returns (nil, nil) for empty cells and recognized placeholders,
// (value, nil) for numbers (parentheses negate), and a *NumericParseError
// for anything else.
func ParseCell(s string) (*float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || nullCells[strings.ToLower(trimmed)] {
		return nil, nil
	}

	// date-like cells are header spillover, treat as null
	if monthPattern.MatchString(trimmed) || datePattern.MatchString(trimmed) {
		return nil, nil
	}

	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "", "%", "").Replace(trimmed)

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.Trim(cleaned, "()")
	}

	if !numberChars.MatchString(cleaned) {
		return nil, &NumericParseError{Cell: s}
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, &NumericParseError{Cell: s}
	}
	if negative {
		val = -val
	}
	return &val, nil
}
