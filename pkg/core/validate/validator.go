// Package validate checks canonical statements against arithmetic
// identities and repairs unambiguous gaps. Data quality problems become
// diagnostics, never errors.
package validate

import (
	"fmt"
	"math"
	"regexp"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"fincanon/pkg/core/canonical"
)

// relTolerance is the relative mismatch allowed before an identity is
// flagged. Rounding in filings makes exact equality unrealistic.
const relTolerance = 0.01

// Flag records one failed identity check for one period.
type Flag struct {
	Rule     string  `json:"rule"`
	Period   string  `json:"period"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Message  string  `json:"message"`
}

// Repair records one value filled in from an identity.
type Repair struct {
	Rule   string             `json:"rule"`
	Period string             `json:"period"`
	Item   canonical.LineItem `json:"item"`
	Value  float64            `json:"value"`
}

// Diagnostics is the validator's report for one statement.
type Diagnostics struct {
	RunID        uuid.UUID `json:"run_id"`
	Completeness float64   `json:"completeness"`
	Flags        []Flag    `json:"flags"`
	Repairs      []Repair  `json:"repairs"`
	Warnings     []string  `json:"warnings"`
}

// Validator runs identity checks and repairs over canonical statements.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks stmt in place. Repairs mutate stmt.Items; everything
// else is reported through the returned diagnostics.
func (v *Validator) Validate(stmt *canonical.CanonicalStatement) *Diagnostics {
	diag := &Diagnostics{RunID: uuid.New()}

	diag.Completeness = completeness(stmt)
	diag.Warnings = append(diag.Warnings, periodWarnings(stmt.PeriodLabels)...)

	for _, rule := range Rules(stmt.StatementType) {
		for period := range stmt.PeriodLabels {
			v.applyRule(stmt, rule, period, diag)
		}
	}

	if len(diag.Flags) > 0 {
		log.Info().Str("accession", stmt.Filing.AccessionNumber).Str("statement", string(stmt.StatementType)).Int("flags", len(diag.Flags)).Msg("arithmetic identities violated")
	}
	return diag
}

// applyRule checks one identity for one period index. When exactly one
// participant is missing the identity determines it, so it is repaired;
// with two or more missing the rule is silently skipped.
func (v *Validator) applyRule(stmt *canonical.CanonicalStatement, rule ArithmeticRule, period int, diag *Diagnostics) {
	target, targetOK := itemValue(stmt, rule.Target, period)

	sum := 0.0
	var missing []canonical.LineItem
	for _, term := range rule.Terms {
		val, ok := itemValue(stmt, term.Item, period)
		if !ok {
			if term.Optional {
				continue
			}
			missing = append(missing, term.Item)
			continue
		}
		sum += term.Sign * val
	}

	label := periodLabel(stmt, period)

	switch {
	case targetOK && len(missing) == 0:
		if !withinTolerance(target, sum) {
			diag.Flags = append(diag.Flags, Flag{
				Rule: rule.Name, Period: label, Expected: sum, Actual: target,
				Message: fmt.Sprintf("%s: %s is %g, terms sum to %g", rule.Name, rule.Target, target, sum),
			})
		}

	case targetOK && len(missing) == 1:
		// solve for the single missing term
		var sign float64
		for _, term := range rule.Terms {
			if term.Item == missing[0] {
				sign = term.Sign
			}
		}
		value := (target - sum) / sign
		setItemValue(stmt, missing[0], period, value)
		diag.Repairs = append(diag.Repairs, Repair{Rule: rule.Name, Period: label, Item: missing[0], Value: value})

	case !targetOK && len(missing) == 0:
		setItemValue(stmt, rule.Target, period, sum)
		diag.Repairs = append(diag.Repairs, Repair{Rule: rule.Name, Period: label, Item: rule.Target, Value: sum})
	}
}

func withinTolerance(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		return diff < 1
	}
	return diff/scale <= relTolerance
}

func completeness(stmt *canonical.CanonicalStatement) float64 {
	required := canonical.Required(stmt.StatementType)
	if len(required) == 0 {
		return 1
	}
	present := 0
	for _, item := range required {
		if _, ok := stmt.Items[item]; ok {
			present++
		}
	}
	return float64(present) / float64(len(required))
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// periodWarnings flags duplicate period labels and out-of-order years.
// EDGAR tables list the most recent period first.
func periodWarnings(labels []string) []string {
	var warnings []string

	seen := make(map[string]bool)
	for _, label := range labels {
		if seen[label] {
			warnings = append(warnings, fmt.Sprintf("duplicate period label %q", label))
		}
		seen[label] = true
	}

	var years []string
	for _, label := range labels {
		if y := yearPattern.FindString(label); y != "" {
			years = append(years, y)
		}
	}
	for i := 1; i < len(years); i++ {
		if years[i] > years[i-1] {
			warnings = append(warnings, fmt.Sprintf("period years not in descending order: %q before %q", years[i-1], years[i]))
			break
		}
	}

	return warnings
}

func itemValue(stmt *canonical.CanonicalStatement, item canonical.LineItem, period int) (float64, bool) {
	values, ok := stmt.Items[item]
	if !ok || period >= len(values) || values[period] == nil {
		return 0, false
	}
	return *values[period], true
}

func setItemValue(stmt *canonical.CanonicalStatement, item canonical.LineItem, period int, value float64) {
	values, ok := stmt.Items[item]
	if !ok {
		values = make([]*float64, len(stmt.PeriodLabels))
		stmt.Items[item] = values
	}
	if period < len(values) {
		values[period] = &value
	}
}

func periodLabel(stmt *canonical.CanonicalStatement, period int) string {
	if period < len(stmt.PeriodLabels) {
		return stmt.PeriodLabels[period]
	}
	return fmt.Sprintf("period %d", period)
}
