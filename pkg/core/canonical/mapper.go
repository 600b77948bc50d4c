package canonical

import (
	"context"

	"github.com/phuslu/log"

	"fincanon/pkg/core/edgar"
	"fincanon/pkg/core/normalize"
)

// CanonicalStatement is the pipeline's final output shape for one
// (filing, statement type) pair. Value slices align with PeriodLabels.
type CanonicalStatement struct {
	Filing        edgar.Filing           `json:"filing"`
	StatementType edgar.StatementType    `json:"statement_type"`
	PeriodLabels  []string               `json:"period_labels"`
	Items         map[LineItem][]*float64 `json:"items"`
	Confidence    map[LineItem]float64   `json:"confidence"`
	Unmapped      []UnmappedRow          `json:"unmapped"`
	ScaleFactor   float64                `json:"scale_factor"`
	Currency      string                 `json:"currency"`
}

// UnmappedRow keeps a raw row that did not make it into Items, for audit.
type UnmappedRow struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
	Reason string     `json:"reason"`
}

// MapRequest is the input to one mapping stage: the labels still needing a
// canonical item, with already-resolved siblings as context.
type MapRequest struct {
	StatementType  edgar.StatementType
	Labels         []string
	MappedSiblings map[string]LineItem
}

// Candidate is a stage's proposal for one label.
type Candidate struct {
	Item       LineItem
	Confidence float64
}

// Stage is one strategy in the mapping chain. A label absent from the
// result map means the stage defers to the next one.
type Stage interface {
	Name() string
	Map(ctx context.Context, req MapRequest) (map[string]Candidate, error)
}

// Mapper applies an ordered chain of mapping stages to a normalized table.
type Mapper struct {
	stages []Stage
}

// NewMapper builds a mapper from stages applied in order. The conventional
// chain is NewRuleStage() then NewLLMStage(provider).
func NewMapper(stages ...Stage) *Mapper {
	return &Mapper{stages: stages}
}

// Map assigns canonical items to the table's rows. Stage failures degrade
// to unmapped rows; they never abort the statement.
func (m *Mapper) Map(ctx context.Context, table *normalize.NormalizedTable) *CanonicalStatement {
	stmt := &CanonicalStatement{
		Filing:        table.Filing,
		StatementType: table.StatementType,
		PeriodLabels:  table.PeriodLabels,
		Items:         make(map[LineItem][]*float64),
		Confidence:    make(map[LineItem]float64),
		ScaleFactor:   table.ScaleFactor,
		Currency:      table.Currency,
	}

	rowsByLabel := make(map[string]normalize.NormalizedRow, len(table.Rows))
	var pending []string
	for _, row := range table.Rows {
		if _, seen := rowsByLabel[row.Label]; seen {
			// duplicate raw labels are ambiguous; audit them instead of guessing
			stmt.Unmapped = append(stmt.Unmapped, UnmappedRow{
				Label: row.Label, Values: row.Values, Reason: "duplicate raw label",
			})
			continue
		}
		rowsByLabel[row.Label] = row
		pending = append(pending, row.Label)
	}

	order := append([]string(nil), pending...)
	assigned := make(map[string]Candidate)
	siblings := make(map[string]LineItem)

	for _, stage := range m.stages {
		if len(pending) == 0 {
			break
		}

		req := MapRequest{
			StatementType:  table.StatementType,
			Labels:         pending,
			MappedSiblings: siblings,
		}
		result, err := stage.Map(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("stage", stage.Name()).Str("statement", string(table.StatementType)).Msg("mapping stage failed, labels remain unmapped")
			continue
		}

		var remaining []string
		for _, label := range pending {
			cand, ok := result[label]
			if !ok || cand.Item == "" {
				remaining = append(remaining, label)
				continue
			}
			if !IsValid(table.StatementType, cand.Item) {
				remaining = append(remaining, label)
				continue
			}
			assigned[label] = cand
			siblings[label] = cand.Item
		}
		pending = remaining
	}

	// Resolve duplicate canonical hits in statement row order: higher
	// confidence wins, an equal-confidence tie keeps the earlier row, and
	// losers are retained for audit rather than discarded.
	winners := make(map[LineItem]string)
	for _, label := range order {
		cand, ok := assigned[label]
		if !ok {
			continue
		}
		current, taken := winners[cand.Item]
		if !taken {
			winners[cand.Item] = label
			continue
		}
		loser := label
		if cand.Confidence > assigned[current].Confidence {
			winners[cand.Item] = label
			loser = current
		}
		row := rowsByLabel[loser]
		stmt.Unmapped = append(stmt.Unmapped, UnmappedRow{
			Label: row.Label, Values: row.Values,
			Reason: "lost duplicate mapping to " + string(cand.Item),
		})
	}

	for item, label := range winners {
		stmt.Items[item] = rowsByLabel[label].Values
		stmt.Confidence[item] = assigned[label].Confidence
	}

	for _, label := range pending {
		row := rowsByLabel[label]
		stmt.Unmapped = append(stmt.Unmapped, UnmappedRow{
			Label: row.Label, Values: row.Values, Reason: "no mapping",
		})
	}

	return stmt
}
