package normalize

import (
	"errors"
	"testing"

	"fincanon/pkg/core/edgar"
	"fincanon/pkg/core/extract"
)

func floatPtr(f float64) *float64 { return &f }

func TestParseCell(t *testing.T) {
	tests := []struct {
		input    string
		expected *float64
	}{
		{"1,234", floatPtr(1234)},
		{"(1,234)", floatPtr(-1234)},
		{"$ 391,035", floatPtr(391035)},
		{"(5,000)", floatPtr(-5000)},
		{"-3,500", floatPtr(-3500)},
		{"$1,234.56", floatPtr(1234.56)},
		{"1.5", floatPtr(1.5)},
		{"6.11", floatPtr(6.11)},
		{"€2,000", floatPtr(2000)},
		{"45.2%", floatPtr(45.2)},
		{"0", floatPtr(0)},
		{"", nil},
		{"-", nil},
		{"—", nil},
		{"–", nil},
		{"*", nil},
		{"N/A", nil},
		{"n/a", nil},
		{"nm", nil},
		{"September 28, 2024", nil},
		{"12/31/2024", nil},
	}

	for _, tc := range tests {
		result, err := ParseCell(tc.input)
		if err != nil {
			t.Errorf("ParseCell(%q): unexpected error %v", tc.input, err)
			continue
		}
		if tc.expected == nil {
			if result != nil {
				t.Errorf("ParseCell(%q): expected nil, got %f", tc.input, *result)
			}
		} else if result == nil {
			t.Errorf("ParseCell(%q): expected %f, got nil", tc.input, *tc.expected)
		} else if *result != *tc.expected {
			t.Errorf("ParseCell(%q): expected %f, got %f", tc.input, *tc.expected, *result)
		}
	}
	t.Log("✅ ParseCell passed all cases")
}

func TestParseCellRejectsGarbage(t *testing.T) {
	for _, input := range []string{"abc", "12abc", "see note 4"} {
		_, err := ParseCell(input)
		var npe *NumericParseError
		if !errors.As(err, &npe) {
			t.Errorf("ParseCell(%q): expected *NumericParseError, got %v", input, err)
		}
	}
}

func TestDetectScale(t *testing.T) {
	tests := []struct {
		text      string
		factor    float64
		confident bool
	}{
		{"(In millions, except per share amounts)", 1e6, true},
		{"Amounts in thousands", 1e3, true},
		{"(in 000s)", 1e3, true},
		{"$ in billions", 1e9, true},
		{"CONSOLIDATED BALANCE SHEETS", 1, false},
		{"", 1, false},
	}
	for _, tc := range tests {
		factor, _, confident := DetectScale(tc.text)
		if factor != tc.factor || confident != tc.confident {
			t.Errorf("DetectScale(%q) = (%g, %v), want (%g, %v)", tc.text, factor, confident, tc.factor, tc.confident)
		}
	}
}

func TestNormalizeAppliesScale(t *testing.T) {
	raw := &extract.RawTable{
		Filing:        edgar.Filing{AccessionNumber: "0000320193-24-000123"},
		StatementType: edgar.IncomeStatement,
		Caption:       "(In millions, except per share data)",
		PeriodLabels:  []string{"2024", "2023"},
		Rows: []extract.RawRow{
			{Label: "Net sales", Cells: []string{"1.5", "1.2"}},
			{Label: "Cost of sales", Cells: []string{"(0.9)", "(0.7)"}},
			{Label: "Deferred item", Cells: []string{"-", "100"}},
		},
	}

	table, warnings := NewNormalizer().Normalize(raw)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if table.ScaleFactor != 1e6 || !table.ScaleConfident {
		t.Fatalf("scale detection failed: factor=%g confident=%v", table.ScaleFactor, table.ScaleConfident)
	}
	if table.Currency != "USD" {
		t.Errorf("currency = %s, want USD default", table.Currency)
	}

	// "1.5" in a millions table is 1,500,000 in plain units
	if got := *table.Rows[0].Values[0]; got != 1500000 {
		t.Errorf("Net sales[0] = %f, want 1500000", got)
	}
	if got := *table.Rows[1].Values[0]; got != -900000 {
		t.Errorf("Cost of sales[0] = %f, want -900000", got)
	}

	// dash placeholder stays null, it is not zero
	if table.Rows[2].Values[0] != nil {
		t.Errorf("dash cell should be nil, got %f", *table.Rows[2].Values[0])
	}
	if table.Rows[2].Values[1] == nil || *table.Rows[2].Values[1] != 100000000 {
		t.Error("numeric cell next to a placeholder should still scale")
	}
	t.Log("✅ scale application passed")
}

func TestNormalizeCollectsCellWarnings(t *testing.T) {
	raw := &extract.RawTable{
		StatementType: edgar.BalanceSheet,
		PeriodLabels:  []string{"2024"},
		Rows: []extract.RawRow{
			{Label: "Total assets", Cells: []string{"see note 12"}},
		},
	}

	table, warnings := NewNormalizer().Normalize(raw)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].Row != "Total assets" || warnings[0].Period != "2024" {
		t.Errorf("warning should identify row and period: %+v", warnings[0])
	}
	if table.Rows[0].Values[0] != nil {
		t.Error("unparseable cell must stay nil")
	}
}
