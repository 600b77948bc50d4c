package utils

import (
	"testing"
)

type mapping struct {
	Label string  `json:"label"`
	Item  string  `json:"item"`
	Conf  float64 `json:"confidence"`
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n[1, 2]\n```", `[1, 2]`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tc := range tests {
		if got := StripCodeFence(tc.in); got != tc.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSmartParseCleanJSON(t *testing.T) {
	var out []mapping
	input := `[{"label": "Net sales", "item": "revenue", "confidence": 0.9}]`
	if err := SmartParse(input, &out); err != nil {
		t.Fatalf("SmartParse failed: %v", err)
	}
	if len(out) != 1 || out[0].Item != "revenue" {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestSmartParseRepairsMalformedJSON(t *testing.T) {
	tests := []string{
		// single quotes
		`[{'label': 'Net sales', 'item': 'revenue', 'confidence': 0.9}]`,
		// trailing comma
		`[{"label": "Net sales", "item": "revenue", "confidence": 0.9},]`,
		// fenced
		"```json\n[{\"label\": \"Net sales\", \"item\": \"revenue\", \"confidence\": 0.9}]\n```",
		// unclosed bracket
		`[{"label": "Net sales", "item": "revenue", "confidence": 0.9}`,
	}
	for _, input := range tests {
		var out []mapping
		if err := SmartParse(input, &out); err != nil {
			t.Errorf("SmartParse(%q) failed: %v", input, err)
			continue
		}
		if len(out) != 1 || out[0].Item != "revenue" {
			t.Errorf("SmartParse(%q): unexpected result %+v", input, out)
		}
	}
	t.Log("✅ SmartParse recovered all malformed variants")
}

func TestSmartParseFailsOnGarbage(t *testing.T) {
	var out []mapping
	if err := SmartParse("I could not find any labels to map.", &out); err == nil {
		t.Error("expected failure on prose input")
	}
}
