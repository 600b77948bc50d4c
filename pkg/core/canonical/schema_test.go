package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fincanon/pkg/core/edgar"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Total Revenue", "total revenue"},
		{"Net sales", "net sales"},
		{"Net income (loss)", "net income loss"},
		{"Cost of sales (1)", "cost of sales"},
		{"Research and development (a)", "research and development"},
		{"Total stockholders’ equity", "total stockholders equity"},
		{"Other income/(expense), net", "other income expense net"},
		{"  Accounts   receivable,  net  ", "accounts receivable net"},
		{"Goodwill*", "goodwill"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeLabel(tc.in), "NormalizeLabel(%q)", tc.in)
	}
}

func TestLookupAlias(t *testing.T) {
	tests := []struct {
		st    edgar.StatementType
		label string
		want  LineItem
	}{
		{edgar.IncomeStatement, "Total Revenue", Revenue},
		{edgar.IncomeStatement, "Net sales", Revenue},
		{edgar.IncomeStatement, "Provision for income taxes", IncomeTaxExpense},
		{edgar.IncomeStatement, "Net income (loss)", NetIncome},
		{edgar.BalanceSheet, "Total stockholders’ equity", TotalEquity},
		{edgar.BalanceSheet, "Cash and cash equivalents", CashAndEquivalents},
		{edgar.CashFlow, "Net cash provided by operating activities", NetCashOperating},
		{edgar.CashFlow, "Payments for dividends and dividend equivalents", DividendsPaid},
	}
	for _, tc := range tests {
		item, ok := LookupAlias(tc.st, tc.label)
		assert.True(t, ok, "LookupAlias(%s, %q) should match", tc.st, tc.label)
		assert.Equal(t, tc.want, item, "LookupAlias(%s, %q)", tc.st, tc.label)
	}
}

func TestLookupAliasMiss(t *testing.T) {
	_, ok := LookupAlias(edgar.IncomeStatement, "Adjusted community EBITDA")
	assert.False(t, ok)

	// statement scoping: a balance sheet alias must not leak into income
	_, ok = LookupAlias(edgar.IncomeStatement, "Total assets")
	assert.False(t, ok)
}

func TestTaxonomyTables(t *testing.T) {
	for _, st := range edgar.AllStatementTypes {
		assert.NotEmpty(t, Items(st), "taxonomy for %s", st)
		for _, item := range Required(st) {
			assert.True(t, IsValid(st, item), "required item %s must be in %s taxonomy", item, st)
		}
	}
	assert.True(t, IsValid(edgar.CashFlow, NetIncome))
	assert.False(t, IsValid(edgar.BalanceSheet, Revenue))
}

func TestEveryItemHasDescription(t *testing.T) {
	for _, st := range edgar.AllStatementTypes {
		for _, item := range Items(st) {
			assert.NotEmpty(t, Describe(item), "description for %s", item)
		}
	}
}
