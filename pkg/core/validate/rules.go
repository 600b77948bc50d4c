package validate

import (
	"fincanon/pkg/core/canonical"
	"fincanon/pkg/core/edgar"
)

// Term is one signed operand of an arithmetic identity. Optional terms are
// treated as zero when absent; a missing required term makes the rule the
// candidate for repair instead.
type Term struct {
	Item     canonical.LineItem
	Sign     float64
	Optional bool
}

// ArithmeticRule is one identity of the form target = Σ sign·term,
// checked independently per period.
type ArithmeticRule struct {
	Name   string
	Target canonical.LineItem
	Terms  []Term
}

// arithmeticRules declares the identities checked per statement type.
// Extending coverage means adding rows here, not validator branches.
var arithmeticRules = map[edgar.StatementType][]ArithmeticRule{
	edgar.IncomeStatement: {
		{
			Name:   "gross_profit_identity",
			Target: canonical.GrossProfit,
			Terms: []Term{
				{Item: canonical.Revenue, Sign: 1},
				{Item: canonical.CostOfRevenue, Sign: -1},
			},
		},
		{
			Name:   "net_income_identity",
			Target: canonical.NetIncome,
			Terms: []Term{
				{Item: canonical.PretaxIncome, Sign: 1},
				{Item: canonical.IncomeTaxExpense, Sign: -1},
			},
		},
	},
	edgar.BalanceSheet: {
		{
			Name:   "balance_identity",
			Target: canonical.TotalAssets,
			Terms: []Term{
				{Item: canonical.TotalLiabilities, Sign: 1},
				{Item: canonical.TotalEquity, Sign: 1},
			},
		},
		{
			Name:   "liabilities_equity_identity",
			Target: canonical.TotalLiabilitiesEquity,
			Terms: []Term{
				{Item: canonical.TotalLiabilities, Sign: 1},
				{Item: canonical.TotalEquity, Sign: 1},
			},
		},
	},
	edgar.CashFlow: {
		{
			Name:   "net_change_identity",
			Target: canonical.NetChangeInCash,
			Terms: []Term{
				{Item: canonical.NetCashOperating, Sign: 1},
				{Item: canonical.NetCashInvesting, Sign: 1},
				{Item: canonical.NetCashFinancing, Sign: 1},
				{Item: canonical.FXEffect, Sign: 1, Optional: true},
			},
		},
	},
}

// Rules returns the arithmetic identities for a statement type.
func Rules(st edgar.StatementType) []ArithmeticRule {
	return arithmeticRules[st]
}
