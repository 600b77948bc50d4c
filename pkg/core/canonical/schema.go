// Package canonical defines the fixed line-item taxonomy and maps raw
// statement labels onto it.
package canonical

import (
	_ "embed"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"fincanon/pkg/core/edgar"
)

// LineItem is one member of the canonical taxonomy.
type LineItem string

const (
	// income statement
	Revenue            LineItem = "revenue"
	CostOfRevenue      LineItem = "cost_of_revenue"
	GrossProfit        LineItem = "gross_profit"
	OperatingExpenses  LineItem = "operating_expenses"
	RDExpenses         LineItem = "rd_expenses"
	SGAExpenses        LineItem = "sga_expenses"
	OperatingIncome    LineItem = "operating_income"
	InterestExpense    LineItem = "interest_expense"
	OtherIncomeExpense LineItem = "other_income_expense"
	PretaxIncome       LineItem = "pretax_income"
	IncomeTaxExpense   LineItem = "income_tax_expense"
	NetIncome          LineItem = "net_income"
	EPSBasic           LineItem = "eps_basic"
	EPSDiluted         LineItem = "eps_diluted"

	// balance sheet
	CashAndEquivalents      LineItem = "cash_and_equivalents"
	ShortTermInvestments    LineItem = "short_term_investments"
	AccountsReceivable      LineItem = "accounts_receivable"
	Inventory               LineItem = "inventory"
	TotalCurrentAssets      LineItem = "total_current_assets"
	PPENet                  LineItem = "ppe_net"
	Goodwill                LineItem = "goodwill"
	Intangibles             LineItem = "intangibles"
	TotalAssets             LineItem = "total_assets"
	AccountsPayable         LineItem = "accounts_payable"
	AccruedLiabilities      LineItem = "accrued_liabilities"
	ShortTermDebt           LineItem = "short_term_debt"
	TotalCurrentLiabilities LineItem = "total_current_liabilities"
	LongTermDebt            LineItem = "long_term_debt"
	TotalLiabilities        LineItem = "total_liabilities"
	CommonStockAPIC         LineItem = "common_stock_apic"
	RetainedEarnings        LineItem = "retained_earnings"
	TreasuryStock           LineItem = "treasury_stock"
	TotalEquity             LineItem = "total_equity"
	TotalLiabilitiesEquity  LineItem = "total_liabilities_and_equity"

	// cash flow
	DepreciationAmortization LineItem = "depreciation_amortization"
	StockBasedCompensation   LineItem = "stock_based_compensation"
	WorkingCapitalChanges    LineItem = "working_capital_changes"
	NetCashOperating         LineItem = "net_cash_operating"
	CapitalExpenditures      LineItem = "capital_expenditures"
	Acquisitions             LineItem = "acquisitions"
	NetCashInvesting         LineItem = "net_cash_investing"
	DebtIssued               LineItem = "debt_issued"
	DebtRepaid               LineItem = "debt_repaid"
	ShareRepurchases         LineItem = "share_repurchases"
	DividendsPaid            LineItem = "dividends_paid"
	NetCashFinancing         LineItem = "net_cash_financing"
	FXEffect                 LineItem = "fx_effect"
	NetChangeInCash          LineItem = "net_change_in_cash"
)

// statementItems declares the taxonomy per statement type. Adding a line
// item means extending this table and the alias file, not adding branches.
var statementItems = map[edgar.StatementType][]LineItem{
	edgar.IncomeStatement: {
		Revenue, CostOfRevenue, GrossProfit, OperatingExpenses, RDExpenses,
		SGAExpenses, OperatingIncome, InterestExpense, OtherIncomeExpense,
		PretaxIncome, IncomeTaxExpense, NetIncome, EPSBasic, EPSDiluted,
	},
	edgar.BalanceSheet: {
		CashAndEquivalents, ShortTermInvestments, AccountsReceivable,
		Inventory, TotalCurrentAssets, PPENet, Goodwill, Intangibles,
		TotalAssets, AccountsPayable, AccruedLiabilities, ShortTermDebt,
		TotalCurrentLiabilities, LongTermDebt, TotalLiabilities,
		CommonStockAPIC, RetainedEarnings, TreasuryStock, TotalEquity,
		TotalLiabilitiesEquity,
	},
	edgar.CashFlow: {
		NetIncome, DepreciationAmortization, StockBasedCompensation,
		WorkingCapitalChanges, NetCashOperating, CapitalExpenditures,
		Acquisitions, NetCashInvesting, DebtIssued, DebtRepaid,
		ShareRepurchases, DividendsPaid, NetCashFinancing, FXEffect,
		NetChangeInCash,
	},
}

// requiredItems drive the validator's completeness score.
var requiredItems = map[edgar.StatementType][]LineItem{
	edgar.IncomeStatement: {Revenue, OperatingIncome, PretaxIncome, IncomeTaxExpense, NetIncome},
	edgar.BalanceSheet:    {CashAndEquivalents, TotalCurrentAssets, TotalAssets, TotalCurrentLiabilities, TotalLiabilities, TotalEquity},
	edgar.CashFlow:        {NetIncome, NetCashOperating, NetCashInvesting, NetCashFinancing, NetChangeInCash},
}

// itemDescriptions feed the LLM stage prompt.
var itemDescriptions = map[LineItem]string{
	Revenue:            "Total revenues, net sales",
	CostOfRevenue:      "Cost of goods sold, cost of revenues, cost of sales",
	GrossProfit:        "Gross profit, gross margin",
	OperatingExpenses:  "Total operating expenses",
	RDExpenses:         "Research and development expenses",
	SGAExpenses:        "Selling, general and administrative expenses",
	OperatingIncome:    "Operating income (loss)",
	InterestExpense:    "Interest expense",
	OtherIncomeExpense: "Other income/(expense), net",
	PretaxIncome:       "Income before income taxes",
	IncomeTaxExpense:   "Income tax expense (provision for income taxes)",
	NetIncome:          "Net income (loss)",
	EPSBasic:           "Basic earnings per share",
	EPSDiluted:         "Diluted earnings per share",

	CashAndEquivalents:      "Cash and cash equivalents",
	ShortTermInvestments:    "Short-term investments, marketable securities",
	AccountsReceivable:      "Accounts receivable, net",
	Inventory:               "Inventories",
	TotalCurrentAssets:      "Total current assets",
	PPENet:                  "Property, plant and equipment, net",
	Goodwill:                "Goodwill",
	Intangibles:             "Intangible assets, net",
	TotalAssets:             "Total assets",
	AccountsPayable:         "Accounts payable",
	AccruedLiabilities:      "Accrued liabilities, accrued expenses",
	ShortTermDebt:           "Short-term debt, current portion of long-term debt, commercial paper",
	TotalCurrentLiabilities: "Total current liabilities",
	LongTermDebt:            "Long-term debt",
	TotalLiabilities:        "Total liabilities",
	CommonStockAPIC:         "Common stock and additional paid-in capital",
	RetainedEarnings:        "Retained earnings (accumulated deficit)",
	TreasuryStock:           "Treasury stock",
	TotalEquity:             "Total stockholders' equity",
	TotalLiabilitiesEquity:  "Total liabilities and stockholders' equity",

	DepreciationAmortization: "Depreciation and amortization",
	StockBasedCompensation:   "Share-based/stock-based compensation expense",
	WorkingCapitalChanges:    "Changes in operating assets and liabilities, working capital changes",
	NetCashOperating:         "Net cash provided by operating activities",
	CapitalExpenditures:      "Capital expenditures, purchases of property and equipment",
	Acquisitions:             "Acquisitions, net of cash acquired",
	NetCashInvesting:         "Net cash used in investing activities",
	DebtIssued:               "Proceeds from issuance of debt",
	DebtRepaid:               "Repayments of debt",
	ShareRepurchases:         "Repurchases of common stock",
	DividendsPaid:            "Dividends paid",
	NetCashFinancing:         "Net cash used in financing activities",
	FXEffect:                 "Effect of exchange rate changes on cash",
	NetChangeInCash:          "Net increase (decrease) in cash and cash equivalents",
}

// Items returns the taxonomy for a statement type.
func Items(st edgar.StatementType) []LineItem {
	return statementItems[st]
}

// Required returns the required subset for a statement type.
func Required(st edgar.StatementType) []LineItem {
	return requiredItems[st]
}

// Describe returns the prompt description of an item.
func Describe(item LineItem) string {
	return itemDescriptions[item]
}

// IsValid reports whether item belongs to the statement's taxonomy.
func IsValid(st edgar.StatementType, item LineItem) bool {
	for _, it := range statementItems[st] {
		if it == item {
			return true
		}
	}
	return false
}

//go:embed aliases.yaml
var aliasesYAML []byte

// aliasTable: statement type -> normalized raw label -> canonical item
var aliasTable map[edgar.StatementType]map[string]LineItem

func init() {
	var raw map[string]map[string][]string
	if err := yaml.Unmarshal(aliasesYAML, &raw); err != nil {
		panic("canonical: invalid aliases.yaml: " + err.Error())
	}

	aliasTable = make(map[edgar.StatementType]map[string]LineItem)
	for st, items := range raw {
		table := make(map[string]LineItem)
		for item, aliases := range items {
			for _, alias := range aliases {
				table[NormalizeLabel(alias)] = LineItem(item)
			}
			// the item key itself is always an alias
			table[strings.ReplaceAll(item, "_", " ")] = LineItem(item)
		}
		aliasTable[edgar.StatementType(st)] = table
	}
}

// LookupAlias resolves a raw label through the curated alias table.
func LookupAlias(st edgar.StatementType, label string) (LineItem, bool) {
	item, ok := aliasTable[st][NormalizeLabel(label)]
	return item, ok
}

var (
	footnoteMarker = regexp.MustCompile(`\(\s*(?:\d+|[a-z])\s*\)|[*†‡]`)
	punctuation    = regexp.MustCompile("[,.:;'\"()/‘’“”]")
)

// NormalizeLabel lowercases, strips footnote markers and punctuation, and
// collapses whitespace so label variants compare equal.
func NormalizeLabel(label string) string {
	s := strings.ToLower(label)
	s = footnoteMarker.ReplaceAllString(s, " ")
	s = punctuation.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
