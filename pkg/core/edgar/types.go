// Package edgar provides SEC EDGAR filing lookup, selection, and document retrieval.
package edgar

import "time"

// StatementType identifies one of the three core financial statements.
type StatementType string

const (
	IncomeStatement StatementType = "income_statement"
	BalanceSheet    StatementType = "balance_sheet"
	CashFlow        StatementType = "cash_flow"
)

// AllStatementTypes lists every statement the pipeline can extract.
var AllStatementTypes = []StatementType{IncomeStatement, BalanceSheet, CashFlow}

// Filing describes a single located SEC filing. Immutable once located.
type Filing struct {
	CIK             string    `json:"cik"`
	Ticker          string    `json:"ticker,omitempty"`
	CompanyName     string    `json:"company_name,omitempty"`
	Form            string    `json:"form"` // "10-K", "10-Q"
	FilingDate      time.Time `json:"filing_date"`
	ReportDate      time.Time `json:"report_date"` // fiscal period end
	AccessionNumber string    `json:"accession_number"`
	PrimaryDocument string    `json:"primary_document"`
	SourceURL       string    `json:"source_url"`
}

// CompanyRecord is one entry of the SEC ticker index (company_tickers.json).
type CompanyRecord struct {
	CIK    string
	Ticker string
	Name   string
}

// submissionsResponse mirrors data.sec.gov/submissions/CIK##########.json.
// Filing attributes arrive as parallel arrays.
type submissionsResponse struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}
