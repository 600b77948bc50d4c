package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fincanon/pkg/core/canonical"
	"fincanon/pkg/core/edgar"
	"fincanon/pkg/core/store"
)

const submissionsFixture = `{
	"cik": "320193",
	"name": "Apple Inc.",
	"tickers": ["AAPL"],
	"filings": {
		"recent": {
			"accessionNumber": ["0000320193-24-000123", "0000320193-23-000106"],
			"filingDate": ["2024-11-01", "2023-11-03"],
			"reportDate": ["2024-09-28", "2023-09-30"],
			"form": ["10-K", "10-K"],
			"primaryDocument": ["aapl-20240928.htm", "aapl-20230930.htm"]
		}
	}
}`

// filingDocument has a parseable balance sheet and no income statement, so
// a run over both statements must succeed for one and fail for the other.
const filingDocument = `<html><body>
<table>
<tr><td colspan="3">CONSOLIDATED BALANCE SHEETS</td></tr>
<tr><td colspan="3">(In millions)</td></tr>
<tr><td></td><td>2024</td><td>2023</td></tr>
<tr><td>Cash and cash equivalents</td><td>$ 29,943</td><td>$ 29,965</td></tr>
<tr><td>Total current assets</td><td>152,987</td><td>143,566</td></tr>
<tr><td>Total assets</td><td>364,980</td><td>352,583</td></tr>
<tr><td>Total current liabilities</td><td>176,392</td><td>145,308</td></tr>
<tr><td>Total liabilities</td><td>308,030</td><td>290,437</td></tr>
<tr><td>Total stockholders equity</td><td>56,950</td><td>62,146</td></tr>
</table>
</body></html>`

func newPipelineServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(submissionsFixture))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019324000123/aapl-20240928.htm", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(filingDocument))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestOrchestrator(t *testing.T, server *httptest.Server) *Orchestrator {
	t.Helper()
	client := edgar.NewClientWithBaseURL(server.URL)
	resolver := edgar.NewStaticResolver([]edgar.CompanyRecord{
		{CIK: "0000320193", Ticker: "AAPL", Name: "Apple Inc."},
	})
	mapper := canonical.NewMapper(canonical.NewRuleStage())
	stmtCache := store.NewStatementCache(nil, t.TempDir())

	orch := NewOrchestrator(client, resolver, mapper, stmtCache)
	orch.SetDocumentCache(edgar.NewDocumentCacheWithDir(t.TempDir()))
	return orch
}

func TestRunEndToEnd(t *testing.T) {
	server := newPipelineServer(t)
	orch := newTestOrchestrator(t, server)

	result, err := orch.Run(context.Background(), "AAPL", "10-K", []edgar.StatementType{edgar.BalanceSheet})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Filing.AccessionNumber != "0000320193-24-000123" {
		t.Fatalf("latest filing not selected: %s", result.Filing.AccessionNumber)
	}
	if len(result.Statements) != 1 {
		t.Fatalf("got %d statement results", len(result.Statements))
	}

	sr := result.Statements[0]
	if sr.Error != "" {
		t.Fatalf("balance sheet run failed: %s", sr.Error)
	}

	stmt := sr.Statement
	if stmt.ScaleFactor != 1e6 {
		t.Errorf("scale factor = %g, want 1e6", stmt.ScaleFactor)
	}

	assets, ok := stmt.Items[canonical.TotalAssets]
	if !ok {
		t.Fatal("total_assets not mapped")
	}
	if *assets[0] != 364980e6 {
		t.Errorf("total assets = %f, want 364980000000", *assets[0])
	}
	if stmt.Confidence[canonical.TotalAssets] != 1.0 {
		t.Errorf("alias match should carry confidence 1.0")
	}

	// assets = liabilities + equity holds, so no flags
	if len(sr.Diagnostics.Flags) != 0 {
		t.Errorf("unexpected flags: %v", sr.Diagnostics.Flags)
	}
	if sr.Diagnostics.Completeness != 1.0 {
		t.Errorf("completeness = %f, want 1.0", sr.Diagnostics.Completeness)
	}
	t.Log("✅ end-to-end balance sheet run passed")
}

func TestRunIsolatesStatementFailures(t *testing.T) {
	server := newPipelineServer(t)
	orch := newTestOrchestrator(t, server)

	result, err := orch.Run(context.Background(), "AAPL", "10-K",
		[]edgar.StatementType{edgar.IncomeStatement, edgar.BalanceSheet})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Statements) != 2 {
		t.Fatalf("got %d statement results", len(result.Statements))
	}

	income := result.Statements[0]
	if income.Error == "" {
		t.Error("income statement should fail, the document has none")
	}
	if !strings.Contains(income.Error, "extract") {
		t.Errorf("error should name the failing stage: %s", income.Error)
	}

	balance := result.Statements[1]
	if balance.Error != "" {
		t.Errorf("balance sheet must survive the income failure: %s", balance.Error)
	}
	if balance.Statement == nil || len(balance.Statement.Items) == 0 {
		t.Error("balance sheet statement missing")
	}
}

func TestRunServesSecondRunFromCache(t *testing.T) {
	server := newPipelineServer(t)
	orch := newTestOrchestrator(t, server)

	first, err := orch.Run(context.Background(), "AAPL", "10-K", []edgar.StatementType{edgar.BalanceSheet})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Statements[0].FromCache {
		t.Fatal("first run must not come from cache")
	}

	second, err := orch.Run(context.Background(), "AAPL", "10-K", []edgar.StatementType{edgar.BalanceSheet})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !second.Statements[0].FromCache {
		t.Fatal("second run should hit the statement cache")
	}

	// cached output must match the original run
	a := first.Statements[0].Statement.Items[canonical.TotalAssets]
	b := second.Statements[0].Statement.Items[canonical.TotalAssets]
	if *a[0] != *b[0] {
		t.Errorf("cached values differ: %f vs %f", *a[0], *b[0])
	}
}

func TestRunUnknownCompany(t *testing.T) {
	server := newPipelineServer(t)
	orch := newTestOrchestrator(t, server)

	_, err := orch.Run(context.Background(), "Completely Unknown Megacorp Worldwide", "10-K",
		[]edgar.StatementType{edgar.BalanceSheet})
	if err == nil {
		t.Fatal("expected resolver error")
	}
}
