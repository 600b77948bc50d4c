package edgar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const submissionsFixture = `{
	"cik": "320193",
	"name": "Apple Inc.",
	"tickers": ["AAPL"],
	"filings": {
		"recent": {
			"accessionNumber": ["0000320193-24-000123", "0000320193-24-000081", "0000320193-23-000106", "0000320193-24-000005"],
			"filingDate": ["2024-11-01", "2024-08-02", "2023-11-03", "2024-01-10"],
			"reportDate": ["2024-09-28", "2024-06-29", "2023-09-30", "2023-12-30"],
			"form": ["10-K", "10-Q", "10-K", "8-K"],
			"primaryDocument": ["aapl-20240928.htm", "aapl-20240629.htm", "aapl-20230930.htm", "aapl-20231230.htm"]
		}
	}
}`

const tickerIndexFixture = `{
	"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
	"1": {"cik_str": 789019, "ticker": "MSFT", "title": "Microsoft Corp"}
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request missing User-Agent header")
		}
		w.Write([]byte(tickerIndexFixture))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(submissionsFixture))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019324000123/aapl-20240928.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>10-K document</body></html>"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchTickerIndex(t *testing.T) {
	server := newTestServer(t)
	client := NewClientWithBaseURL(server.URL)

	records, err := client.FetchTickerIndex(context.Background())
	if err != nil {
		t.Fatalf("FetchTickerIndex failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	byTicker := make(map[string]CompanyRecord)
	for _, rec := range records {
		byTicker[rec.Ticker] = rec
	}
	apple, ok := byTicker["AAPL"]
	if !ok {
		t.Fatal("AAPL missing from index")
	}
	if apple.CIK != "0000320193" {
		t.Errorf("CIK not zero-padded: %s", apple.CIK)
	}
	if apple.Name != "Apple Inc." {
		t.Errorf("wrong name: %s", apple.Name)
	}
}

func TestListFilingsFiltersForm(t *testing.T) {
	server := newTestServer(t)
	client := NewClientWithBaseURL(server.URL)

	filings, err := client.ListFilings(context.Background(), "320193", "10-K")
	if err != nil {
		t.Fatalf("ListFilings failed: %v", err)
	}
	if len(filings) != 2 {
		t.Fatalf("got %d 10-K filings, want 2 (10-Q and 8-K excluded)", len(filings))
	}
	for _, f := range filings {
		if f.Form != "10-K" {
			t.Errorf("unexpected form %s", f.Form)
		}
		if f.CIK != "0000320193" {
			t.Errorf("CIK not padded: %s", f.CIK)
		}
		if f.Ticker != "AAPL" {
			t.Errorf("ticker not propagated: %s", f.Ticker)
		}
		if !strings.Contains(f.SourceURL, "/Archives/edgar/data/320193/") {
			t.Errorf("source URL malformed: %s", f.SourceURL)
		}
	}
	t.Log("✅ submissions parsing passed")
}

func TestFetchDocument(t *testing.T) {
	server := newTestServer(t)
	client := NewClientWithBaseURL(server.URL)

	filings, err := client.ListFilings(context.Background(), "320193", "10-K")
	if err != nil {
		t.Fatalf("ListFilings failed: %v", err)
	}

	var latest Filing
	for _, f := range filings {
		if f.AccessionNumber == "0000320193-24-000123" {
			latest = f
		}
	}

	html, err := client.FetchDocument(context.Background(), latest)
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if !strings.Contains(html, "10-K document") {
		t.Errorf("unexpected document body: %s", html)
	}
}

func TestFormMatches(t *testing.T) {
	tests := []struct {
		filed, requested string
		want             bool
	}{
		{"10-K", "10-K", true},
		{"10-K/A", "10-K", true},
		{"10-q", "10-Q", true},
		{"10-K405", "10-K", false},
		{"10-Q", "10-K", false},
		{"8-K", "10-K", false},
	}
	for _, tc := range tests {
		if got := formMatches(tc.filed, tc.requested); got != tc.want {
			t.Errorf("formMatches(%q, %q) = %v, want %v", tc.filed, tc.requested, got, tc.want)
		}
	}
}

func TestPadCIK(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"320193", "0000320193"},
		{"0000320193", "0000320193"},
		{"1", "0000000001"},
	}
	for _, tc := range tests {
		if got := PadCIK(tc.in); got != tc.want {
			t.Errorf("PadCIK(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDocumentCacheRoundTrip(t *testing.T) {
	cache := NewDocumentCacheWithDir(t.TempDir())

	if cache.Has("0000320193", "0000320193-24-000123") {
		t.Fatal("cache should start empty")
	}
	if err := cache.Set("0000320193", "0000320193-24-000123", "<html/>"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := cache.Get("0000320193", "0000320193-24-000123"); got != "<html/>" {
		t.Errorf("Get = %q, want cached document", got)
	}
}
