package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"
)

const (
	submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"
	archivesURL    = "https://www.sec.gov/Archives/edgar/data/%s/%s/%s"
	tickerIndexURL = "https://www.sec.gov/files/company_tickers.json"

	// SEC fair-use guidance caps automated access at 10 req/s.
	// We stay at half that.
	defaultRateLimit = 5

	defaultUserAgent = "fincanon/1.0 (research@fincanon.dev)"
)

// FilingIndex is the external filing-index collaborator.
// Client implements it against live SEC EDGAR; tests substitute fakes.
type FilingIndex interface {
	ListFilings(ctx context.Context, cik, form string) ([]Filing, error)
	FetchDocument(ctx context.Context, filing Filing) (string, error)
}

// Client talks to SEC EDGAR with the required User-Agent header
// and a shared rate limiter across all endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string // override for tests; empty means live SEC hosts
}

// NewClient creates an EDGAR client. The User-Agent can be overridden
// via EDGAR_USER_AGENT per SEC identification guidelines.
func NewClient() *Client {
	ua := os.Getenv("EDGAR_USER_AGENT")
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
		userAgent:  ua,
	}
}

// NewClientWithBaseURL creates a client pointed at a test server.
// All three endpoints are resolved relative to base.
func NewClientWithBaseURL(base string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *Client) get(ctx context.Context, url string, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// FetchTickerIndex downloads the SEC ticker->CIK index.
// CIKs are zero-padded to 10 digits.
func (c *Client) FetchTickerIndex(ctx context.Context) ([]CompanyRecord, error) {
	url := tickerIndexURL
	if c.baseURL != "" {
		url = c.baseURL + "/files/company_tickers.json"
	}

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticker index: %w", err)
	}

	// Response shape: { "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ... }
	var raw map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ticker index: %w", err)
	}

	records := make([]CompanyRecord, 0, len(raw))
	for _, entry := range raw {
		records = append(records, CompanyRecord{
			CIK:    fmt.Sprintf("%010d", entry.CIK),
			Ticker: strings.ToUpper(entry.Ticker),
			Name:   entry.Title,
		})
	}

	log.Debug().Int("companies", len(records)).Msg("fetched SEC ticker index")
	return records, nil
}

// ListFilings returns all filings of the given form for a CIK, including
// amended variants (10-K/A matches form 10-K).
func (c *Client) ListFilings(ctx context.Context, cik, form string) ([]Filing, error) {
	cik = PadCIK(cik)

	url := fmt.Sprintf(submissionsURL, cik)
	if c.baseURL != "" {
		url = fmt.Sprintf(c.baseURL+"/submissions/CIK%s.json", cik)
	}

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for CIK %s: %w", cik, err)
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse submissions for CIK %s: %w", cik, err)
	}

	ticker := ""
	if len(subs.Tickers) > 0 {
		ticker = subs.Tickers[0]
	}

	recent := subs.Filings.Recent
	var filings []Filing
	for i := range recent.AccessionNumber {
		if !formMatches(recent.Form[i], form) {
			continue
		}

		filingDate, _ := time.Parse("2006-01-02", recent.FilingDate[i])
		reportDate, _ := time.Parse("2006-01-02", recent.ReportDate[i])

		accNoDashes := strings.ReplaceAll(recent.AccessionNumber[i], "-", "")
		sourceURL := fmt.Sprintf(archivesURL, strings.TrimLeft(cik, "0"), accNoDashes, recent.PrimaryDocument[i])
		if c.baseURL != "" {
			sourceURL = fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.baseURL, strings.TrimLeft(cik, "0"), accNoDashes, recent.PrimaryDocument[i])
		}

		filings = append(filings, Filing{
			CIK:             cik,
			Ticker:          ticker,
			CompanyName:     subs.Name,
			Form:            recent.Form[i],
			FilingDate:      filingDate,
			ReportDate:      reportDate,
			AccessionNumber: recent.AccessionNumber[i],
			PrimaryDocument: recent.PrimaryDocument[i],
			SourceURL:       sourceURL,
		})
	}

	log.Debug().Str("cik", cik).Str("form", form).Int("filings", len(filings)).Msg("listed filings")
	return filings, nil
}

// FetchDocument downloads the filing's primary document HTML.
func (c *Client) FetchDocument(ctx context.Context, filing Filing) (string, error) {
	body, err := c.get(ctx, filing.SourceURL, "text/html")
	if err != nil {
		return "", fmt.Errorf("failed to fetch document %s: %w", filing.AccessionNumber, err)
	}
	return string(body), nil
}

// formMatches reports whether a filed form satisfies the requested form.
// Amendments (10-K/A) match their base form.
func formMatches(filed, requested string) bool {
	filed = strings.ToUpper(strings.TrimSpace(filed))
	requested = strings.ToUpper(strings.TrimSpace(requested))
	return filed == requested || filed == requested+"/A"
}

// PadCIK zero-pads a CIK to the 10 digits SEC endpoints expect.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}
