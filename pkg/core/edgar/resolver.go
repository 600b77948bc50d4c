package edgar

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/phuslu/log"
)

// FuzzyThreshold is the minimum normalized similarity for a company-name
// match. Below it the query is considered unresolved.
const FuzzyThreshold = 0.72

// CIKResolver resolves a ticker symbol or company name to a CIK.
type CIKResolver interface {
	Resolve(ctx context.Context, query string) (CompanyRecord, error)
}

// tickerPattern matches strings that look like ticker symbols.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,6}$`)

// Resolver resolves tickers and company names against the SEC ticker index.
// The index is fetched once and cached for the resolver's lifetime.
type Resolver struct {
	client *Client

	mu      sync.Mutex
	records []CompanyRecord
}

// NewResolver creates a resolver backed by the given client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// NewStaticResolver creates a resolver over a fixed record set. Used in tests
// and when the ticker index has been pre-fetched.
func NewStaticResolver(records []CompanyRecord) *Resolver {
	return &Resolver{records: records}
}

var _ CIKResolver = (*Resolver)(nil)

func (r *Resolver) index(ctx context.Context) ([]CompanyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.records == nil {
		records, err := r.client.FetchTickerIndex(ctx)
		if err != nil {
			return nil, err
		}
		r.records = records
	}
	return r.records, nil
}

// Resolve maps a ticker or company name to a CompanyRecord.
// Order: exact ticker, exact normalized name, fuzzy name above FuzzyThreshold.
func (r *Resolver) Resolve(ctx context.Context, query string) (CompanyRecord, error) {
	records, err := r.index(ctx)
	if err != nil {
		return CompanyRecord{}, err
	}

	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)

	// 1. Exact ticker match for ticker-shaped queries
	if tickerPattern.MatchString(upper) {
		for _, rec := range records {
			if rec.Ticker == upper {
				return rec, nil
			}
		}
	}

	// 2. Exact normalized company name
	normQuery := normalizeCompanyName(trimmed)
	for _, rec := range records {
		if normalizeCompanyName(rec.Name) == normQuery {
			return rec, nil
		}
	}

	// 3. Fuzzy name match
	var best CompanyRecord
	bestScore := 0.0
	for _, rec := range records {
		score := similarity(normQuery, normalizeCompanyName(rec.Name))
		if score > bestScore {
			bestScore = score
			best = rec
		}
	}

	if bestScore >= FuzzyThreshold {
		log.Debug().Str("query", query).Str("match", best.Name).Float64("score", bestScore).Msg("fuzzy CIK match")
		return best, nil
	}

	return CompanyRecord{}, &NotFoundError{Query: query, BestMatch: best.Name, BestScore: bestScore}
}

// corporate suffixes carry no identity and distort similarity scores
var companySuffixes = []string{
	" incorporated", " corporation", " company", " holdings", " inc", " corp",
	" ltd", " llc", " plc", " co", " sa", " nv", " ag",
}

func normalizeCompanyName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(",", "", ".", "", "'", "", "&", "and").Replace(s)
	for _, suffix := range companySuffixes {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.Join(strings.Fields(s), " ")
}

// similarity returns 1 - levenshtein/maxLen, in [0,1]. The denominator is
// counted in runes, like the edit distance, so non-ASCII names score fairly.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
