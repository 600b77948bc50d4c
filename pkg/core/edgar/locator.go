package edgar

import (
	"context"
	"strings"
)

// Locator selects filings from a FilingIndex.
type Locator struct {
	index FilingIndex
}

// NewLocator creates a locator over the given filing index.
func NewLocator(index FilingIndex) *Locator {
	return &Locator{index: index}
}

// Latest returns the most recent filing of the requested form for a CIK.
// Tie-break is deterministic: latest filing date wins; equal dates fall
// back to the highest accession number.
func (l *Locator) Latest(ctx context.Context, cik, form string) (Filing, error) {
	filings, err := l.index.ListFilings(ctx, cik, form)
	if err != nil {
		return Filing{}, err
	}
	if len(filings) == 0 {
		return Filing{}, &NoFilingFoundError{CIK: PadCIK(cik), Form: form}
	}

	best := filings[0]
	for _, f := range filings[1:] {
		if f.FilingDate.After(best.FilingDate) {
			best = f
			continue
		}
		if f.FilingDate.Equal(best.FilingDate) &&
			strings.Compare(f.AccessionNumber, best.AccessionNumber) > 0 {
			best = f
		}
	}
	return best, nil
}
