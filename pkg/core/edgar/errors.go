package edgar

import "fmt"

// NotFoundError indicates a ticker or company name could not be resolved to a CIK.
type NotFoundError struct {
	Query     string
	BestMatch string  // closest name seen, if any
	BestScore float64 // its similarity score
}

func (e *NotFoundError) Error() string {
	if e.BestMatch != "" {
		return fmt.Sprintf("edgar: no CIK match for %q (closest %q at %.2f)", e.Query, e.BestMatch, e.BestScore)
	}
	return fmt.Sprintf("edgar: no CIK match for %q", e.Query)
}

// NoFilingFoundError indicates a CIK has no filings of the requested form type.
type NoFilingFoundError struct {
	CIK  string
	Form string
}

func (e *NoFilingFoundError) Error() string {
	return fmt.Sprintf("edgar: no %s filings found for CIK %s", e.Form, e.CIK)
}
