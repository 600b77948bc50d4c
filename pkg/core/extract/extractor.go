package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"

	"fincanon/pkg/core/edgar"
)

// statementKeywords drive the relevance scoring that locates each
// statement's table. Matching is against the table text and its
// surrounding context.
var statementKeywords = map[edgar.StatementType][]string{
	edgar.IncomeStatement: {
		"statements of income", "statements of operations", "income statements",
		"revenue", "net sales", "net income", "operating income",
		"gross margin", "earnings per share", "cost of sales",
	},
	edgar.BalanceSheet: {
		"balance sheets", "balance sheet", "statements of financial position",
		"total assets", "total liabilities", "stockholders equity",
		"shareholders equity", "current assets", "current liabilities",
	},
	edgar.CashFlow: {
		"statements of cash flows", "cash flows", "operating activities",
		"investing activities", "financing activities",
		"cash and cash equivalents", "depreciation",
	},
}

const (
	// minimum relevance for a table to qualify as a statement section
	relevanceThreshold = 0.3

	// characters of surrounding document text considered as table context
	contextWindow = 1000

	// column-count deviation tolerated per row before the table is
	// declared malformed
	repairTolerance = 2
)

var (
	moneyPattern = regexp.MustCompile(`\$\s?[\d,]+|\([\d,]+\)`)
	yearPattern  = regexp.MustCompile(`20\d{2}`)
)

// Extractor parses filing HTML into RawTables.
type Extractor struct{}

// NewExtractor creates a table extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract locates the statement's table in the filing document and parses it.
// It is a pure transform: the same document always yields the same table.
func (e *Extractor) Extract(filing edgar.Filing, documentHTML string, stmtType edgar.StatementType) (*RawTable, []Warning, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(documentHTML))
	if err != nil {
		return nil, nil, &SectionNotFoundError{StatementType: stmtType}
	}

	// Context lookup happens against the re-rendered document, not the raw
	// input: the renderer normalizes entities like &#160;, so a table's
	// rendered markup is only guaranteed to be found in rendered text.
	rendered, err := goquery.OuterHtml(doc.Selection)
	if err != nil || rendered == "" {
		rendered = documentHTML
	}

	table, context, score := e.findStatementTable(doc, rendered, stmtType)
	if table == nil {
		return nil, nil, &SectionNotFoundError{StatementType: stmtType, BestScore: score}
	}
	log.Debug().Str("statement", string(stmtType)).Float64("relevance", score).Msg("statement table located")

	raw, warnings, err := e.parseTable(filing, table, context, stmtType)
	if err != nil {
		return nil, warnings, err
	}
	return raw, warnings, nil
}

// findStatementTable scores every table in the document and returns the best
// match above the relevance threshold, with its surrounding context text.
func (e *Extractor) findStatementTable(doc *goquery.Document, renderedHTML string, stmtType edgar.StatementType) (*goquery.Selection, string, float64) {
	keywords := statementKeywords[stmtType]

	var best *goquery.Selection
	bestContext := ""
	bestScore := 0.0

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		context := tableContext(table, renderedHTML)
		score := scoreRelevance(context, table, keywords)
		if score > bestScore {
			bestScore = score
			best = table
			bestContext = context
		}
	})

	if bestScore <= relevanceThreshold {
		return nil, "", bestScore
	}
	return best, bestContext, bestScore
}

// tableContext extracts plain text around the table's position in the
// rendered document, which typically carries the statement heading and
// scale note.
func tableContext(table *goquery.Selection, renderedHTML string) string {
	tableHTML, err := goquery.OuterHtml(table)
	if err != nil || tableHTML == "" {
		return ""
	}

	pos := strings.Index(renderedHTML, tableHTML)
	if pos < 0 {
		return ""
	}

	start := pos - contextWindow
	if start < 0 {
		start = 0
	}
	end := pos + len(tableHTML) + contextWindow
	if end > len(renderedHTML) {
		end = len(renderedHTML)
	}

	snippet, err := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML[start:end]))
	if err != nil {
		return ""
	}
	return strings.ToLower(snippet.Text())
}

// scoreRelevance mirrors the keyword scoring used to pick statement tables:
// keyword hits in context and table text, plus small bonuses for money
// formatting and year columns, normalized by the keyword count.
func scoreRelevance(context string, table *goquery.Selection, keywords []string) float64 {
	tableText := strings.ToLower(table.Text())

	contextHits, tableHits := 0, 0
	for _, kw := range keywords {
		if strings.Contains(context, kw) {
			contextHits++
		}
		if strings.Contains(tableText, kw) {
			tableHits++
		}
	}

	score := float64(contextHits)*0.4 + float64(tableHits)*0.4
	if moneyPattern.MatchString(tableText) {
		score += 0.1
	}
	if yearPattern.MatchString(tableText) {
		score += 0.1
	}
	return score / float64(len(keywords))
}

// parseTable converts the matched HTML table into a RawTable via the
// virtual grid, collapsing multi-row headers into period labels.
func (e *Extractor) parseTable(filing edgar.Filing, table *goquery.Selection, context string, stmtType edgar.StatementType) (*RawTable, []Warning, error) {
	if reason, ok := checkRectangular(table); !ok {
		return nil, nil, &TableMalformedError{StatementType: stmtType, Reason: reason}
	}

	grid := buildGrid(table)
	if len(grid) == 0 || len(grid[0]) < 2 {
		return nil, nil, &TableMalformedError{StatementType: stmtType, Reason: "no parseable rows"}
	}

	headerRows, captions, dataStart := splitHeader(grid)
	headerRows, dataRows := alignColumns(headerRows, grid[dataStart:], len(grid[0]))

	width := 0
	if len(dataRows) > 0 {
		width = len(dataRows[0])
	}
	periodLabels := collapseHeader(headerRows, width)

	raw := &RawTable{
		Filing:        filing,
		StatementType: stmtType,
		Caption:       strings.Join(append(captions, context), " "),
		PeriodLabels:  periodLabels,
	}

	var warnings []Warning
	for _, row := range dataRows {
		label := strings.TrimSpace(row[0])
		cells := padCells(row[1:], len(periodLabels))

		if label == "" {
			continue
		}
		if !hasNumericCell(cells) {
			warnings = append(warnings, Warning{
				Code:    "row_skipped",
				Message: "row skipped: no numeric columns: " + label,
			})
			continue
		}
		raw.Rows = append(raw.Rows, RawRow{Label: label, Cells: cells})
	}

	if len(raw.Rows) == 0 {
		return nil, warnings, &TableMalformedError{StatementType: stmtType, Reason: "no data rows survived parsing"}
	}
	return raw, warnings, nil
}

// checkRectangular verifies row widths cluster around a single column count.
// A majority of rows deviating beyond the repair tolerance is unrecoverable.
func checkRectangular(table *goquery.Selection) (string, bool) {
	widths := rowWidths(table)
	if len(widths) == 0 {
		return "table has no rows", false
	}

	counts := make(map[int]int)
	for _, w := range widths {
		counts[w]++
	}
	modal, modalCount := 0, 0
	for w, n := range counts {
		if n > modalCount {
			modal, modalCount = w, n
		}
	}

	outliers := 0
	for _, w := range widths {
		if w > modal+repairTolerance || w < modal-repairTolerance {
			outliers++
		}
	}
	if outliers*2 > len(widths) {
		return "column counts vary beyond repair tolerance", false
	}
	return "", true
}

// splitHeader walks the leading rows of the grid and classifies them.
// Rows with an empty label cell carry period headers; labeled rows whose
// value cells are all empty are table captions ("CONSOLIDATED BALANCE
// SHEETS", "(in millions)"). The first labeled row with a numeric cell
// starts the data.
func splitHeader(grid [][]string) (headers [][]string, captions []string, dataStart int) {
	for i, row := range grid {
		label := strings.TrimSpace(row[0])
		if label != "" && hasNumericCell(row[1:]) {
			return headers, captions, i
		}
		if label == "" {
			headers = append(headers, row)
			continue
		}
		if allEmpty(row[1:]) {
			captions = append(captions, label)
			continue
		}
		// labeled row with non-numeric values (e.g. date cells spilled
		// into the label column): keep as header material
		headers = append(headers, row)
	}
	return headers, captions, len(grid)
}

// alignColumns drops columns that carry no data values and shifts header
// text stranded in a dropped column onto the next surviving column. Period
// headers span the currency marker columns in EDGAR tables, so the label
// often sits left of the column its values occupy.
func alignColumns(headerRows, dataRows [][]string, width int) ([][]string, [][]string) {
	if width == 0 {
		return headerRows, dataRows
	}

	keep := make([]bool, width)
	keep[0] = true
	for c := 1; c < width; c++ {
		for _, row := range dataRows {
			if c < len(row) && strings.TrimSpace(row[c]) != "" {
				keep[c] = true
				break
			}
		}
	}

	for _, row := range headerRows {
		for c := width - 1; c >= 1; c-- {
			if c >= len(row) || keep[c] || strings.TrimSpace(row[c]) == "" {
				continue
			}
			for t := c + 1; t < width && t < len(row); t++ {
				if keep[t] {
					if strings.TrimSpace(row[t]) == "" {
						row[t] = row[c]
					}
					break
				}
			}
			row[c] = ""
		}
	}

	filter := func(rows [][]string) [][]string {
		out := make([][]string, len(rows))
		for r, row := range rows {
			var kept []string
			for c := 0; c < width && c < len(row); c++ {
				if keep[c] {
					kept = append(kept, row[c])
				}
			}
			out[r] = kept
		}
		return out
	}
	return filter(headerRows), filter(dataRows)
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// collapseHeader joins multi-row header cells per column into period labels.
func collapseHeader(headerRows [][]string, width int) []string {
	if width < 2 {
		return nil
	}
	labels := make([]string, 0, width-1)
	for c := 1; c < width; c++ {
		var parts []string
		for _, row := range headerRows {
			if c < len(row) && strings.TrimSpace(row[c]) != "" {
				parts = append(parts, strings.TrimSpace(row[c]))
			}
		}
		labels = append(labels, strings.Join(parts, " "))
	}
	return labels
}

func padCells(cells []string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(cells); i++ {
		out[i] = cells[i]
	}
	return out
}

var numericCellPattern = regexp.MustCompile(`\d`)

func hasNumericCell(cells []string) bool {
	for _, c := range cells {
		if numericCellPattern.MatchString(c) {
			return true
		}
	}
	return false
}
