package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// buildGrid expands an HTML table into a rectangular cell grid,
// honoring colspan and rowspan. Spanned slots beyond the origin cell
// are left empty so columns stay aligned.
func buildGrid(table *goquery.Selection) [][]string {
	rows := table.Find("tr")
	rowCount := rows.Length()
	if rowCount == 0 {
		return nil
	}

	// Pre-scan for the widest row (counting colspans)
	maxCols := 0
	rows.Each(func(_ int, tr *goquery.Selection) {
		width := 0
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			width += spanAttr(cell, "colspan")
		})
		if width > maxCols {
			maxCols = width
		}
	})
	if maxCols == 0 {
		return nil
	}

	grid := make([][]string, rowCount)
	taken := make([][]bool, rowCount)
	for i := range grid {
		grid[i] = make([]string, maxCols)
		taken[i] = make([]bool, maxCols)
	}

	rowIdx := 0
	rows.Each(func(_ int, tr *goquery.Selection) {
		colIdx := 0
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			for colIdx < maxCols && taken[rowIdx][colIdx] {
				colIdx++
			}
			if colIdx >= maxCols {
				return
			}

			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			text := cleanCellText(cell.Text())

			for r := 0; r < rowspan; r++ {
				for c := 0; c < colspan; c++ {
					tr, tc := rowIdx+r, colIdx+c
					if tr < rowCount && tc < maxCols {
						taken[tr][tc] = true
						if r == 0 && c == 0 {
							grid[tr][tc] = text
						}
					}
				}
			}
			colIdx += colspan
		})
		rowIdx++
	})

	mergeAccountingFragments(grid)
	return pruneEmptyColumns(grid)
}

func spanAttr(cell *goquery.Selection, name string) int {
	n, err := strconv.Atoi(cell.AttrOr(name, "1"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func cleanCellText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.Join(strings.Fields(text), " ")
}

// mergeAccountingFragments repairs values that EDGAR renderers split across
// cells: a lone ")" closing a parenthesized negative, and standalone "$"
// currency markers.
func mergeAccountingFragments(grid [][]string) {
	for r := range grid {
		for c := range grid[r] {
			switch grid[r][c] {
			case ")":
				if c > 0 && strings.HasPrefix(grid[r][c-1], "(") {
					grid[r][c-1] += ")"
				}
				grid[r][c] = ""
			case "$", "%":
				grid[r][c] = ""
			}
		}
	}
}

// pruneEmptyColumns drops spacer columns that carry no content in any row.
func pruneEmptyColumns(grid [][]string) [][]string {
	if len(grid) == 0 {
		return grid
	}
	width := len(grid[0])
	keep := make([]bool, width)
	for c := 0; c < width; c++ {
		for r := range grid {
			if c < len(grid[r]) && grid[r][c] != "" {
				keep[c] = true
				break
			}
		}
	}

	pruned := make([][]string, len(grid))
	for r := range grid {
		var row []string
		for c := 0; c < width; c++ {
			if keep[c] && c < len(grid[r]) {
				row = append(row, grid[r][c])
			}
		}
		pruned[r] = row
	}
	return pruned
}

// rowWidths returns the colspan-expanded width of each tr, used to judge
// whether a table is rectangular enough to repair.
func rowWidths(table *goquery.Selection) []int {
	var widths []int
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		w := 0
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			w += spanAttr(cell, "colspan")
		})
		widths = append(widths, w)
	})
	return widths
}
