package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/54b3r/docrag-go/internal/document"
)

// ErrTableTooSmall marks a table below the minimum row/column threshold.
// Callers treat it as a failed extraction: skip the region, log, continue.
var ErrTableTooSmall = errors.New("extract: table below minimum size")

// ErrNoTable marks a region none of the strategies could parse.
var ErrNoTable = errors.New("extract: no strategy recognised a table")

// Minimum structural size for a table to be worth indexing.
const (
	minTableRows = 2
	minTableCols = 2
)

// tableStrategy is one structural-recognition attempt. It returns false when
// the lines do not match its format at all.
type tableStrategy struct {
	name  string
	parse func(lines []string) (*document.Table, bool)
}

// TableExtractor recognises table structure by trying strategies in priority
// order and keeping the highest-scoring candidate.
type TableExtractor struct {
	strategies []tableStrategy
}

// NewTableExtractor constructs a TableExtractor with the built-in strategies:
// pipe-delimited, tab-delimited, then whitespace-aligned.
func NewTableExtractor() *TableExtractor {
	return &TableExtractor{
		strategies: []tableStrategy{
			{name: "pipe", parse: parseDelimited("|")},
			{name: "tab", parse: parseDelimited("\t")},
			{name: "aligned", parse: parseAligned},
		},
	}
}

// Extract runs every strategy over the region's lines, scores each candidate,
// and returns the best one with the winning strategy name. Tables below the
// minimum size threshold return ErrTableTooSmall.
func (e *TableExtractor) Extract(region *document.Region) (*document.Table, string, error) {
	lines := trimBlank(region.Block.Lines)
	if len(lines) == 0 {
		return nil, "", ErrNoTable
	}

	var best *document.Table
	bestName := ""
	bestScore := -1.0
	for _, s := range e.strategies {
		table, ok := s.parse(lines)
		if !ok {
			continue
		}
		if score := scoreTable(table); score > bestScore {
			best, bestName, bestScore = table, s.name, score
		}
	}
	if best == nil {
		return nil, "", ErrNoTable
	}
	if len(best.Rows) < minTableRows || len(best.Header) < minTableCols {
		return nil, bestName, ErrTableTooSmall
	}
	return best, bestName, nil
}

// scoreTable rates a candidate on completeness (non-empty cell ratio),
// structural consistency (column type uniformity), and header plausibility.
// Each component is in [0,1]; the total is their weighted sum.
func scoreTable(t *document.Table) float64 {
	return 0.4*completeness(t) + 0.4*consistency(t) + 0.2*headerPlausibility(t)
}

// completeness is the fraction of non-empty cells.
func completeness(t *document.Table) float64 {
	total, filled := 0, 0
	for _, row := range t.Rows {
		for _, cell := range row {
			total++
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total)
}

// consistency measures column type uniformity: for each column, the fraction
// of cells agreeing with the column's majority kind (numeric vs text).
func consistency(t *document.Table) float64 {
	if len(t.Header) == 0 || len(t.Rows) == 0 {
		return 0
	}
	sum := 0.0
	for col := 0; col < len(t.Header); col++ {
		numeric := 0
		counted := 0
		for _, row := range t.Rows {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			counted++
			if isNumeric(row[col]) {
				numeric++
			}
		}
		if counted == 0 {
			continue
		}
		majority := numeric
		if counted-numeric > majority {
			majority = counted - numeric
		}
		sum += float64(majority) / float64(counted)
	}
	return sum / float64(len(t.Header))
}

// headerPlausibility rewards headers whose cells are non-empty, non-numeric,
// and unique.
func headerPlausibility(t *document.Table) float64 {
	if len(t.Header) == 0 {
		return 0
	}
	seen := make(map[string]bool)
	good := 0
	for _, cell := range t.Header {
		cell = strings.TrimSpace(cell)
		if cell == "" || isNumeric(cell) || seen[strings.ToLower(cell)] {
			continue
		}
		seen[strings.ToLower(cell)] = true
		good++
	}
	return float64(good) / float64(len(t.Header))
}

// isNumeric reports whether a cell parses as a number (optionally with
// thousands separators or a unit-free percent sign).
func isNumeric(cell string) bool {
	cell = strings.TrimSpace(cell)
	cell = strings.TrimSuffix(cell, "%")
	cell = strings.ReplaceAll(cell, ",", "")
	if cell == "" {
		return false
	}
	_, err := strconv.ParseFloat(cell, 64)
	return err == nil
}

// separatorRow matches markdown table separator rows like |---|:---:|.
var separatorRow = regexp.MustCompile(`^[\s|:+-]+$`)

// parseDelimited builds a strategy splitting rows on the given delimiter.
// The first non-separator row becomes the header; rows are padded or
// truncated to the header width.
func parseDelimited(delim string) func(lines []string) (*document.Table, bool) {
	return func(lines []string) (*document.Table, bool) {
		var rows [][]string
		for _, line := range lines {
			if !strings.Contains(line, delim) {
				return nil, false
			}
			if separatorRow.MatchString(line) {
				continue
			}
			rows = append(rows, splitCells(line, delim))
		}
		if len(rows) < 2 {
			return nil, false
		}
		return buildTable(rows), true
	}
}

// multiSpace splits aligned columns on runs of two or more spaces.
var multiSpace = regexp.MustCompile(`\s{2,}`)

// parseAligned recognises whitespace-aligned tables: every row must split
// into the same number (>= 2) of columns on multi-space runs.
func parseAligned(lines []string) (*document.Table, bool) {
	var rows [][]string
	width := 0
	for _, line := range lines {
		cells := multiSpace.Split(strings.TrimSpace(line), -1)
		if len(cells) < 2 {
			return nil, false
		}
		if width == 0 {
			width = len(cells)
		}
		if len(cells) != width {
			return nil, false
		}
		rows = append(rows, cells)
	}
	if len(rows) < 2 {
		return nil, false
	}
	return buildTable(rows), true
}

// splitCells splits a delimited line into trimmed cells, dropping the empty
// edge cells produced by leading/trailing delimiters.
func splitCells(line, delim string) []string {
	parts := strings.Split(line, delim)
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// buildTable normalises raw rows into a Table: first row is the header, data
// rows are padded/truncated to the header width.
func buildTable(rows [][]string) *document.Table {
	header := rows[0]
	t := &document.Table{Header: header}
	for _, row := range rows[1:] {
		normalized := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				normalized[i] = row[i]
			}
		}
		t.Rows = append(t.Rows, normalized)
	}
	return t
}

// trimBlank drops blank lines from both ends.
func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
