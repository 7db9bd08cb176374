package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// volumeHeaderWords are the terms the TSA has used over the years to label
// the passenger-count column ("Numbers", "Travel Numbers", "Total Traveler
// Throughput", ...). Some pages label volume columns with a bare year.
var (
	volumeHeaderWords = []string{"volume", "number", "passenger", "travel", "throughput"}
	yearHeaderPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// ParseTable locates the checkpoint-volume table in a year page and returns
// its raw data rows. The page layout has changed several times, so location
// is heuristic: prefer a table whose headers name a date column and a
// volume-ish column, otherwise fall back to the first table whose leading
// cell parses as a date.
func ParseTable(source, html string) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := locateTable(doc)
	if table == nil {
		return nil, &ScrapeError{
			Source:  source,
			Code:    CodeNoTable,
			Message: "no checkpoint-volume table found in page",
		}
	}

	rows := ExtractRows(table)
	if len(rows) == 0 {
		return nil, &ScrapeError{
			Source:  source,
			Code:    CodeEmptyTable,
			Message: "checkpoint-volume table has no data rows",
		}
	}
	return rows, nil
}

// ExtractRows pulls (date, volume) cell pairs out of a located table. Rows
// without at least two td cells are skipped, which drops th-based header
// rows for free.
func ExtractRows(table *goquery.Selection) []Row {
	var rows []Row
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		rows = append(rows, Row{
			DateText:   strings.TrimSpace(cells.Eq(0).Text()),
			VolumeText: strings.TrimSpace(cells.Eq(1).Text()),
		})
	})
	return rows
}

func locateTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if looksLikeVolumeTable(table) {
			found = table
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if leadingCellIsDate(table) {
			found = table
			return false
		}
		return true
	})
	return found
}

func looksLikeVolumeTable(table *goquery.Selection) bool {
	var hasDate, hasVolume bool
	for _, header := range headerCells(table) {
		lower := strings.ToLower(header)
		if strings.Contains(lower, "date") {
			hasDate = true
		}
		for _, word := range volumeHeaderWords {
			if strings.Contains(lower, word) {
				hasVolume = true
				break
			}
		}
		if !hasVolume && yearHeaderPattern.MatchString(header) {
			hasVolume = true
		}
	}
	return hasDate && hasVolume
}

func headerCells(table *goquery.Selection) []string {
	var cells []string
	table.Find("th").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(s.Text()))
	})
	if len(cells) == 0 {
		// Some year pages render headers as plain td cells in the first row.
		table.Find("tr").First().Find("td").Each(func(_ int, s *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(s.Text()))
		})
	}
	return cells
}

// leadingCellIsDate probes the first few data rows; header rows sometimes
// render as plain td cells, so the very first row is not trusted alone.
func leadingCellIsDate(table *goquery.Selection) bool {
	const probeRows = 3
	seen := 0
	ok := false
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true
		}
		seen++
		if _, err := ParseVolumeDate(cells.Eq(0).Text()); err == nil {
			ok = true
			return false
		}
		return seen < probeRows
	})
	return ok
}
