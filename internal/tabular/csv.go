// Package tabular reads batch event rows from CSV.
//
// Expected header (order free, case-insensitive):
//
//	heading,date,time,duration_mins,location,description[,meetup_prior]
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fot/internal/model"
)

var requiredColumns = []string{"heading", "date"}

// ReadFile opens path and reads every row.
func ReadFile(path string) ([]model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a CSV stream with a header line. Missing optional columns read
// as empty cells; per-field validation is left to composition.
func Read(r io.Reader) ([]model.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		// Excel likes to prepend a BOM.
		h = strings.TrimPrefix(h, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv header: missing column %q", col)
		}
	}

	var rows []model.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if blank(rec) {
			continue
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		rows = append(rows, model.Row{
			Heading:      cell("heading"),
			Date:         cell("date"),
			Time:         cell("time"),
			DurationMins: cell("duration_mins"),
			Location:     cell("location"),
			Description:  cell("description"),
			MeetupPrior:  cell("meetup_prior"),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
