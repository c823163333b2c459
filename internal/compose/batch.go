package compose

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	appLog "fot/internal/log"
	"fot/internal/model"
)

// BatchResult holds the events that composed, in input order, alongside the
// rows that did not. Rows[i] is the 1-based row number of Specs[i].
type BatchResult struct {
	Specs  []model.EventSpec
	Rows   []int
	Errors []RowError
}

// OK reports whether every row composed.
func (r BatchResult) OK() bool { return len(r.Errors) == 0 }

type rowOutcome struct {
	spec model.EventSpec
	err  error
}

// ComposeBatch composes every row without a template. Rows run on at most
// concurrency workers; a failing row is recorded and never stops the others.
func (c *Composer) ComposeBatch(ctx context.Context, rows []model.Row, concurrency int) BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	outcomes := make([]rowOutcome, len(rows))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, row := range rows {
		g.Go(func() error {
			raw, err := RowInput(row)
			if err == nil {
				outcomes[i].spec, err = c.Compose(ctx, raw, nil)
			}
			outcomes[i].err = err
			return nil
		})
	}
	_ = g.Wait()

	var res BatchResult
	for i, o := range outcomes {
		if o.err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, Err: o.err})
			continue
		}
		res.Specs = append(res.Specs, o.spec)
		res.Rows = append(res.Rows, i+1)
	}

	appLog.Info("batch composed", "rows", len(rows), "ok", len(res.Specs), "failed", len(res.Errors))
	return res
}

// RowInput maps a tabular row onto RawEventInput. Empty cells are treated
// as "not supplied"; numeric cells must parse.
func RowInput(row model.Row) (model.RawEventInput, error) {
	raw := model.RawEventInput{
		Heading:       strings.TrimSpace(row.Heading),
		Date:          strings.TrimSpace(row.Date),
		LocationQuery: strings.TrimSpace(row.Location),
	}
	if v := strings.TrimSpace(row.Time); v != "" {
		raw.Time = &v
	}
	if v := strings.TrimSpace(row.Description); v != "" {
		raw.Description = &v
	}

	var err error
	if raw.DurationMinutes, err = optionalInt("duration_mins", row.DurationMins); err != nil {
		return model.RawEventInput{}, err
	}
	if raw.LeadMinutes, err = optionalInt("meetup_prior", row.MeetupPrior); err != nil {
		return model.RawEventInput{}, err
	}
	return raw, nil
}

func optionalInt(field, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fieldErr(field, s, ErrInvalidValue)
	}
	return &n, nil
}
