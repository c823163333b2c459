package compose

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"fot/internal/model"
	"fot/internal/template"
)

// MaxSeriesLength caps how many events one recurrence rule may produce.
const MaxSeriesLength = 52

// ComposeSeries composes raw once and repeats it on every occurrence of an
// RRULE (e.g. "FREQ=WEEKLY;COUNT=6"), starting at the composed start. The
// location is resolved once and shared by every event. The rule must be
// bounded by COUNT or UNTIL.
func (c *Composer) ComposeSeries(ctx context.Context, raw model.RawEventInput, tmpl *template.EventTemplate, rule string) ([]model.EventSpec, error) {
	first, err := c.Compose(ctx, raw, tmpl)
	if err != nil {
		return nil, err
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fieldErr("repeat", rule, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err))
	}
	if r.OrigOptions.Count <= 0 && r.OrigOptions.Until.IsZero() {
		return nil, fieldErr("repeat", rule, fmt.Errorf("%w: needs COUNT or UNTIL", ErrInvalidRecurrence))
	}
	if r.OrigOptions.Count > MaxSeriesLength {
		return nil, fieldErr("repeat", rule, fmt.Errorf("%w: more than %d events", ErrInvalidRecurrence, MaxSeriesLength))
	}
	r.DTStart(first.Start)

	// UNTIL alone does not bound the count; stop at the cap.
	var starts []time.Time
	next := r.Iterator()
	for start, ok := next(); ok; start, ok = next() {
		if len(starts) == MaxSeriesLength {
			return nil, fieldErr("repeat", rule, fmt.Errorf("%w: more than %d events", ErrInvalidRecurrence, MaxSeriesLength))
		}
		starts = append(starts, start)
	}

	duration := first.End.Sub(first.Start)
	lead := time.Duration(first.LeadMinutes) * time.Minute

	out := make([]model.EventSpec, 0, len(starts))
	for _, start := range starts {
		spec := first
		spec.Start = start.In(first.Start.Location())
		spec.End = spec.Start.Add(duration)
		spec.Meetup = spec.Start.Add(-lead)
		spec.HostIDs = slices.Clone(first.HostIDs)
		if first.Location != nil {
			loc := *first.Location
			spec.Location = &loc
		}
		out = append(out, spec)
	}
	return out, nil
}
