// Package compose turns sparse event input plus an optional template into
// fully specified events.
package compose

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"fot/internal/location"
	"fot/internal/model"
	"fot/internal/template"
)

// Baseline values used when neither the input nor a template has one.
const (
	DefaultTime            = "10:00"
	DefaultDurationMinutes = 75
	DefaultLeadMinutes     = 30
)

const dateLayout = "2006-01-02"

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// LocationResolver is satisfied by *location.Resolver.
type LocationResolver interface {
	Resolve(ctx context.Context, query string, resolved, fixed *model.Location) *model.Location
}

// Options carries the process-wide settings an event needs. It is passed in
// explicitly so composition never reads ambient state.
type Options struct {
	GroupID    string
	SubgroupID string
	HostIDs    []string

	// Zone the date and time are interpreted in. Nil means UTC.
	Zone *time.Location
}

type Composer struct {
	resolver LocationResolver
	opts     Options
}

func New(resolver LocationResolver, opts Options) *Composer {
	if opts.Zone == nil {
		opts.Zone = time.UTC
	}
	if resolver == nil {
		// No geocoder: fixed locations still apply and queries degrade to
		// address-only.
		resolver = location.NewResolver(nil, "")
	}
	return &Composer{resolver: resolver, opts: opts}
}

// coalesce returns the explicit value when supplied, else the template value
// when non-zero, else def.
func coalesce[T comparable](explicit *T, tmpl, def T) T {
	if explicit != nil {
		return *explicit
	}
	var zero T
	if tmpl != zero {
		return tmpl
	}
	return def
}

// Compose builds one event. tmpl may be nil. Field validation happens before
// location resolution so bad input never triggers a geocoding request.
func (c *Composer) Compose(ctx context.Context, raw model.RawEventInput, tmpl *template.EventTemplate) (model.EventSpec, error) {
	var t template.EventTemplate
	if tmpl != nil {
		t = *tmpl
	}

	heading := strings.TrimSpace(raw.Heading)
	if heading == "" {
		return model.EventSpec{}, fieldErr("heading", "", ErrMissingField)
	}
	// Literal containment keeps the suffix from doubling on resubmits.
	if t.HeadingSuffix != "" && !strings.Contains(heading, t.HeadingSuffix) {
		heading += t.HeadingSuffix
	}

	date, err := parseDate(raw.Date, c.opts.Zone)
	if err != nil {
		return model.EventSpec{}, err
	}

	clock := coalesce(raw.Time, t.DefaultTime, DefaultTime)
	hour, minute, err := parseClock(clock)
	if err != nil {
		return model.EventSpec{}, err
	}

	duration := coalesce(raw.DurationMinutes, t.DefaultDurationMinutes, DefaultDurationMinutes)
	if duration <= 0 {
		return model.EventSpec{}, fieldErr("duration", strconv.Itoa(duration), ErrInvalidValue)
	}
	lead := coalesce(raw.LeadMinutes, t.DefaultLeadMinutes, DefaultLeadMinutes)
	if lead < 0 {
		return model.EventSpec{}, fieldErr("meetup_prior", strconv.Itoa(lead), ErrInvalidValue)
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, c.opts.Zone)

	spec := model.EventSpec{
		Heading:         heading,
		Start:           start,
		End:             start.Add(time.Duration(duration) * time.Minute),
		Meetup:          start.Add(-time.Duration(lead) * time.Minute),
		DurationMinutes: duration,
		LeadMinutes:     lead,
		Description:     mergeDescription(t.DescriptionPrefix, raw.Description),
		GroupID:         c.opts.GroupID,
		SubgroupID:      c.opts.SubgroupID,
		HostIDs:         slices.Clone(c.opts.HostIDs),
		Template:        t.Name,
	}
	if spec.HostIDs == nil {
		spec.HostIDs = []string{}
	}

	spec.Location = c.resolver.Resolve(ctx, raw.LocationQuery, raw.Location, t.FixedLocation)

	return spec, nil
}

// mergeDescription joins the template prefix and the user text with a blank
// line, or returns whichever one is present.
func mergeDescription(prefix string, desc *string) string {
	user := ""
	if desc != nil {
		user = strings.TrimSpace(*desc)
	}
	switch {
	case prefix != "" && user != "":
		return prefix + "\n\n" + user
	case user != "":
		return user
	default:
		return prefix
	}
}

// StartAt parses a "YYYY-MM-DD" date and "HH:MM" clock in zone. It applies
// the same validation as Compose and is used for partial updates.
func StartAt(date, clock string, zone *time.Location) (time.Time, error) {
	if zone == nil {
		zone = time.UTC
	}
	d, err := parseDate(date, zone)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, zone), nil
}

func parseDate(s string, zone *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fieldErr("date", "", ErrMissingField)
	}
	d, err := time.ParseInLocation(dateLayout, s, zone)
	if err != nil {
		return time.Time{}, fieldErr("date", s, ErrInvalidDateFormat)
	}
	return d, nil
}

// parseClock accepts only zero-padded 24-hour "HH:MM".
func parseClock(s string) (int, int, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fieldErr("time", s, ErrInvalidTimeFormat)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return hour, minute, nil
}
