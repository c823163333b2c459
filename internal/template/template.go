package template

import (
	"errors"
	"fmt"
	"sort"

	"fot/internal/model"
)

const (
	Home = "home"
	Away = "away"
)

// ErrConflictingTemplates is returned when more than one preset is selected.
var ErrConflictingTemplates = errors.New("cannot use both --home and --away")

// ErrUnknownTemplate is returned by Lookup for names not in the registry.
var ErrUnknownTemplate = errors.New("unknown event template")

// EventTemplate is a named bundle of defaults. Zero values mean "no default".
type EventTemplate struct {
	Name string

	DefaultTime            string // HH:MM
	DefaultDurationMinutes int
	DefaultLeadMinutes     int

	HeadingSuffix     string
	DescriptionPrefix string

	FixedLocation *model.Location
}

func ptr[T any](v T) *T { return &v }

var registry = map[string]EventTemplate{
	Home: {
		Name:                   Home,
		DefaultTime:            "10:00",
		DefaultDurationMinutes: 75,
		DefaultLeadMinutes:     30,
		DescriptionPrefix: "BLUE (home) kit\n" +
			"\n" +
			"Rothamsted venue info: https://drive.google.com/file/d/1Z21E2VEupl3gc1yIs305VgQ9TXECRK70/view?usp=sharing",
		FixedLocation: &model.Location{
			Label:     "Rothamsted Park",
			Address:   "Rothamsted Park, Harpenden",
			Latitude:  ptr(51.811954),
			Longitude: ptr(-0.3605304),
			Country:   ptr("GB"),
			Region1:   ptr("England"),
			Region2:   ptr("Hertfordshire"),
		},
	},
	Away: {
		Name:                   Away,
		DefaultTime:            "10:00",
		DefaultDurationMinutes: 210,
		DefaultLeadMinutes:     30,
		HeadingSuffix:          " - TIME AND DETAILS TBC",
		DescriptionPrefix: "Meeting/kickoff time and full details will be confirmed at least 3 days " +
			"before the match once notified by the home team.",
	},
}

// Lookup returns a copy of the named template. The fixed location is copied
// too so callers cannot mutate the registry.
func Lookup(name string) (EventTemplate, error) {
	t, ok := registry[name]
	if !ok {
		return EventTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	if t.FixedLocation != nil {
		loc := *t.FixedLocation
		t.FixedLocation = &loc
	}
	return t, nil
}

// Select resolves the --home/--away flags into at most one template.
// A nil result means no template.
func Select(home, away bool) (*EventTemplate, error) {
	if home && away {
		return nil, ErrConflictingTemplates
	}
	name := ""
	switch {
	case home:
		name = Home
	case away:
		name = Away
	default:
		return nil, nil
	}
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Names lists the registered templates in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
