// Package preview renders composed events as the plain text shown before
// submission and on --dry-run.
package preview

import (
	"fmt"
	"io"
	"strings"

	"fot/internal/model"
)

// Event writes the detail block for a single event.
func Event(w io.Writer, spec model.EventSpec) {
	fmt.Fprintf(w, "  Event:    %s\n", spec.Heading)
	if spec.Template != "" {
		fmt.Fprintf(w, "  Type:     %s\n", strings.ToUpper(spec.Template))
	}
	fmt.Fprintf(w, "  Date:     %s\n", spec.Start.Format("Mon 02 Jan 2006"))
	fmt.Fprintf(w, "  Meetup:   %s\n", spec.Meetup.Format("15:04"))
	fmt.Fprintf(w, "  Kick-off: %s - %s\n", spec.Start.Format("15:04"), spec.End.Format("15:04"))
	fmt.Fprintf(w, "  Duration: %d min\n", spec.DurationMinutes)
	if loc := spec.Location; loc != nil && loc.Address != "" {
		fmt.Fprintf(w, "  Location: %s\n", loc.Address)
		if loc.HasCoordinates() {
			fmt.Fprintf(w, "  Coords:   %.6f, %.6f\n", *loc.Latitude, *loc.Longitude)
		}
	}
	if spec.Description != "" {
		fmt.Fprintf(w, "  Description:\n    %s\n", strings.ReplaceAll(spec.Description, "\n", "\n    "))
	}
}

// Line writes the one-line batch summary of an event.
func Line(w io.Writer, spec model.EventSpec) {
	fmt.Fprintf(w, "  %s-%s  %s\n", spec.Start.Format("Mon 02 Jan 15:04"), spec.End.Format("15:04"), spec.Heading)
	if spec.Location != nil && spec.Location.Address != "" {
		fmt.Fprintf(w, "    Location: %s\n", spec.Location.Address)
	}
}

// Lines writes Line for every spec, in order.
func Lines(w io.Writer, specs []model.EventSpec) {
	for _, s := range specs {
		Line(w, s)
	}
}
