// Package ics exports composed events as an iCalendar file so they can be
// imported into a personal calendar alongside (or instead of) Spond.
package ics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	appLog "fot/internal/log"
	"fot/internal/model"
)

const prodID = "-//footballorganisertoolkit//fot//EN"

// uidNamespace scopes the UUIDv5 values minted by UID.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/footballorganisertoolkit/fot"))

// UID derives a stable identifier from the heading and start instant.
func UID(spec model.EventSpec) string {
	name := spec.Heading + "|" + spec.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

// DefaultFilename is "<slugified heading>-<YYYY-MM-DD>.ics" for the first
// event in specs.
func DefaultFilename(specs []model.EventSpec) string {
	if len(specs) == 0 {
		return "events.ics"
	}
	first := specs[0]
	name := slug.Make(first.Heading)
	if name == "" {
		name = "event"
	}
	return fmt.Sprintf("%s-%s.ics", name, first.Start.Format(time.DateOnly))
}

// Build renders specs into a calendar. stamp is written as DTSTAMP on every
// event; callers pass a fixed value to keep output reproducible.
func Build(specs []model.EventSpec, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, spec := range specs {
		ev := cal.AddEvent(UID(spec))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(spec.Start.UTC())
		ev.SetEndAt(spec.End.UTC())
		ev.SetSummary(spec.Heading)
		if desc := description(spec); desc != "" {
			ev.SetDescription(desc)
		}
		if loc := spec.Location; loc != nil {
			ev.SetLocation(locationText(loc))
			if loc.HasCoordinates() {
				ev.SetProperty(ical.ComponentPropertyGeo, fmt.Sprintf("%f;%f", *loc.Latitude, *loc.Longitude))
			}
		}
		if spec.LeadMinutes > 0 {
			alarm := ev.AddAlarm()
			alarm.SetProperty(ical.ComponentPropertyAction, "DISPLAY")
			alarm.SetProperty(ical.ComponentPropertyDescription, "Meet up: "+spec.Heading)
			alarm.SetProperty(ical.ComponentPropertyTrigger, fmt.Sprintf("-PT%dM", spec.LeadMinutes))
		}
	}
	return cal
}

func description(spec model.EventSpec) string {
	meetup := "Meet " + spec.Meetup.Format("15:04")
	if spec.Description == "" {
		return meetup
	}
	return spec.Description + "\n\n" + meetup
}

func locationText(loc *model.Location) string {
	if loc.Address == "" || strings.Contains(loc.Address, loc.Label) {
		return loc.Address
	}
	return loc.Label + ", " + loc.Address
}

// Write serializes specs to w.
func Write(w io.Writer, specs []model.EventSpec, stamp time.Time) error {
	_, err := io.WriteString(w, Build(specs, stamp).Serialize())
	return err
}

// WriteFile writes specs to path via a temp file and rename.
func WriteFile(path string, specs []model.EventSpec, stamp time.Time) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fot-ics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, specs, stamp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	appLog.Info("ics written", "path", path, "events", len(specs))
	return nil
}
