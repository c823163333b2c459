package ics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fot/internal/model"
)

var stamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func matchSpec(heading string, day int) model.EventSpec {
	start := time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC)
	lat, lng := 51.811954, -0.3605304
	return model.EventSpec{
		Heading:     heading,
		Start:       start,
		End:         start.Add(75 * time.Minute),
		Meetup:      start.Add(-30 * time.Minute),
		LeadMinutes: 30,
		Description: "BLUE (home) kit",
		Location: &model.Location{
			Label: "Rothamsted Park", Address: "Rothamsted Park, Harpenden",
			Latitude: &lat, Longitude: &lng,
		},
	}
}

func TestUIDIsStable(t *testing.T) {
	a := matchSpec("Match vs Arsenal", 7)
	assert.Equal(t, UID(a), UID(matchSpec("Match vs Arsenal", 7)))
	assert.NotEqual(t, UID(a), UID(matchSpec("Match vs Arsenal", 14)))
	assert.NotEqual(t, UID(a), UID(matchSpec("Match vs Spurs", 7)))
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "match-vs-arsenal-2026-03-07.ics", DefaultFilename([]model.EventSpec{matchSpec("Match vs Arsenal", 7)}))
	assert.Equal(t, "events.ics", DefaultFilename(nil))
}

func TestBuildRoundTrip(t *testing.T) {
	specs := []model.EventSpec{matchSpec("Match vs Arsenal", 7), matchSpec("Match vs Spurs", 14)}
	specs[1].Location = nil
	specs[1].Description = ""

	out := Build(specs, stamp).Serialize()
	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, UID(specs[0]), first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Match vs Arsenal", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Contains(t, first.GetProperty(ical.ComponentPropertyLocation).Value, "Harpenden")
	assert.Contains(t, first.GetProperty(ical.ComponentPropertyGeo).Value, "51.811954")
	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(specs[0].Start))
	assert.Contains(t, out, "TRIGGER:-PT30M")

	second := events[1]
	assert.Nil(t, second.GetProperty(ical.ComponentPropertyLocation))
	assert.Equal(t, "Meet 09:30", second.GetProperty(ical.ComponentPropertyDescription).Value)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ics")
	require.NoError(t, WriteFile(path, []model.EventSpec{matchSpec("Match vs Arsenal", 7)}, stamp))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "BEGIN:VCALENDAR")
	assert.Contains(t, string(b), "SUMMARY:Match vs Arsenal")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
