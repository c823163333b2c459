package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fot/internal/model"
)

const sample = `heading,date,time,duration_mins,location,description
Match vs Arsenal U10,2026-03-07,10:00,90,Hackney Marshes,League match

Match vs Chelsea U10,2026-03-14,14:00,,"Victoria Park, London",Cup match
`

func TestRead(t *testing.T) {
	rows, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.Row{
		Heading: "Match vs Arsenal U10", Date: "2026-03-07", Time: "10:00",
		DurationMins: "90", Location: "Hackney Marshes", Description: "League match",
	}, rows[0])
	assert.Equal(t, "Victoria Park, London", rows[1].Location)
	assert.Empty(t, rows[1].DurationMins)
}

func TestReadReorderedAndShortRows(t *testing.T) {
	rows, err := Read(strings.NewReader("\ufeffDate,Heading,meetup_prior\n2026-04-04,Friendly,45\n2026-04-11\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Friendly", rows[0].Heading)
	assert.Equal(t, "45", rows[0].MeetupPrior)
	assert.Equal(t, "2026-04-11", rows[1].Date)
	assert.Empty(t, rows[1].Heading)
}

func TestReadMissingRequiredColumn(t *testing.T) {
	_, err := Read(strings.NewReader("heading,time\nx,10:00\n"))
	assert.ErrorContains(t, err, `missing column "date"`)
}

func TestReadEmpty(t *testing.T) {
	rows, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
