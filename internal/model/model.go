package model

import "time"

// Location is a venue normalized across geocoding providers.
//
// Optional administrative fields are nil when the provider did not supply
// them; they are never set to "". Latitude and Longitude are either both
// set or both nil.
type Location struct {
	Label   string // short display name (Spond "feature")
	Address string // shortened human-readable address

	Latitude  *float64
	Longitude *float64

	PostalCode *string
	Country    *string // ISO 3166-1 alpha-2, upper case
	Region1    *string // state / region
	Region2    *string // county / district
}

// HasCoordinates reports whether both coordinates are present.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// AddressOnly builds a degraded location carrying only the free text.
func AddressOnly(text string) Location {
	return Location{Label: text, Address: text}
}

// EventSpec is a fully composed event ready for preview or submission.
type EventSpec struct {
	Heading string

	Start  time.Time
	End    time.Time
	Meetup time.Time

	DurationMinutes int
	LeadMinutes     int

	Description string
	Location    *Location

	GroupID    string
	SubgroupID string // empty when the event targets the whole group
	HostIDs    []string

	// Template is the preset the event was composed with ("" for none).
	Template string
}

// RawEventInput is one user request before composition. Pointer fields are
// optional; nil means "not supplied" so an explicit zero stays distinguishable.
type RawEventInput struct {
	Heading string
	Date    string // YYYY-MM-DD

	Time            *string // HH:MM
	DurationMinutes *int
	LeadMinutes     *int
	Description     *string

	// LocationQuery is free text to geocode. Location, when set, is an
	// already-resolved venue and takes precedence over the query.
	LocationQuery string
	Location      *Location
}

// Row is one record from a tabular source. Every field is raw text.
type Row struct {
	Heading      string
	Date         string
	Time         string
	DurationMins string
	Location     string
	Description  string
	MeetupPrior  string
}

// Ptr returns a pointer to v. Handy for building RawEventInput literals.
func Ptr[T any](v T) *T {
	return &v
}
