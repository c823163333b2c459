package spond

import (
	"time"

	"fot/internal/model"
)

// TimestampLayout is the wire format Spond expects for every timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type locationPayload struct {
	ID        *string  `json:"id"`
	Feature   *string  `json:"feature"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	PostalCode               *string `json:"postalCode,omitempty"`
	Country                  *string `json:"country,omitempty"`
	AdministrativeAreaLevel1 *string `json:"administrativeAreaLevel1,omitempty"`
	AdministrativeAreaLevel2 *string `json:"administrativeAreaLevel2,omitempty"`
}

type groupRef struct {
	ID        string   `json:"id"`
	SubGroups []string `json:"subGroups,omitempty"`
}

type recipients struct {
	Group groupRef `json:"group"`
}

type owner struct {
	ID string `json:"id"`
}

type tasks struct {
	OpenTasks     []any `json:"openTasks"`
	AssignedTasks []any `json:"assignedTasks"`
}

// CreateRequest is the body of POST sponds/.
type CreateRequest struct {
	Heading            string          `json:"heading"`
	Description        string          `json:"description"`
	SpondType          string          `json:"spondType"`
	StartTimestamp     string          `json:"startTimestamp"`
	EndTimestamp       string          `json:"endTimestamp"`
	MeetupPrior        int             `json:"meetupPrior"`
	MeetupTimestamp    string          `json:"meetupTimestamp"`
	CommentsDisabled   bool            `json:"commentsDisabled"`
	MaxAccepted        int             `json:"maxAccepted"`
	RsvpDate           *string         `json:"rsvpDate"`
	Location           locationPayload `json:"location"`
	Visibility         string          `json:"visibility"`
	ParticipantsHidden bool            `json:"participantsHidden"`
	AutoReminderType   string          `json:"autoReminderType"`
	AutoAccept         bool            `json:"autoAccept"`
	Payment            struct{}        `json:"payment"`
	Attachments        []any           `json:"attachments"`
	Tasks              tasks           `json:"tasks"`
	Type               string          `json:"type"`
	Recipients         recipients      `json:"recipients"`
	Owners             []owner         `json:"owners,omitempty"`
}

// NewCreateRequest maps a composed event onto Spond's create schema.
func NewCreateRequest(spec model.EventSpec) CreateRequest {
	req := CreateRequest{
		Heading:          spec.Heading,
		Description:      spec.Description,
		SpondType:        "EVENT",
		StartTimestamp:   FormatTimestamp(spec.Start),
		EndTimestamp:     FormatTimestamp(spec.End),
		MeetupPrior:      spec.LeadMinutes,
		MeetupTimestamp:  FormatTimestamp(spec.Meetup),
		Location:         newLocationPayload(spec.Location),
		Visibility:       "INVITEES",
		AutoReminderType: "DISABLED",
		Attachments:      []any{},
		Tasks:            tasks{OpenTasks: []any{}, AssignedTasks: []any{}},
		Type:             "EVENT",
		Recipients:       recipients{Group: groupRef{ID: spec.GroupID}},
	}
	if spec.SubgroupID != "" {
		req.Recipients.Group.SubGroups = []string{spec.SubgroupID}
	}
	for _, id := range spec.HostIDs {
		req.Owners = append(req.Owners, owner{ID: id})
	}
	return req
}

func newLocationPayload(loc *model.Location) locationPayload {
	if loc == nil {
		return locationPayload{}
	}
	return locationPayload{
		Feature:                  &loc.Label,
		Address:                  &loc.Address,
		Latitude:                 loc.Latitude,
		Longitude:                loc.Longitude,
		PostalCode:               loc.PostalCode,
		Country:                  loc.Country,
		AdministrativeAreaLevel1: loc.Region1,
		AdministrativeAreaLevel2: loc.Region2,
	}
}

// UpdateFields is a partial edit of an existing event. Nil fields are left
// untouched on the server.
type UpdateFields struct {
	Heading     *string
	Start       *time.Time
	End         *time.Time
	MeetupPrior *int
	Description *string
	Location    *model.Location
}

// Empty reports whether no field is set.
func (u UpdateFields) Empty() bool {
	return u.Heading == nil && u.Start == nil && u.End == nil &&
		u.MeetupPrior == nil && u.Description == nil && u.Location == nil
}

// Map renders the edit as the key set merged into the stored event. The
// meetup timestamp is only derivable, and so only sent, when both the start
// and the meetup prior are given.
func (u UpdateFields) Map() map[string]any {
	out := map[string]any{}
	if u.Heading != nil {
		out["heading"] = *u.Heading
	}
	if u.Start != nil {
		out["startTimestamp"] = FormatTimestamp(*u.Start)
		if u.MeetupPrior != nil {
			meetup := u.Start.Add(-time.Duration(*u.MeetupPrior) * time.Minute)
			out["meetupTimestamp"] = FormatTimestamp(meetup)
			out["meetupPrior"] = *u.MeetupPrior
		}
	}
	if u.End != nil {
		out["endTimestamp"] = FormatTimestamp(*u.End)
	}
	if u.Description != nil {
		out["description"] = *u.Description
	}
	if u.Location != nil {
		out["location"] = newLocationPayload(u.Location)
	}
	return out
}
