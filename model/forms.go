package model

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type ProfileMiniForm struct {
	DisplayName  string `json:"displayName"`
	TeeShirtSize string `json:"teeShirtSize"`
}

type ProfileForm struct {
	DisplayName            string   `json:"displayName"`
	MainEmail              string   `json:"mainEmail"`
	TeeShirtSize           string   `json:"teeShirtSize"`
	ConferenceKeysToAttend []string `json:"conferenceKeysToAttend"`
}

type ConferenceForm struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	OrganizerUserID      string   `json:"organizerUserId"`
	Topics               []string `json:"topics"`
	City                 string   `json:"city"`
	StartDate            string   `json:"startDate"`
	Month                int      `json:"month"`
	MaxAttendees         int      `json:"maxAttendees"`
	SeatsAvailable       int      `json:"seatsAvailable"`
	EndDate              string   `json:"endDate"`
	WebsafeKey           string   `json:"websafeKey"`
	OrganizerDisplayName string   `json:"organizerDisplayName"`
}

type ConferenceForms struct {
	Items []ConferenceForm `json:"items"`
}

type ConferenceQueryForm struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type ConferenceQueryForms struct {
	Filters []ConferenceQueryForm `json:"filters"`
}

type SessionForm struct {
	Name                 string `json:"name"`
	Highlights           string `json:"highlights"`
	Speaker              string `json:"speaker"`
	Duration             int    `json:"duration"`
	TypeOfSession        string `json:"typeOfSession"`
	Date                 string `json:"date"`
	StartTime            string `json:"startTime"`
	WebsafeKey           string `json:"websafeKey"`
	WebsafeConferenceKey string `json:"websafeConferenceKey"`
}

type SessionForms struct {
	Items []SessionForm `json:"items"`
}

type BooleanMessage struct {
	Data bool `json:"data"`
}

type StringMessage struct {
	Data string `json:"data"`
}

func ProfileToForm(p *Profile) ProfileForm {
	keys := p.ConferenceKeysToAttend
	if keys == nil {
		keys = []string{}
	}
	return ProfileForm{
		DisplayName:            p.DisplayName,
		MainEmail:              p.MainEmail,
		TeeShirtSize:           string(p.TeeShirtSize),
		ConferenceKeysToAttend: keys,
	}
}

func ConferenceToForm(c *Conference, organizerDisplayName string) ConferenceForm {
	f := ConferenceForm{
		Name:                 c.Name,
		Description:          c.Description,
		OrganizerUserID:      c.OrganizerUserID,
		Topics:               c.Topics,
		City:                 c.City,
		StartDate:            formatDate(c.StartDate),
		Month:                c.Month,
		MaxAttendees:         c.MaxAttendees,
		SeatsAvailable:       c.SeatsAvailable,
		EndDate:              formatDate(c.EndDate),
		OrganizerDisplayName: organizerDisplayName,
	}
	if c.Key != nil {
		f.WebsafeKey = c.Key.Encode()
	}
	return f
}

// ConferenceFromForm copies the user supplied fields. Defaults, ownership and
// seat accounting are the caller's business.
func ConferenceFromForm(f ConferenceForm) (*Conference, error) {
	c := &Conference{
		Name:         f.Name,
		Description:  f.Description,
		Topics:       f.Topics,
		City:         f.City,
		MaxAttendees: f.MaxAttendees,
	}
	var err error
	if c.StartDate, err = parseDate(f.StartDate); err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}
	if c.EndDate, err = parseDate(f.EndDate); err != nil {
		return nil, fmt.Errorf("endDate: %w", err)
	}
	if !c.StartDate.IsZero() {
		c.Month = int(c.StartDate.Month())
	}
	return c, nil
}

func SessionToForm(s *Session) SessionForm {
	f := SessionForm{
		Name:          s.Name,
		Highlights:    s.Highlights,
		Speaker:       s.Speaker,
		Duration:      s.Duration,
		TypeOfSession: s.TypeOfSession,
		Date:          formatDate(s.Date),
		StartTime:     s.StartTime,
	}
	if s.Key != nil {
		f.WebsafeKey = s.Key.Encode()
		if s.Key.Parent != nil {
			f.WebsafeConferenceKey = s.Key.Parent.Encode()
		}
	}
	return f
}

func SessionFromForm(f SessionForm) (*Session, error) {
	s := &Session{
		Name:          f.Name,
		Highlights:    f.Highlights,
		Speaker:       f.Speaker,
		Duration:      f.Duration,
		TypeOfSession: f.TypeOfSession,
	}
	var err error
	if s.Date, err = parseDate(f.Date); err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	if f.StartTime != "" {
		t, err := time.Parse(timeLayout, f.StartTime)
		if err != nil {
			return nil, fmt.Errorf("startTime: %w", err)
		}
		s.StartTime = t.Format(timeLayout)
	}
	return s, nil
}

// parseDate accepts anything starting with YYYY-MM-DD, so full timestamps
// sent by clients are fine too.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
