package model

import "time"

// Stored property names, shared by the query compiler and the stores.
const (
	PropName           = "name"
	PropCity           = "city"
	PropTopics         = "topics"
	PropMonth          = "month"
	PropMaxAttendees   = "maxAttendees"
	PropSeatsAvailable = "seatsAvailable"
	PropTypeOfSession  = "typeOfSession"
	PropSpeaker        = "speaker"
	PropHighlights     = "highlights"
	PropDate           = "date"
	PropStartTime      = "startTime"
)

type Conference struct {
	Key             *Key      `json:"-" bson:"-"`
	Name            string    `json:"name" bson:"name"`
	Description     string    `json:"description" bson:"description"`
	OrganizerUserID string    `json:"organizerUserId" bson:"organizerUserId"`
	Topics          []string  `json:"topics" bson:"topics"`
	City            string    `json:"city" bson:"city"`
	StartDate       time.Time `json:"startDate" bson:"startDate"`
	EndDate         time.Time `json:"endDate" bson:"endDate"`
	Month           int       `json:"month" bson:"month"`
	MaxAttendees    int       `json:"maxAttendees" bson:"maxAttendees"`
	SeatsAvailable  int       `json:"seatsAvailable" bson:"seatsAvailable"`
}

func (c *Conference) SetKey(k *Key) { c.Key = k }

// TakeSeat decrements the seat count and reports whether a seat was free.
func (c *Conference) TakeSeat() bool {
	if c.SeatsAvailable <= 0 {
		return false
	}
	c.SeatsAvailable--
	return true
}

// ReleaseSeat gives a seat back, never beyond MaxAttendees.
func (c *Conference) ReleaseSeat() {
	if c.SeatsAvailable < c.MaxAttendees {
		c.SeatsAvailable++
	}
}
