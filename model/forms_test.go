package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConferenceFromForm_DatesAndMonth(t *testing.T) {
	c, err := ConferenceFromForm(ConferenceForm{
		Name:      "GopherCon",
		StartDate: "2026-07-14T09:00:00.000Z",
		EndDate:   "2026-07-17",
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC), c.StartDate)
	assert.Equal(t, time.Date(2026, 7, 17, 0, 0, 0, 0, time.UTC), c.EndDate)
	assert.Equal(t, 7, c.Month)
}

func TestConferenceFromForm_NoStartDate(t *testing.T) {
	c, err := ConferenceFromForm(ConferenceForm{Name: "Unscheduled"})
	require.NoError(t, err)
	assert.Zero(t, c.Month)
	assert.True(t, c.StartDate.IsZero())
}

func TestConferenceFromForm_BadDate(t *testing.T) {
	_, err := ConferenceFromForm(ConferenceForm{Name: "x", StartDate: "14/07/2026"})
	require.Error(t, err)
}

func TestConferenceToForm(t *testing.T) {
	key := IDKey(KindConference, 3, ProfileKey("bob"))
	c := &Conference{
		Key:             key,
		Name:            "GopherCon",
		OrganizerUserID: "bob",
		Topics:          []string{"Go"},
		City:            "London",
		StartDate:       time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
		Month:           7,
		MaxAttendees:    10,
		SeatsAvailable:  9,
	}
	f := ConferenceToForm(c, "Bob")

	assert.Equal(t, "2026-07-14", f.StartDate)
	assert.Equal(t, "", f.EndDate)
	assert.Equal(t, key.Encode(), f.WebsafeKey)
	assert.Equal(t, "Bob", f.OrganizerDisplayName)
	assert.Equal(t, 9, f.SeatsAvailable)
}

func TestSessionForm_RoundTrip(t *testing.T) {
	s, err := SessionFromForm(SessionForm{
		Name:          "Generics deep dive",
		Speaker:       "Ian",
		Duration:      45,
		TypeOfSession: "workshop",
		Date:          "2026-07-15",
		StartTime:     "9:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30", s.StartTime)

	s.Key = IDKey(KindSession, 5, IDKey(KindConference, 3, ProfileKey("bob")))
	f := SessionToForm(s)
	assert.Equal(t, "2026-07-15", f.Date)
	assert.Equal(t, s.Key.Parent.Encode(), f.WebsafeConferenceKey)
	assert.Equal(t, s.Key.Encode(), f.WebsafeKey)
}

func TestSessionFromForm_BadStartTime(t *testing.T) {
	_, err := SessionFromForm(SessionForm{Name: "x", StartTime: "half past nine"})
	require.Error(t, err)
}

func TestProfile_AttendAndWishlist(t *testing.T) {
	p := NewProfile(Identity{UserID: "u1", Email: "u1@example.com", Nickname: "u1"})
	assert.Equal(t, TeeShirtNotSpecified, p.TeeShirtSize)

	p.Attend("a")
	p.Attend("b")
	assert.True(t, p.IsAttending("a"))
	assert.True(t, p.Unattend("a"))
	assert.False(t, p.Unattend("a"))
	assert.Equal(t, []string{"b"}, p.ConferenceKeysToAttend)

	p.AddWish("s1")
	assert.True(t, p.HasWish("s1"))
	assert.True(t, p.RemoveWish("s1"))
	assert.Empty(t, p.WishlistKeys)

	assert.Equal(t, []string{}, ProfileToForm(&Profile{}).ConferenceKeysToAttend)
}

func TestParseTeeShirtSize(t *testing.T) {
	size, ok := ParseTeeShirtSize("XL_W")
	assert.True(t, ok)
	assert.Equal(t, TeeShirtXLW, size)

	_, ok = ParseTeeShirtSize("HUGE")
	assert.False(t, ok)
}
