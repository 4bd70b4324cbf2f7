package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"conference-central/errors"
	"conference-central/model"
)

func attendCount(t *testing.T, s *Service, user, websafe string) int {
	t.Helper()
	prof, err := s.GetProfile(context.Background(), identity(user))
	require.NoError(t, err)
	n := 0
	for _, k := range prof.ConferenceKeysToAttend {
		if k == websafe {
			n++
		}
	}
	return n
}

func TestRegister_TakesOneSeat(t *testing.T) {
	s, _, _ := newTestService(t)
	key := createConference(t, s, "org", model.ConferenceForm{Name: "C", MaxAttendees: 3})

	ok, err := s.Register(context.Background(), identity("alice"), key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, seatsOf(t, s, key))
	assert.Equal(t, 1, attendCount(t, s, "alice", key))
}

func TestRegister_Twice(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	key := createConference(t, s, "org", model.ConferenceForm{Name: "C", MaxAttendees: 3})

	_, err := s.Register(ctx, identity("alice"), key)
	require.NoError(t, err)
	ok, err := s.Register(ctx, identity("alice"), key)
	require.ErrorIs(t, err, errors.ErrConflict)
	assert.False(t, ok)

	assert.Equal(t, 2, seatsOf(t, s, key))
	assert.Equal(t, 1, attendCount(t, s, "alice", key))
}

func TestRegister_NoSeats(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	key := createConference(t, s, "org", model.ConferenceForm{Name: "C"})

	_, err := s.Register(ctx, identity("alice"), key)
	require.ErrorIs(t, err, errors.ErrConflict)
	assert.Equal(t, 0, seatsOf(t, s, key))
	assert.Equal(t, 0, attendCount(t, s, "alice", key))
}

func TestRegister_UnknownConference(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	missing := model.IDKey(model.KindConference, 404, model.ProfileKey("org")).Encode()
	_, err := s.Register(ctx, identity("alice"), missing)
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = s.Register(ctx, identity("alice"), "%%%")
	require.ErrorIs(t, err, errors.ErrBadRequest)

	_, err = s.Register(ctx, model.Identity{}, missing)
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestUnregister_NotRegistered(t *testing.T) {
	s, _, _ := newTestService(t)
	key := createConference(t, s, "org", model.ConferenceForm{Name: "C", MaxAttendees: 3})

	ok, err := s.Unregister(context.Background(), identity("alice"), key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, seatsOf(t, s, key))
}

func TestRegisterUnregister_RoundTrip(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	key := createConference(t, s, "org", model.ConferenceForm{Name: "C", MaxAttendees: 3})

	_, err := s.Register(ctx, identity("alice"), key)
	require.NoError(t, err)
	ok, err := s.Unregister(ctx, identity("alice"), key)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 3, seatsOf(t, s, key))
	assert.Equal(t, 0, attendCount(t, s, "alice", key))
}

func TestRegister_LastSeatRace(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	key := createConference(t, s, "org", model.ConferenceForm{Name: "C", MaxAttendees: 1})

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
		other     []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			ok, err := s.Register(ctx, identity(user), key)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && ok:
				succeeded++
			case errors.KindOf(err) == errors.KindConflict:
				conflicts++
			default:
				other = append(other, err)
			}
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 0, seatsOf(t, s, key))
}

func TestRegistration_SeatAccountingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, _, _ := newService()
		ctx := context.Background()
		capacity := rapid.IntRange(0, 4).Draw(t, "capacity")
		conf, err := s.CreateConference(ctx, identity("org"), model.ConferenceForm{Name: "C", MaxAttendees: capacity})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		key := conf.Key.Encode()
		users := []string{"ann", "ben", "cat", "dan", "eve", "fay"}

		registered := map[string]bool{}
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			user := rapid.SampledFrom(users).Draw(t, "user")
			if rapid.Bool().Draw(t, "register") {
				ok, err := s.Register(ctx, identity(user), key)
				full := len(registered) >= capacity
				switch {
				case registered[user] || full:
					if errors.KindOf(err) != errors.KindConflict {
						t.Fatalf("register %s: want conflict, got ok=%v err=%v", user, ok, err)
					}
				case err != nil || !ok:
					t.Fatalf("register %s: ok=%v err=%v", user, ok, err)
				default:
					registered[user] = true
				}
			} else {
				ok, err := s.Unregister(ctx, identity(user), key)
				if err != nil {
					t.Fatalf("unregister %s: %v", user, err)
				}
				if ok != registered[user] {
					t.Fatalf("unregister %s: ok=%v, registered=%v", user, ok, registered[user])
				}
				delete(registered, user)
			}

			view, err := s.GetConference(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			seats := view.Conference.SeatsAvailable
			if seats < 0 || seats > capacity {
				t.Fatalf("seatsAvailable %d outside [0, %d]", seats, capacity)
			}
			if seats != capacity-len(registered) {
				t.Fatalf("seatsAvailable %d, want %d", seats, capacity-len(registered))
			}
		}
	})
}
