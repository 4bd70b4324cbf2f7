package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-central/errors"
	"conference-central/model"
)

type wishlistFixture struct {
	s        *Service
	generics string
	fuzzing  string
	modules  string
}

func newWishlistFixture(t *testing.T) wishlistFixture {
	t.Helper()
	s, _, _ := newTestService(t)
	conf := createConference(t, s, "org", model.ConferenceForm{Name: "C"})
	return wishlistFixture{
		s:        s,
		generics: createSession(t, s, "org", conf, model.SessionForm{Name: "Generics", Speaker: "Ian", TypeOfSession: "talk"}),
		fuzzing:  createSession(t, s, "org", conf, model.SessionForm{Name: "Fuzzing", Speaker: "Katie", TypeOfSession: "workshop"}),
		modules:  createSession(t, s, "org", conf, model.SessionForm{Name: "Modules", Speaker: "Ian", TypeOfSession: "workshop"}),
	}
}

func TestAddToWishlist_RejectsDuplicate(t *testing.T) {
	f := newWishlistFixture(t)
	ctx := context.Background()
	alice := identity("alice")

	ok, err := f.s.AddToWishlist(ctx, alice, f.generics)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.s.AddToWishlist(ctx, alice, f.generics)
	require.ErrorIs(t, err, errors.ErrConflict)
	assert.False(t, ok)

	prof, err := f.s.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{f.generics}, prof.WishlistKeys)
}

func TestAddToWishlist_ConcurrentSameUser(t *testing.T) {
	f := newWishlistFixture(t)
	ctx := context.Background()
	alice := identity("alice")

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
		go func() {
			defer wg.Done()
			ok, err := f.s.AddToWishlist(ctx, alice, f.generics)
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
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	prof, err := f.s.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{f.generics}, prof.WishlistKeys)
}

func TestAddToWishlist_UnknownSession(t *testing.T) {
	f := newWishlistFixture(t)
	ctx := context.Background()

	parent, err := model.DecodeKey(f.generics)
	require.NoError(t, err)
	missing := model.IDKey(model.KindSession, 404, parent.Parent).Encode()

	_, err = f.s.AddToWishlist(ctx, identity("alice"), missing)
	require.ErrorIs(t, err, errors.ErrNotFound)

	conf := parent.Parent.Encode()
	_, err = f.s.AddToWishlist(ctx, identity("alice"), conf)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRemoveFromWishlist(t *testing.T) {
	f := newWishlistFixture(t)
	ctx := context.Background()
	alice := identity("alice")

	ok, err := f.s.RemoveFromWishlist(ctx, alice, f.generics)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.s.AddToWishlist(ctx, alice, f.generics)
	require.NoError(t, err)
	ok, err = f.s.RemoveFromWishlist(ctx, alice, f.generics)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.s.Wishlist(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWishlist_Filters(t *testing.T) {
	f := newWishlistFixture(t)
	ctx := context.Background()
	alice := identity("alice")
	for _, key := range []string{f.modules, f.fuzzing, f.generics} {
		_, err := f.s.AddToWishlist(ctx, alice, key)
		require.NoError(t, err)
	}

	got, err := f.s.Wishlist(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Modules", "Fuzzing", "Generics"}, sessionNames(got))

	got, err = f.s.WishlistByType(ctx, alice, "workshop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Modules", "Fuzzing"}, sessionNames(got))

	got, err = f.s.WishlistBySpeaker(ctx, alice, "Ian")
	require.NoError(t, err)
	assert.Equal(t, []string{"Modules", "Generics"}, sessionNames(got))

	got, err = f.s.WishlistBySpeaker(ctx, identity("bob"), "Ian")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIntersectByKey(t *testing.T) {
	conf := model.IDKey(model.KindConference, 1, model.ProfileKey("org"))
	a := &model.Session{Key: model.IDKey(model.KindSession, 2, conf), Name: "A"}
	b := &model.Session{Key: model.IDKey(model.KindSession, 3, conf), Name: "B"}

	// same key, different object and fields: still a match
	bCopy := &model.Session{Key: model.IDKey(model.KindSession, 3, conf), Name: "B (stale)"}

	got := intersectByKey([]*model.Session{a, b}, []*model.Session{bCopy})
	require.Len(t, got, 1)
	assert.Same(t, b, got[0])
}
