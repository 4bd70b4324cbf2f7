package service

import (
	"context"
	stderrors "errors"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
)

// AddToWishlist appends a session to the caller's wishlist. The duplicate
// check and the append run in one transaction on the profile.
func (s *Service) AddToWishlist(ctx context.Context, id model.Identity, websafeSessionKey string) (bool, error) {
	if err := requireIdentity(id); err != nil {
		return false, err
	}
	key, err := decodeKey(websafeSessionKey, model.KindSession)
	if err != nil {
		return false, err
	}
	canonical := key.Encode()

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		if _, err := tx.Get(ctx, key); err != nil {
			if stderrors.Is(err, database.ErrNoSuchEntity) {
				return errors.NotFound("No session found with key: %s", websafeSessionKey)
			}
			return err
		}
		prof, _, err := loadOrCreateProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if prof.HasWish(canonical) {
			return errors.Conflict("This session is already in your wishlist.")
		}
		prof.AddWish(canonical)
		return tx.Put(ctx, prof.Key, prof)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFromWishlist drops a session from the wishlist. It reports false
// when the session was not there.
func (s *Service) RemoveFromWishlist(ctx context.Context, id model.Identity, websafeSessionKey string) (bool, error) {
	if err := requireIdentity(id); err != nil {
		return false, err
	}
	key, err := decodeKey(websafeSessionKey, model.KindSession)
	if err != nil {
		return false, err
	}

	var removed bool
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		prof, created, err := loadOrCreateProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		removed = prof.RemoveWish(key.Encode())
		if removed || created {
			return tx.Put(ctx, prof.Key, prof)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Wishlist resolves the caller's wishlist with one batched read, in
// wishlist order. Sessions deleted since they were added are skipped.
func (s *Service) Wishlist(ctx context.Context, id model.Identity) ([]*model.Session, error) {
	prof, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	keys, err := decodeKeys(prof.WishlistKeys)
	if err != nil {
		return nil, err
	}
	loaded, err := database.LoadMulti[model.Session](ctx, s.store, keys)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Session, 0, len(loaded))
	for _, sess := range loaded {
		if sess != nil {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *Service) WishlistByType(ctx context.Context, id model.Identity, typeOfSession string) ([]*model.Session, error) {
	return s.wishlistWhere(ctx, id, model.PropTypeOfSession, typeOfSession)
}

func (s *Service) WishlistBySpeaker(ctx context.Context, id model.Identity, speaker string) ([]*model.Session, error) {
	return s.wishlistWhere(ctx, id, model.PropSpeaker, speaker)
}

// wishlistWhere intersects the wishlist with an equality query by key.
func (s *Service) wishlistWhere(ctx context.Context, id model.Identity, property, value string) ([]*model.Session, error) {
	wished, err := s.Wishlist(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(wished) == 0 {
		return wished, nil
	}
	matching, err := s.sessionsWhere(ctx, property, value)
	if err != nil {
		return nil, err
	}
	return intersectByKey(wished, matching), nil
}

// intersectByKey keeps the elements of a whose key also appears in b,
// preserving the order of a.
func intersectByKey(a, b []*model.Session) []*model.Session {
	paths := make(map[string]struct{}, len(b))
	for _, sess := range b {
		paths[sess.Key.Path()] = struct{}{}
	}
	out := make([]*model.Session, 0, len(a))
	for _, sess := range a {
		if _, ok := paths[sess.Key.Path()]; ok {
			out = append(out, sess)
		}
	}
	return out
}
