package service

import (
	"context"
	stderrors "errors"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
)

// Register takes a seat for the caller. The seat count and
// the caller's attend list change in one transaction, so two callers can
// never take the last seat.
func (s *Service) Register(ctx context.Context, id model.Identity, websafeKey string) (bool, error) {
	return s.conferenceRegistration(ctx, id, websafeKey, true)
}

// Unregister gives the caller's seat back. It reports false
// when the caller was not registered.
func (s *Service) Unregister(ctx context.Context, id model.Identity, websafeKey string) (bool, error) {
	return s.conferenceRegistration(ctx, id, websafeKey, false)
}

func (s *Service) conferenceRegistration(ctx context.Context, id model.Identity, websafeKey string, register bool) (bool, error) {
	if err := requireIdentity(id); err != nil {
		return false, err
	}
	key, err := decodeKey(websafeKey, model.KindConference)
	if err != nil {
		return false, err
	}
	canonical := key.Encode()

	var ok bool
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		ok = false
		prof, created, err := loadOrCreateProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		conf, err := database.Load[model.Conference](ctx, tx, key)
		if stderrors.Is(err, database.ErrNoSuchEntity) {
			return errors.NotFound("No conference found with key: %s", websafeKey)
		}
		if err != nil {
			return err
		}

		if register {
			if prof.IsAttending(canonical) {
				return errors.Conflict("You have already registered for this conference")
			}
			if !conf.TakeSeat() {
				return errors.Conflict("There are no seats available.")
			}
			prof.Attend(canonical)
			ok = true
		} else if prof.Unattend(canonical) {
			conf.ReleaseSeat()
			ok = true
		}

		if ok {
			if err := tx.Put(ctx, key, conf); err != nil {
				return err
			}
		}
		if ok || created {
			return tx.Put(ctx, prof.Key, prof)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	s.logger.Debug(ctx, "registration changed", "key", canonical, "user", id.UserID, "register", register, "ok", ok)
	return ok, nil
}
