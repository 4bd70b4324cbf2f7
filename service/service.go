// Package service implements the conference operations: profiles,
// conferences, registration, sessions and wishlists. Every method takes the
// caller identity as resolved from the access token.
package service

import (
	"context"
	stderrors "errors"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/logging"
	"conference-central/model"
	"conference-central/tasks"
)

// Tasks is the async dispatcher used for outbound mail.
type Tasks interface {
	Enqueue(ctx context.Context, name string, params tasks.Params) (string, error)
}

type Service struct {
	store  database.Store
	tasks  Tasks
	logger logging.Logger
}

func New(store database.Store, tasks Tasks, logger logging.Logger) *Service {
	return &Service{store: store, tasks: tasks, logger: logger.With("module", "service")}
}

func requireIdentity(id model.Identity) error {
	if id.UserID == "" {
		return errors.Unauthorized("Authorization required")
	}
	return nil
}

// decodeKey parses a websafe key and checks it names an entity of kind.
func decodeKey(websafe, kind string) (*model.Key, error) {
	key, err := model.DecodeKey(websafe)
	if err != nil {
		return nil, errors.BadRequest("Invalid key: %s", websafe)
	}
	if key.Kind != kind {
		return nil, errors.NotFound("No %s found with key: %s", lowerKind(kind), websafe)
	}
	return key, nil
}

func lowerKind(kind string) string {
	switch kind {
	case model.KindConference:
		return "conference"
	case model.KindSession:
		return "session"
	}
	return kind
}

// loadOrCreateProfile returns the caller's profile, building a fresh one when
// none is stored yet. created tells the caller the profile still needs a Put.
func loadOrCreateProfile(ctx context.Context, r database.Reader, id model.Identity) (prof *model.Profile, created bool, err error) {
	prof, err = database.Load[model.Profile](ctx, r, model.ProfileKey(id.UserID))
	if stderrors.Is(err, database.ErrNoSuchEntity) {
		return model.NewProfile(id), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return prof, false, nil
}

// GetProfile returns the caller's profile, creating it on first access.
func (s *Service) GetProfile(ctx context.Context, id model.Identity) (*model.Profile, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	var prof *model.Profile
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		p, created, err := loadOrCreateProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if created {
			if err := tx.Put(ctx, p.Key, p); err != nil {
				return err
			}
		}
		prof = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prof, nil
}

// SaveProfile updates the display name and tee shirt size. Empty fields are
// left alone.
func (s *Service) SaveProfile(ctx context.Context, id model.Identity, form model.ProfileMiniForm) (*model.Profile, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	var size model.TeeShirtSize
	if form.TeeShirtSize != "" {
		var ok bool
		if size, ok = model.ParseTeeShirtSize(form.TeeShirtSize); !ok {
			return nil, errors.BadRequest("Invalid teeShirtSize: %s", form.TeeShirtSize)
		}
	}

	var prof *model.Profile
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		p, _, err := loadOrCreateProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if form.DisplayName != "" {
			p.DisplayName = form.DisplayName
		}
		if size != "" {
			p.TeeShirtSize = size
		}
		if err := tx.Put(ctx, p.Key, p); err != nil {
			return err
		}
		prof = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prof, nil
}
