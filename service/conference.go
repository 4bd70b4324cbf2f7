package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
	"conference-central/query"
	"conference-central/tasks"
)

const defaultCity = "Default City"

var defaultTopics = []string{"Default", "Topic"}

// ConferenceView is a conference together with its organizer's display name.
type ConferenceView struct {
	Conference           *model.Conference
	OrganizerDisplayName string
}

// CreateConference stores a new conference owned by the caller and queues
// the confirmation email.
func (s *Service) CreateConference(ctx context.Context, id model.Identity, form model.ConferenceForm) (*model.Conference, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(form.Name) == "" {
		return nil, errors.BadRequest("Conference 'name' field required")
	}
	if form.MaxAttendees < 0 {
		return nil, errors.BadRequest("maxAttendees must not be negative")
	}
	conf, err := model.ConferenceFromForm(form)
	if err != nil {
		return nil, errors.BadRequest("Invalid conference: %v", err)
	}

	if conf.City == "" {
		conf.City = defaultCity
	}
	if len(conf.Topics) == 0 {
		conf.Topics = append([]string(nil), defaultTopics...)
	}
	if conf.MaxAttendees > 0 {
		conf.SeatsAvailable = conf.MaxAttendees
	}
	conf.OrganizerUserID = id.UserID

	profileKey := model.ProfileKey(id.UserID)
	key, err := s.store.AllocateID(ctx, model.KindConference, profileKey)
	if err != nil {
		return nil, err
	}
	conf.Key = key

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx database.Tx) error {
		prof, created, err := loadOrCreateProfile(ctx, tx, id)
		if err != nil {
			return err
		}
		if created {
			if err := tx.Put(ctx, prof.Key, prof); err != nil {
				return err
			}
		}
		return tx.Put(ctx, key, conf)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "conference created", "key", key.Encode(), "organizer", id.UserID)
	s.sendConfirmation(ctx, id, conf)
	return conf, nil
}

func (s *Service) sendConfirmation(ctx context.Context, id model.Identity, conf *model.Conference) {
	if s.tasks == nil || id.Email == "" {
		return
	}
	_, err := s.tasks.Enqueue(ctx, tasks.SendConfirmationEmail, tasks.Params{
		"email":          id.Email,
		"conferenceInfo": conferenceInfo(conf),
	})
	if err != nil {
		s.logger.Warn(ctx, "confirmation email not queued", "key", conf.Key.Encode(), "err", err)
	}
}

func conferenceInfo(c *model.Conference) string {
	f := model.ConferenceToForm(c, "")
	lines := []string{
		"name: " + f.Name,
		"description: " + f.Description,
		"city: " + f.City,
		"topics: " + strings.Join(f.Topics, ", "),
		"startDate: " + f.StartDate,
		"endDate: " + f.EndDate,
		fmt.Sprintf("maxAttendees: %d", f.MaxAttendees),
	}
	return strings.Join(lines, "\r\n")
}

// GetConference returns the conference behind a websafe key.
func (s *Service) GetConference(ctx context.Context, websafeKey string) (*ConferenceView, error) {
	key, err := decodeKey(websafeKey, model.KindConference)
	if err != nil {
		return nil, err
	}
	conf, err := database.Load[model.Conference](ctx, s.store, key)
	if stderrors.Is(err, database.ErrNoSuchEntity) {
		return nil, errors.NotFound("No conference found with key: %s", websafeKey)
	}
	if err != nil {
		return nil, err
	}
	views, err := s.withOrganizers(ctx, []*model.Conference{conf})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// QueryConferences runs the user supplied filters against all conferences.
func (s *Service) QueryConferences(ctx context.Context, filters []query.RawFilter) ([]ConferenceView, error) {
	plan, err := query.Compile(filters)
	if err != nil {
		return nil, err
	}
	confs, err := database.RunQuery[model.Conference](ctx, s.store, plan.Query())
	if err != nil {
		return nil, err
	}
	return s.withOrganizers(ctx, confs)
}

// ConferencesCreated lists the caller's own conferences by name.
func (s *Service) ConferencesCreated(ctx context.Context, id model.Identity) ([]ConferenceView, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	q := database.NewQuery(model.KindConference).
		WithAncestor(model.ProfileKey(id.UserID)).
		Order(model.PropName)
	confs, err := database.RunQuery[model.Conference](ctx, s.store, q)
	if err != nil {
		return nil, err
	}
	return s.withOrganizers(ctx, confs)
}

// ConferencesToAttend lists the conferences the caller registered for, in
// registration order.
func (s *Service) ConferencesToAttend(ctx context.Context, id model.Identity) ([]ConferenceView, error) {
	prof, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	keys, err := decodeKeys(prof.ConferenceKeysToAttend)
	if err != nil {
		return nil, err
	}
	loaded, err := database.LoadMulti[model.Conference](ctx, s.store, keys)
	if err != nil {
		return nil, err
	}
	confs := make([]*model.Conference, 0, len(loaded))
	for _, c := range loaded {
		if c != nil {
			confs = append(confs, c)
		}
	}
	return s.withOrganizers(ctx, confs)
}

// withOrganizers resolves organizer display names with a single batched
// read.
func (s *Service) withOrganizers(ctx context.Context, confs []*model.Conference) ([]ConferenceView, error) {
	views := make([]ConferenceView, len(confs))
	if len(confs) == 0 {
		return views, nil
	}

	index := make(map[string]int)
	var keys []*model.Key
	for _, c := range confs {
		if _, ok := index[c.OrganizerUserID]; ok {
			continue
		}
		index[c.OrganizerUserID] = len(keys)
		keys = append(keys, model.ProfileKey(c.OrganizerUserID))
	}
	profiles, err := database.LoadMulti[model.Profile](ctx, s.store, keys)
	if err != nil {
		return nil, err
	}

	for i, c := range confs {
		views[i].Conference = c
		if p := profiles[index[c.OrganizerUserID]]; p != nil {
			views[i].OrganizerDisplayName = p.DisplayName
		}
	}
	return views, nil
}

func decodeKeys(websafe []string) ([]*model.Key, error) {
	keys := make([]*model.Key, 0, len(websafe))
	for _, w := range websafe {
		k, err := model.DecodeKey(w)
		if err != nil {
			return nil, fmt.Errorf("stored key %q: %w", w, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
