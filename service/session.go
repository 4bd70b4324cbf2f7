package service

import (
	"context"
	stderrors "errors"
	"strings"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
)

const (
	defaultHighlights = "Coming Soon"
	defaultDuration   = 60
)

// CreateSession adds a session to a conference. Only the conference
// organizer may do so.
func (s *Service) CreateSession(ctx context.Context, id model.Identity, websafeConferenceKey string, form model.SessionForm) (*model.Session, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(form.Name) == "" {
		return nil, errors.BadRequest("Session 'name' field required.")
	}
	if form.Duration < 0 {
		return nil, errors.BadRequest("duration must not be negative")
	}
	confKey, err := decodeKey(websafeConferenceKey, model.KindConference)
	if err != nil {
		return nil, err
	}
	sess, err := model.SessionFromForm(form)
	if err != nil {
		return nil, errors.BadRequest("Invalid session: %v", err)
	}
	if sess.Highlights == "" {
		sess.Highlights = defaultHighlights
	}
	if sess.Duration == 0 {
		sess.Duration = defaultDuration
	}

	conf, err := s.loadConference(ctx, confKey, websafeConferenceKey)
	if err != nil {
		return nil, err
	}
	if conf.OrganizerUserID != id.UserID {
		return nil, errors.Unauthorized("Only the organizer can add sessions to the conference.")
	}

	key, err := s.store.AllocateID(ctx, model.KindSession, confKey)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, key, sess); err != nil {
		return nil, err
	}
	sess.Key = key
	s.logger.Info(ctx, "session created", "key", key.Encode(), "conference", confKey.Encode())
	return sess, nil
}

func (s *Service) loadConference(ctx context.Context, key *model.Key, websafe string) (*model.Conference, error) {
	conf, err := database.Load[model.Conference](ctx, s.store, key)
	if stderrors.Is(err, database.ErrNoSuchEntity) {
		return nil, errors.NotFound("No conference found with key: %s", websafe)
	}
	return conf, err
}

// ConferenceSessions lists the sessions of a conference by date and start
// time.
func (s *Service) ConferenceSessions(ctx context.Context, websafeConferenceKey string) ([]*model.Session, error) {
	return s.conferenceSessions(ctx, websafeConferenceKey, nil)
}

// ConferenceSessionsByType is ConferenceSessions restricted to one type of
// session.
func (s *Service) ConferenceSessionsByType(ctx context.Context, websafeConferenceKey, typeOfSession string) ([]*model.Session, error) {
	return s.conferenceSessions(ctx, websafeConferenceKey, func(q *database.Query) {
		q.Filter(model.PropTypeOfSession, database.OpEqual, typeOfSession)
	})
}

func (s *Service) conferenceSessions(ctx context.Context, websafe string, refine func(*database.Query)) ([]*model.Session, error) {
	key, err := decodeKey(websafe, model.KindConference)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadConference(ctx, key, websafe); err != nil {
		return nil, err
	}
	q := database.NewQuery(model.KindSession).WithAncestor(key)
	if refine != nil {
		refine(q)
	}
	q.Order(model.PropDate).Order(model.PropStartTime)
	return database.RunQuery[model.Session](ctx, s.store, q)
}

func (s *Service) SessionsBySpeaker(ctx context.Context, speaker string) ([]*model.Session, error) {
	return s.sessionsWhere(ctx, model.PropSpeaker, speaker)
}

func (s *Service) SessionsByName(ctx context.Context, name string) ([]*model.Session, error) {
	return s.sessionsWhere(ctx, model.PropName, name)
}

func (s *Service) SessionsByHighlights(ctx context.Context, highlights string) ([]*model.Session, error) {
	return s.sessionsWhere(ctx, model.PropHighlights, highlights)
}

// sessionsWhere runs a plain equality query across all conferences.
func (s *Service) sessionsWhere(ctx context.Context, property, value string) ([]*model.Session, error) {
	q := database.NewQuery(model.KindSession).Filter(property, database.OpEqual, value)
	return database.RunQuery[model.Session](ctx, s.store, q)
}
