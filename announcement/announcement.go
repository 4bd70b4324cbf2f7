// Package announcement maintains the "nearly sold out" banner shown to
// visitors. The banner is recomputed from the store by Refresh and served
// from an in-process cache.
package announcement

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"conference-central/database"
	"conference-central/logging"
	"conference-central/model"
)

const (
	CacheKey = "RECENT_ANNOUNCEMENTS"
	template = "Last chance to attend! The following conferences are nearly sold out: %s"

	// NearlySoldOut is the highest seat count still announced.
	NearlySoldOut = 5
)

type Service struct {
	store  database.Reader
	cache  *gocache.Cache
	logger logging.Logger
}

func New(store database.Reader, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		cache:  gocache.New(gocache.NoExpiration, 0),
		logger: logger.With("module", "announcement"),
	}
}

// Refresh scans for conferences with 1 to NearlySoldOut seats left and sets
// the announcement, or clears it when there are none.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	q := database.NewQuery(model.KindConference).
		Filter(model.PropSeatsAvailable, database.OpLessOrEqual, NearlySoldOut).
		Filter(model.PropSeatsAvailable, database.OpGreaterThan, 0).
		Order(model.PropSeatsAvailable).
		Order(model.PropName)
	confs, err := database.RunQuery[model.Conference](ctx, s.store, q)
	if err != nil {
		return "", fmt.Errorf("announcement query: %w", err)
	}

	if len(confs) == 0 {
		s.cache.Delete(CacheKey)
		s.logger.Debug(ctx, "announcement cleared")
		return "", nil
	}

	names := make([]string, len(confs))
	for i, c := range confs {
		names[i] = c.Name
	}
	announcement := fmt.Sprintf(template, strings.Join(names, ", "))
	s.cache.Set(CacheKey, announcement, gocache.NoExpiration)
	s.logger.Info(ctx, "announcement set", "conferences", len(confs))
	return announcement, nil
}

// Get returns the cached announcement or "".
func (s *Service) Get() string {
	v, found := s.cache.Get(CacheKey)
	if !found {
		return ""
	}
	announcement, _ := v.(string)
	return announcement
}

// Run refreshes immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Error(ctx, "announcement refresh failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
