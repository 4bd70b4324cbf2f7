// Package handlers exposes the conference service over HTTP.
package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/logging"
	"conference-central/service"
)

// Announcements is the cached announcement text and its refresher.
type Announcements interface {
	Get() string
	Refresh(ctx context.Context) (string, error)
}

type Handlers struct {
	service       *service.Service
	announcements Announcements
	accounts      database.Reader
	sign          []byte
	tokenTTL      time.Duration
	logger        logging.Logger
}

func New(svc *service.Service, announcements Announcements, accounts database.Reader, sign string, tokenTTL time.Duration, logger logging.Logger) *Handlers {
	return &Handlers{
		service:       svc,
		announcements: announcements,
		accounts:      accounts,
		sign:          []byte(sign),
		tokenTTL:      tokenTTL,
		logger:        logger.With("module", "handlers"),
	}
}

// fail logs unexpected errors and writes the error envelope.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	if errors.KindOf(err) == errors.KindInternal {
		h.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "err", err)
	}
	return errors.Respond(c, err)
}

func (h *Handlers) parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return errors.BadRequest("Incorrect request body: %v", err)
	}
	return nil
}
