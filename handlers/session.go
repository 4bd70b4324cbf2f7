package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-central/middleware"
	"conference-central/model"
)

func sessionForms(sessions []*model.Session) model.SessionForms {
	out := model.SessionForms{Items: make([]model.SessionForm, 0, len(sessions))}
	for _, s := range sessions {
		out.Items = append(out.Items, model.SessionToForm(s))
	}
	return out
}

// sessionList adapts a session lookup keyed by one path parameter.
func (h *Handlers) sessionList(param string, list func(c *fiber.Ctx, value string) ([]*model.Session, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := list(c, c.Params(param))
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(sessionForms(sessions))
	}
}

func (h *Handlers) CreateSession(c *fiber.Ctx) error {
	var form model.SessionForm
	if err := h.parseBody(c, &form); err != nil {
		return h.fail(c, err)
	}
	sess, err := h.service.CreateSession(c.UserContext(), middleware.Identity(c), c.Params("websafeKey"), form)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(model.SessionToForm(sess))
}

func (h *Handlers) ConferenceSessions(c *fiber.Ctx) error {
	sessions, err := h.service.ConferenceSessions(c.UserContext(), c.Params("websafeKey"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionForms(sessions))
}

func (h *Handlers) ConferenceSessionsByType(c *fiber.Ctx) error {
	sessions, err := h.service.ConferenceSessionsByType(c.UserContext(), c.Params("websafeKey"), c.Params("type"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionForms(sessions))
}

func (h *Handlers) SessionsBySpeaker() fiber.Handler {
	return h.sessionList("speaker", func(c *fiber.Ctx, v string) ([]*model.Session, error) {
		return h.service.SessionsBySpeaker(c.UserContext(), v)
	})
}

func (h *Handlers) SessionsByName() fiber.Handler {
	return h.sessionList("name", func(c *fiber.Ctx, v string) ([]*model.Session, error) {
		return h.service.SessionsByName(c.UserContext(), v)
	})
}

func (h *Handlers) SessionsByHighlights() fiber.Handler {
	return h.sessionList("highlights", func(c *fiber.Ctx, v string) ([]*model.Session, error) {
		return h.service.SessionsByHighlights(c.UserContext(), v)
	})
}

func (h *Handlers) WishlistByType() fiber.Handler {
	return h.sessionList("type", func(c *fiber.Ctx, v string) ([]*model.Session, error) {
		return h.service.WishlistByType(c.UserContext(), middleware.Identity(c), v)
	})
}

func (h *Handlers) WishlistBySpeaker() fiber.Handler {
	return h.sessionList("speaker", func(c *fiber.Ctx, v string) ([]*model.Session, error) {
		return h.service.WishlistBySpeaker(c.UserContext(), middleware.Identity(c), v)
	})
}
