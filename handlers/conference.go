package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-central/middleware"
	"conference-central/model"
	"conference-central/query"
	"conference-central/service"
)

func conferenceForms(views []service.ConferenceView) model.ConferenceForms {
	out := model.ConferenceForms{Items: make([]model.ConferenceForm, 0, len(views))}
	for _, v := range views {
		out.Items = append(out.Items, model.ConferenceToForm(v.Conference, v.OrganizerDisplayName))
	}
	return out
}

func (h *Handlers) CreateConference(c *fiber.Ctx) error {
	var form model.ConferenceForm
	if err := h.parseBody(c, &form); err != nil {
		return h.fail(c, err)
	}
	conf, err := h.service.CreateConference(c.UserContext(), middleware.Identity(c), form)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(model.ConferenceToForm(conf, ""))
}

func (h *Handlers) GetConference(c *fiber.Ctx) error {
	view, err := h.service.GetConference(c.UserContext(), c.Params("websafeKey"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.ConferenceToForm(view.Conference, view.OrganizerDisplayName))
}

func (h *Handlers) QueryConferences(c *fiber.Ctx) error {
	var form model.ConferenceQueryForms
	if err := h.parseBody(c, &form); err != nil {
		return h.fail(c, err)
	}
	filters := make([]query.RawFilter, 0, len(form.Filters))
	for _, f := range form.Filters {
		filters = append(filters, query.RawFilter{Field: f.Field, Operator: f.Operator, Value: f.Value})
	}
	views, err := h.service.QueryConferences(c.UserContext(), filters)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(conferenceForms(views))
}

func (h *Handlers) ConferencesCreated(c *fiber.Ctx) error {
	views, err := h.service.ConferencesCreated(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(conferenceForms(views))
}

func (h *Handlers) ConferencesToAttend(c *fiber.Ctx) error {
	views, err := h.service.ConferencesToAttend(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(conferenceForms(views))
}

func (h *Handlers) Register(c *fiber.Ctx) error {
	ok, err := h.service.Register(c.UserContext(), middleware.Identity(c), c.Params("websafeKey"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.BooleanMessage{Data: ok})
}

func (h *Handlers) Unregister(c *fiber.Ctx) error {
	ok, err := h.service.Unregister(c.UserContext(), middleware.Identity(c), c.Params("websafeKey"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.BooleanMessage{Data: ok})
}

func (h *Handlers) GetAnnouncement(c *fiber.Ctx) error {
	return c.JSON(model.StringMessage{Data: h.announcements.Get()})
}

// SetAnnouncement is the cron trigger that recomputes the announcement.
func (h *Handlers) SetAnnouncement(c *fiber.Ctx) error {
	if _, err := h.announcements.Refresh(c.UserContext()); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
