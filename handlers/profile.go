package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-central/middleware"
	"conference-central/model"
)

func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	prof, err := h.service.GetProfile(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.ProfileToForm(prof))
}

func (h *Handlers) SaveProfile(c *fiber.Ctx) error {
	var form model.ProfileMiniForm
	if err := h.parseBody(c, &form); err != nil {
		return h.fail(c, err)
	}
	prof, err := h.service.SaveProfile(c.UserContext(), middleware.Identity(c), form)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.ProfileToForm(prof))
}
