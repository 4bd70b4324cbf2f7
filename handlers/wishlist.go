package handlers

import (
	"github.com/gofiber/fiber/v2"

	"conference-central/middleware"
	"conference-central/model"
)

func (h *Handlers) AddToWishlist(c *fiber.Ctx) error {
	ok, err := h.service.AddToWishlist(c.UserContext(), middleware.Identity(c), c.Params("websafeSessionKey"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.BooleanMessage{Data: ok})
}

func (h *Handlers) RemoveFromWishlist(c *fiber.Ctx) error {
	ok, err := h.service.RemoveFromWishlist(c.UserContext(), middleware.Identity(c), c.Params("websafeSessionKey"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(model.BooleanMessage{Data: ok})
}

func (h *Handlers) Wishlist(c *fiber.Ctx) error {
	sessions, err := h.service.Wishlist(c.UserContext(), middleware.Identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionForms(sessions))
}
