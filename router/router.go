package router

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"conference-central/errors"
	"conference-central/handlers"
	"conference-central/middleware"
)

// New builds the fiber app with every route registered. Cron endpoints
// require cronSecret in the X-Cron-Secret header.
func New(h *handlers.Handlers, sign, cronSecret string) *fiber.App {
	app := fiber.New(fiber.Config{
		UnescapePath: true,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	SetupRoutes(app, h, sign, cronSecret)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return errors.RaiseNotFoundError(c, fe.Message)
		}
		return errors.RaiseError(c, fe.Code, "error", fe.Message)
	}
	return errors.Respond(c, err)
}

func SetupRoutes(app *fiber.App, h *handlers.Handlers, sign, cronSecret string) {
	api := app.Group("/", logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	auth := middleware.Authorize(sign)

	//Login
	api.Post("/login", h.Login)

	//Announcement and cron trigger
	api.Get("/conference/announcement", h.GetAnnouncement)
	api.Get("/crons/set_announcement", middleware.CronOnly(cronSecret), h.SetAnnouncement)

	//Profile
	profile := api.Group("/profile")
	profile.Get("/", auth, h.GetProfile)
	profile.Post("/", auth, h.SaveProfile)

	//Conference
	api.Post("/queryConferences", auth, h.QueryConferences)
	conferences := api.Group("/conferences")
	conferences.Get("/created", auth, h.ConferencesCreated)
	conferences.Get("/attending", auth, h.ConferencesToAttend)

	conference := api.Group("/conference")
	conference.Post("/", auth, h.CreateConference)
	conference.Get("/:websafeKey", auth, h.GetConference)
	conference.Post("/:websafeKey/registration", auth, h.Register)
	conference.Delete("/:websafeKey/registration", auth, h.Unregister)

	//Sessions
	conference.Post("/:websafeKey/sessions", auth, h.CreateSession)
	conference.Get("/:websafeKey/sessions", auth, h.ConferenceSessions)
	conference.Get("/:websafeKey/sessions/type/:type", auth, h.ConferenceSessionsByType)

	sessions := api.Group("/sessions")
	sessions.Get("/speaker/:speaker", auth, h.SessionsBySpeaker())
	sessions.Get("/name/:name", auth, h.SessionsByName())
	sessions.Get("/highlights/:highlights", auth, h.SessionsByHighlights())

	//Wishlist
	wishlist := api.Group("/wishlist")
	wishlist.Get("/", auth, h.Wishlist)
	wishlist.Get("/type/:type", auth, h.WishlistByType())
	wishlist.Get("/speaker/:speaker", auth, h.WishlistBySpeaker())
	wishlist.Post("/:websafeSessionKey", auth, h.AddToWishlist)
	wishlist.Delete("/:websafeSessionKey", auth, h.RemoveFromWishlist)
}
