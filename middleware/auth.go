package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"conference-central/errors"
	"conference-central/model"
)

// IdentityKey is where the verified token is stored in the request locals.
const IdentityKey = "identity"

// Authorize verifies the bearer token with the HMAC secret sign.
func Authorize(sign string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(sign),
		ErrorHandler: jwtError,
		ContextKey:   IdentityKey,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// Identity returns the caller named by the verified token. It is the zero
// Identity when the request carried no token.
func Identity(c *fiber.Ctx) model.Identity {
	token, ok := c.Locals(IdentityKey).(*jwt.Token)
	if !ok || token == nil {
		return model.Identity{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}
	}
	return model.Identity{
		UserID:   stringClaim(claims, "sub"),
		Email:    stringClaim(claims, "email"),
		Nickname: stringClaim(claims, "name"),
	}
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// CronSecretHeader carries the shared secret of scheduled triggers.
const CronSecretHeader = "X-Cron-Secret"

// CronOnly admits requests presenting secret in CronSecretHeader. With an
// empty secret every request is refused.
func CronOnly(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(CronSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return errors.RaiseError(c, fiber.StatusForbidden, "forbidden", "cron trigger only")
		}
		return c.Next()
	}
}
