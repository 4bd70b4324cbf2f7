package handlers

import (
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
)

func isPasswordHashCorrect(dbHash, pass string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(dbHash), []byte(pass))
	return err == nil
}

// Login exchanges stored credentials for a signed access token.
func (h *Handlers) Login(c *fiber.Ctx) error {
	type Credentials struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}

	var creds = new(Credentials)

	if err := c.BodyParser(creds); err != nil {
		return errors.RaiseBadRequestError(c, "Error on login request when parse credentials")
	}
	if creds.Login == "" {
		return errors.RaiseBadRequestError(c, "login is required")
	}

	user, err := database.Load[model.UserData](c.UserContext(), h.accounts, model.AccountKey(creds.Login))
	if stderrors.Is(err, database.ErrNoSuchEntity) {
		return errors.RaisePermissionsError(c, "Invalid login or password")
	}
	if err != nil {
		return h.fail(c, err)
	}

	if !isPasswordHashCorrect(user.HashedPassword, creds.Password) {
		return errors.RaisePermissionsError(c, "Invalid login or password")
	}

	t, err := h.issueToken(user, time.Now())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Success login", "data": t})
}

func (h *Handlers) issueToken(user *model.UserData, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.Login,
		"email": user.Email,
		"name":  user.DisplayName,
		"iat":   now.Unix(),
		"exp":   now.Add(h.tokenTTL).Unix(),
	})
	return token.SignedString(h.sign)
}
