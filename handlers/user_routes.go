// handlers/user_routes.go
package handlers

import (
	"errors"

	"family-reward-system/middleware"
	"family-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	users := app.Group("/users")

	users.Post("/register", func(c *fiber.Ctx) error {
		var input services.RegisterInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		user, err := userService.Register(input)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	users.Post("/forgot-password", func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		// Unknown emails get the same answer so the endpoint cannot be used
		// to probe accounts.
		if err := userService.ForgotPassword(body.Email); err != nil && !errors.Is(err, services.ErrNotFound) {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "if the email exists, a reset link has been sent"})
	})

	users.Post("/reset-password", func(c *fiber.Ctx) error {
		var input services.ResetPasswordInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := userService.ResetPassword(input); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "password reset successfully"})
	})

	secured := users.Group("/", middleware.UserContextMiddleware())

	secured.Get("/by-email/:email", func(c *fiber.Ctx) error {
		user, err := userService.FindByEmail(c.Params("email"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(user)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		profile, err := userService.Profile(c.Params("id"), currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(profile)
	})

	secured.Post("/:id/photo", func(c *fiber.Ctx) error {
		if c.Params("id") != currentUserID(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "cannot change another user's photo"})
		}
		photo, err := c.FormFile("photo")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
		}
		url, err := userService.UploadProfilePhoto(currentUserID(c), photo)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"photo_url": url})
	})
}
