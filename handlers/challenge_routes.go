// handlers/challenge_routes.go
package handlers

import (
	"family-reward-system/middleware"
	"family-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService) {
	secured := app.Group("/challenges", middleware.UserContextMiddleware())

	secured.Post("/", func(c *fiber.Ctx) error {
		var input services.CreateChallengeInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		challenge, err := challengeService.Create(input, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})

	secured.Get("/pending-validation", func(c *fiber.Ctx) error {
		claims, err := challengeService.ListPendingValidation(currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(claims)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		challenge, assigned, err := challengeService.Details(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"challenge":      challenge,
			"assigned_users": assigned,
		})
	})

	secured.Put("/:id", func(c *fiber.Ctx) error {
		var input services.UpdateChallengeInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		challenge, err := challengeService.Update(c.Params("id"), input, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(challenge)
	})

	secured.Delete("/:id", func(c *fiber.Ctx) error {
		if err := challengeService.Delete(c.Params("id"), currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "challenge deleted successfully"})
	})

	secured.Post("/:id/assign", func(c *fiber.Ctx) error {
		var body struct {
			UserIDs []string `json:"user_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := challengeService.AssignUsers(c.Params("id"), body.UserIDs); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "users assigned successfully"})
	})

	secured.Post("/:id/complete", func(c *fiber.Ctx) error {
		claim, err := challengeService.MarkCompleted(c.Params("id"), currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	})

	secured.Post("/:id/validate", func(c *fiber.Ctx) error {
		var body struct {
			UserID      string `json:"user_id"`
			IsCompleted bool   `json:"is_completed"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		claim, err := challengeService.ValidateCompletion(c.Params("id"), body.UserID, body.IsCompleted, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(claim)
	})

	secured.Get("/created-by/:userId", func(c *fiber.Ctx) error {
		challenges, err := challengeService.ListCreatedBy(c.Params("userId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(challenges)
	})

	secured.Get("/assigned-to/:userId", func(c *fiber.Ctx) error {
		challenges, err := challengeService.ListAssignedTo(c.Params("userId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(challenges)
	})
}
