// handlers/reward_routes.go
package handlers

import (
	"family-reward-system/middleware"
	"family-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewardService *services.RewardService) {
	secured := app.Group("/rewards", middleware.UserContextMiddleware())

	secured.Post("/", func(c *fiber.Ctx) error {
		var input services.CreateRewardInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		reward, err := rewardService.Create(input, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(reward)
	})

	secured.Delete("/:id", func(c *fiber.Ctx) error {
		if err := rewardService.Delete(c.Params("id"), currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "reward deleted successfully"})
	})

	secured.Get("/group/:groupId", func(c *fiber.Ctx) error {
		rewards, err := rewardService.ListByGroup(c.Params("groupId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rewards)
	})

	secured.Post("/:id/redeem", func(c *fiber.Ctx) error {
		balance, err := rewardService.Redeem(c.Params("id"), currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "reward redeemed successfully",
			"balance": balance,
		})
	})

	secured.Get("/group/:groupId/redeemed/:userId", func(c *fiber.Ctx) error {
		redeemed, err := rewardService.ListRedeemedByUserInGroup(c.Params("groupId"), c.Params("userId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(redeemed)
	})
}
