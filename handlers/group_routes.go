// handlers/group_routes.go
package handlers

import (
	"family-reward-system/middleware"
	"family-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGroupRoutes(app *fiber.App, groupService *services.GroupService) {
	secured := app.Group("/groups", middleware.UserContextMiddleware())

	secured.Post("/", func(c *fiber.Ctx) error {
		var input services.CreateGroupInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		group, err := groupService.Create(input, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(group)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		details, err := groupService.Details(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(details)
	})

	secured.Get("/created-by/:userId", func(c *fiber.Ctx) error {
		groups, err := groupService.ListCreatedBy(c.Params("userId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(groups)
	})

	secured.Put("/:id", func(c *fiber.Ctx) error {
		var input services.UpdateGroupInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		group, err := groupService.Update(c.Params("id"), input, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(group)
	})

	secured.Delete("/:id", func(c *fiber.Ctx) error {
		if err := groupService.Delete(c.Params("id"), currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "group deleted successfully"})
	})

	secured.Post("/:id/photo", func(c *fiber.Ctx) error {
		photo, err := c.FormFile("photo")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
		}
		url, err := groupService.UploadPhoto(c.Params("id"), photo, currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"photo_url": url})
	})

	secured.Post("/:id/members", func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := groupService.AddMember(c.Params("id"), body.UserID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "member added successfully"})
	})

	secured.Delete("/:id/members/:userId", func(c *fiber.Ctx) error {
		if err := groupService.RemoveMember(c.Params("id"), c.Params("userId")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "member removed successfully"})
	})

	secured.Post("/:id/invite", func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := groupService.InviteMember(c.Params("id"), body.Email, currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "invitation sent"})
	})

	secured.Post("/:id/accept-invite", func(c *fiber.Ctx) error {
		if err := groupService.AcceptInvite(c.Params("id"), currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "invite accepted"})
	})

	secured.Post("/:id/mark-dependent", func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := groupService.MarkDependent(c.Params("id"), body.UserID, currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "member marked as dependent"})
	})

	secured.Post("/:id/dependents", func(c *fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := groupService.AddDependent(c.Params("id"), body.Email, currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "dependent added successfully"})
	})

	secured.Get("/:id/dependents", func(c *fiber.Ctx) error {
		dependents, err := groupService.ListDependents(c.Params("id"), currentUserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(dependents)
	})

	secured.Delete("/:id/dependents/:userId", func(c *fiber.Ctx) error {
		if err := groupService.RemoveDependent(c.Params("id"), c.Params("userId"), currentUserID(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "dependent removed successfully"})
	})
}
