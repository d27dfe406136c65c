// handlers/coin_routes.go
package handlers

import (
	"family-reward-system/middleware"
	"family-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCoinRoutes(app *fiber.App, ledgerService *services.CoinLedgerService) {
	secured := app.Group("/coins", middleware.UserContextMiddleware())

	secured.Get("/balance/:groupId", func(c *fiber.Ctx) error {
		balance, err := ledgerService.GetBalance(currentUserID(c), c.Params("groupId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(balance)
	})

	secured.Get("/balance/:groupId/:userId", func(c *fiber.Ctx) error {
		balance, err := ledgerService.GetBalance(c.Params("userId"), c.Params("groupId"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(balance)
	})

	secured.Get("/transactions", func(c *fiber.Ctx) error {
		filter := services.TransactionFilter{
			UserID:  c.Query("user_id"),
			GroupID: c.Query("group_id"),
			Limit:   c.QueryInt("limit"),
			Offset:  c.QueryInt("offset"),
		}
		if filter.UserID == "" && filter.GroupID == "" {
			filter.UserID = currentUserID(c)
		}
		transactions, err := ledgerService.ListTransactions(filter)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(transactions)
	})
}
