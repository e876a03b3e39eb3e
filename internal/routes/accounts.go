package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/ledger"
)

// RegisterAccountRoutes exposes read-only ledger account lookups. The
// balances view reports the application asset identified by assetCode and
// assetIssuer.
func RegisterAccountRoutes(r fiber.Router, gateway ledger.Gateway, assetCode, assetIssuer string) {
	g := r.Group("/stellar/accounts")

	g.Get("/:address", func(c *fiber.Ctx) error {
		acc, err := gateway.GetAccount(c.UserContext(), c.Params("address"))
		if err != nil {
			return err
		}
		return c.JSON(acc)
	})

	g.Get("/:address/balances", func(c *fiber.Ctx) error {
		acc, err := gateway.GetAccount(c.UserContext(), c.Params("address"))
		if err != nil {
			return err
		}
		afri, hasTrustline := acc.FindBalance(assetCode, assetIssuer)
		resp := fiber.Map{
			"account_id":    acc.AccountID,
			"balances":      acc.Balances,
			"has_trustline": hasTrustline,
		}
		if hasTrustline {
			resp["afri_balance"] = afri.Balance
		}
		return c.JSON(resp)
	})
}
