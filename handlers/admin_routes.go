package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"clan-economy-bot/middleware"
	"clan-economy-bot/services"
)

// AdminAPI exposes a small internal HTTP surface for balance inspection and
// correction. It is meant for operators behind the service token, not for
// players.
type AdminAPI struct {
	Econ  *services.EconomyService
	Clans *services.ClanService
}

func SetupAdminRoutes(app *fiber.App, api *AdminAPI, serviceToken string) {
	app.Use(middleware.RequestID())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	secured := app.Group("/s/admin", middleware.GatewayAuth(serviceToken))
	secured.Get("/balances/:id", api.GetBalance)
	secured.Post("/balances/adjust", api.AdjustBalance)
	secured.Get("/leaderboard", api.GetLeaderboard)
	secured.Get("/clans", api.GetClans)
}

func (a *AdminAPI) GetBalance(c *fiber.Ctx) error {
	userID := c.Params("id")
	return c.JSON(fiber.Map{
		"user_id":   userID,
		"balance":   a.Econ.Balance(userID),
		"inventory": a.Econ.InventoryOf(userID),
	})
}

type adjustRequest struct {
	UserID string `json:"user_id"`
	Delta  int64  `json:"delta"`
}

func (a *AdminAPI) AdjustBalance(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID == "" || req.Delta == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and a non-zero delta are required"})
	}

	balance, err := a.Econ.AdminAdjust(req.UserID, req.Delta)
	if err != nil {
		log.Printf("❌ [ADMIN] Balance adjust failed for %s: %v", req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to persist balance"})
	}

	log.Printf("✅ [ADMIN] Adjusted balance of %s by %d (request %v)", req.UserID, req.Delta, c.Locals("requestID"))
	return c.JSON(fiber.Map{"user_id": req.UserID, "balance": balance})
}

func (a *AdminAPI) GetLeaderboard(c *fiber.Ctx) error {
	n := c.QueryInt("limit", 10)
	if n < 1 || n > 100 {
		n = 10
	}
	return c.JSON(fiber.Map{"entries": a.Econ.Top(n)})
}

func (a *AdminAPI) GetClans(c *fiber.Ctx) error {
	clans := a.Clans.Leaderboard()
	base := a.Clans.BaseGoal()

	type clanRow struct {
		Name    string `json:"name"`
		Tag     string `json:"tag"`
		Vault   int64  `json:"vault"`
		Level   int64  `json:"level"`
		Goal    int64  `json:"goal"`
		Members int    `json:"members"`
		Private bool   `json:"private"`
	}
	rows := make([]clanRow, 0, len(clans))
	for _, cl := range clans {
		rows = append(rows, clanRow{
			Name:    cl.Name,
			Tag:     cl.Tag,
			Vault:   cl.Vault,
			Level:   cl.Level(base),
			Goal:    cl.Goal(base),
			Members: cl.Size(),
			Private: cl.Private,
		})
	}
	return c.JSON(fiber.Map{"clans": rows})
}
