package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shopnest/wallet-service/internal/wallet"
)

// RegisterWalletRoutes wires the admin wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/users", h.ListUsers)
	r.Post("/add-money", h.AddMoney)
	r.Post("/freeze/:userId", h.Freeze)
	r.Post("/unfreeze/:userId", h.Unfreeze)
	r.Get("/transactions/:userId", h.Transactions)
	r.Get("/details", h.Details)
	r.Get("/statistics", h.Statistics)
	r.Post("/transfer-to-user", h.TransferToUser)
}
