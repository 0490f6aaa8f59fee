package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shopnest/wallet-service/internal/recharge"
)

// RegisterRechargeRoutes wires the admin wallet recharge endpoints.
func RegisterRechargeRoutes(r fiber.Router, h *recharge.Handler) {
	r.Post("/recharge/request", h.Request)
	r.Post("/recharge/create-order", h.CreateOrder)
	r.Post("/recharge/verify-payment", h.VerifyPayment)
}
