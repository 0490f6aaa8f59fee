package recharge

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shopnest/wallet-service/internal/gateway"
	"github.com/shopnest/wallet-service/internal/wallet"
)

// Handler exposes the admin wallet recharge endpoints.
type Handler struct {
	service *Service
	wallets *wallet.Service
}

// NewHandler builds a recharge HTTP handler.
func NewHandler(service *Service, wallets *wallet.Service) *Handler {
	return &Handler{service: service, wallets: wallets}
}

type requestBody struct {
	Amount int64 `json:"amount"`
}

// Request initiates a recharge of the calling admin's wallet.
func (h *Handler) Request(c *fiber.Ctx) error {
	var body requestBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, ErrInvalidAmount)
	}

	adminID, _ := c.Locals("admin_id").(string)
	w, err := h.wallets.GetOrCreate(c.UserContext(), adminID, wallet.OwnerAdmin)
	if err != nil {
		return respondError(c, err)
	}

	req, err := h.service.Request(c.UserContext(), w.ID, body.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"rechargeRequest": fiber.Map{
			"id":     req.ID,
			"amount": req.Amount,
			"status": req.Status,
		},
	})
}

type createOrderBody struct {
	Amount            int64  `json:"amount"`
	RechargeRequestID string `json:"rechargeRequestId"`
}

// CreateOrder opens a gateway order for an initiated recharge request.
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	var body createOrderBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, ErrInvalidAmount)
	}

	res, err := h.service.OpenOrder(c.UserContext(), body.RechargeRequestID, body.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"orderId":  res.OrderID,
		"amount":   res.Amount,
		"currency": res.Currency,
		"key":      res.KeyID,
	})
}

type verifyBody struct {
	GatewayOrderID    string `json:"gateway_order_id"`
	GatewayPaymentID  string `json:"gateway_payment_id"`
	GatewaySignature  string `json:"gateway_signature"`
	RechargeRequestID string `json:"rechargeRequestId"`
}

// VerifyPayment validates the gateway callback and credits the wallet once.
func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	var body verifyBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, ErrVerificationFailed)
	}

	adminID, _ := c.Locals("admin_id").(string)
	req, err := h.service.VerifyAndCredit(c.UserContext(), VerifyInput{
		RequestID: body.RechargeRequestID,
		OrderID:   body.GatewayOrderID,
		PaymentID: body.GatewayPaymentID,
		Signature: body.GatewaySignature,
		ActorID:   adminID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "status": req.Status})
}

func respondError(c *fiber.Ctx, err error) error {
	code, status := classify(err)
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, wallet.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, gateway.ErrUnavailable):
		return "GatewayUnavailable", http.StatusBadGateway
	case errors.Is(err, ErrVerificationFailed):
		return "VerificationFailed", http.StatusBadRequest
	case errors.Is(err, ErrInvalidAmount):
		return "ValidationError", http.StatusBadRequest
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrStateConflict), errors.Is(err, wallet.ErrConflict):
		return "Conflict", http.StatusConflict
	case errors.Is(err, wallet.ErrFrozen):
		return "WalletFrozen", http.StatusConflict
	default:
		return "InternalError", http.StatusInternalServerError
	}
}
