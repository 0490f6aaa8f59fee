package wallet

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/shopnest/wallet-service/internal/directory"
)

// Handler exposes the admin console's wallet endpoints.
type Handler struct {
	service *Service
	users   directory.Repository
}

// NewHandler builds the wallet HTTP handler.
func NewHandler(service *Service, users directory.Repository) *Handler {
	return &Handler{service: service, users: users}
}

type transactionResponse struct {
	ID            string `json:"id"`
	WalletID      string `json:"wallet_id"`
	Type          string `json:"transaction_type"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	ActorID       string `json:"actor_id"`
	Status        string `json:"status"`
	Description   string `json:"description"`
	CreatedAt     string `json:"created_at"`
}

func toTransactionResponse(t Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		WalletID:      t.WalletID,
		Type:          t.Type,
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		ReferenceType: t.ReferenceType,
		ReferenceID:   t.ReferenceID,
		ActorID:       t.ActorID,
		Status:        t.Status,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
}

// ListUsers serves the users-with-wallets table backing the admin console.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	f := UserFilter{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
	}

	entries, total, err := h.service.ListUsers(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}

	users := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		users = append(users, fiber.Map{
			"id":             e.User.ID,
			"email":          e.User.Email,
			"wallet_balance": e.Wallet.Balance,
			"is_frozen":      e.Wallet.Frozen(),
			"frozen_reason":  e.Wallet.FrozenReason,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
		"page":    f.Page,
		"limit":   f.Limit,
		"total":   total,
	})
}

type addMoneyRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// AddMoney credits a user's wallet on behalf of the calling admin.
func (h *Handler) AddMoney(c *fiber.Ctx) error {
	var req addMoneyRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, ErrInvalidAmount)
	}
	if req.Amount <= 0 {
		return respondError(c, ErrInvalidAmount)
	}

	w, err := h.userWallet(c, req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	tx, err := h.service.Credit(c.UserContext(), CreditInput{
		WalletID: w.ID,
		Amount:   req.Amount,
		Reason:   req.Reason,
		ActorID:  adminID(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"transaction": toTransactionResponse(tx),
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Freeze blocks future debits against the user's wallet.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	var req reasonRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, ErrReasonRequired)
	}

	w, err := h.userWallet(c, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}

	if _, err := h.service.Freeze(c.UserContext(), w.ID, req.Reason, adminID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Unfreeze reactivates a frozen wallet.
func (h *Handler) Unfreeze(c *fiber.Ctx) error {
	var req reasonRequest
	_ = c.BodyParser(&req)

	w, err := h.userWallet(c, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}

	if _, err := h.service.Unfreeze(c.UserContext(), w.ID, req.Reason, adminID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Transactions returns a user's ledger history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	w, err := h.userWallet(c, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}

	rows, err := h.service.History(c.UserContext(), w.ID, c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}

	out := make([]transactionResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTransactionResponse(t))
	}
	return c.JSON(fiber.Map{"success": true, "transactions": out})
}

// Details returns the calling admin's own wallet.
func (h *Handler) Details(c *fiber.Ctx) error {
	w, err := h.service.GetOrCreate(c.UserContext(), adminID(c), OwnerAdmin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"wallet": fiber.Map{
			"id":            w.ID,
			"balance":       w.Balance,
			"status":        w.Status,
			"frozen_reason": w.FrozenReason,
		},
	})
}

// Statistics serves the aggregate dashboard projection.
func (h *Handler) Statistics(c *fiber.Ctx) error {
	stats, err := h.service.Aggregate(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "statistics": stats})
}

type transferRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// TransferToUser moves funds from the calling admin's wallet to a user wallet.
func (h *Handler) TransferToUser(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, ErrInvalidAmount)
	}
	if req.Amount <= 0 {
		return respondError(c, ErrInvalidAmount)
	}

	adminWallet, err := h.service.GetOrCreate(c.UserContext(), adminID(c), OwnerAdmin)
	if err != nil {
		return respondError(c, err)
	}
	userWallet, err := h.userWallet(c, req.UserID)
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		SourceWalletID: adminWallet.ID,
		DestWalletID:   userWallet.ID,
		Amount:         req.Amount,
		ActorID:        adminID(c),
		Reason:         req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "reference_id": res.ReferenceID})
}

// userWallet resolves a directory user and lazily provisions their wallet.
func (h *Handler) userWallet(c *fiber.Ctx, userID string) (Wallet, error) {
	user, err := h.users.FindByID(c.UserContext(), userID)
	if err != nil {
		return Wallet{}, err
	}
	return h.service.GetOrCreate(c.UserContext(), user.ID, OwnerUser)
}

func adminID(c *fiber.Ctx) string {
	id, _ := c.Locals("admin_id").(string)
	return id
}

// respondError maps domain errors onto the admin API's error envelope.
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
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds", http.StatusBadRequest
	case errors.Is(err, ErrFrozen):
		return "WalletFrozen", http.StatusConflict
	case errors.Is(err, ErrAlreadyFrozen):
		return "AlreadyFrozen", http.StatusConflict
	case errors.Is(err, ErrNotFrozen):
		return "NotFrozen", http.StatusConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, directory.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict), errors.Is(err, ErrDuplicateTransaction):
		return "Conflict", http.StatusConflict
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrReasonRequired), errors.Is(err, ErrSameWallet):
		return "ValidationError", http.StatusBadRequest
	default:
		return "InternalError", http.StatusInternalServerError
	}
}
