package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/shopnest/wallet-service/internal/directory"
	"github.com/shopnest/wallet-service/internal/logging"
	"github.com/shopnest/wallet-service/internal/notification"
)

const testAdminID = "admin-1"

func newHandlerApp(t *testing.T) (*fiber.App, *Service, directory.Repository) {
	t.Helper()

	users := directory.NewMemoryRepository()
	svc := NewService(NewMemoryRepository(), users, notification.NewLoggerNotifier(logging.Discard()), nil, 0)
	h := NewHandler(svc, users)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("admin_id", testAdminID)
		return c.Next()
	})
	app.Get("/users", h.ListUsers)
	app.Post("/add-money", h.AddMoney)
	app.Post("/freeze/:userId", h.Freeze)
	app.Post("/unfreeze/:userId", h.Unfreeze)
	app.Get("/transactions/:userId", h.Transactions)
	app.Get("/details", h.Details)
	app.Get("/statistics", h.Statistics)
	app.Post("/transfer-to-user", h.TransferToUser)

	return app, svc, users
}

func seedUser(t *testing.T, users directory.Repository, id, email string) {
	t.Helper()
	if err := users.Create(context.Background(), directory.User{ID: id, Email: email, Kind: directory.KindUser}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, payload
}

func TestAddMoneyEndpoint(t *testing.T) {
	app, svc, users := newHandlerApp(t)
	seedUser(t, users, "user-1", "user1@example.com")

	status, payload := doJSON(t, app, fiber.MethodPost, "/add-money", fiber.Map{
		"userId": "user-1",
		"amount": 500,
		"reason": "goodwill credit",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, payload)
	}
	if payload["success"] != true {
		t.Fatalf("expected success envelope, got %v", payload)
	}

	tx, ok := payload["transaction"].(map[string]any)
	if !ok {
		t.Fatalf("missing transaction in %v", payload)
	}
	if tx["transaction_type"] != TypeCredit || tx["amount"] != float64(500) {
		t.Fatalf("unexpected transaction %v", tx)
	}
	if tx["balance_before"] != float64(0) || tx["balance_after"] != float64(500) {
		t.Fatalf("unexpected snapshots %v", tx)
	}
	if tx["actor_id"] != testAdminID {
		t.Fatalf("credit must record the acting admin, got %v", tx["actor_id"])
	}

	w, err := svc.GetOrCreate(context.Background(), "user-1", OwnerUser)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.Balance != 500 {
		t.Fatalf("expected balance 500, got %d", w.Balance)
	}
}

func TestAddMoneyValidation(t *testing.T) {
	app, _, users := newHandlerApp(t)
	seedUser(t, users, "user-1", "user1@example.com")

	status, payload := doJSON(t, app, fiber.MethodPost, "/add-money", fiber.Map{
		"userId": "user-1",
		"amount": 0,
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", status)
	}
	if payload["code"] != "ValidationError" {
		t.Fatalf("expected ValidationError code, got %v", payload["code"])
	}

	status, payload = doJSON(t, app, fiber.MethodPost, "/add-money", fiber.Map{
		"userId": "ghost",
		"amount": 100,
	})
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", status)
	}
	if payload["code"] != "NotFound" {
		t.Fatalf("expected NotFound code, got %v", payload["code"])
	}
}

func TestFreezeUnfreezeEndpoints(t *testing.T) {
	app, svc, users := newHandlerApp(t)
	seedUser(t, users, "user-1", "user1@example.com")

	status, payload := doJSON(t, app, fiber.MethodPost, "/freeze/user-1", fiber.Map{})
	if status != fiber.StatusBadRequest {
		t.Fatalf("freeze without reason: expected 400, got %d (%v)", status, payload)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/freeze/user-1", fiber.Map{"reason": "chargeback review"})
	if status != fiber.StatusOK {
		t.Fatalf("freeze: expected 200, got %d", status)
	}

	w, err := svc.GetOrCreate(context.Background(), "user-1", OwnerUser)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Frozen() || w.FrozenReason != "chargeback review" {
		t.Fatalf("wallet not frozen as expected: %+v", w)
	}

	status, payload = doJSON(t, app, fiber.MethodPost, "/freeze/user-1", fiber.Map{"reason": "again"})
	if status != fiber.StatusConflict || payload["code"] != "AlreadyFrozen" {
		t.Fatalf("double freeze: expected 409 AlreadyFrozen, got %d %v", status, payload["code"])
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/unfreeze/user-1", fiber.Map{"reason": "review cleared"})
	if status != fiber.StatusOK {
		t.Fatalf("unfreeze: expected 200, got %d", status)
	}

	w, err = svc.GetOrCreate(context.Background(), "user-1", OwnerUser)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.Frozen() || w.FrozenReason != "" {
		t.Fatalf("wallet still frozen: %+v", w)
	}
}

func TestTransferToUserEndpoint(t *testing.T) {
	app, svc, users := newHandlerApp(t)
	seedUser(t, users, "user-1", "user1@example.com")

	// Admin wallet starts empty, so the transfer must be rejected.
	status, payload := doJSON(t, app, fiber.MethodPost, "/transfer-to-user", fiber.Map{
		"userId": "user-1",
		"amount": 200,
		"reason": "payout",
	})
	if status != fiber.StatusBadRequest || payload["code"] != "InsufficientFunds" {
		t.Fatalf("expected 400 InsufficientFunds, got %d %v", status, payload["code"])
	}

	adminWallet, err := svc.GetOrCreate(context.Background(), testAdminID, OwnerAdmin)
	if err != nil {
		t.Fatalf("admin wallet: %v", err)
	}
	if _, err := svc.Credit(context.Background(), CreditInput{WalletID: adminWallet.ID, Amount: 1000, Reason: "float", ActorID: testAdminID}); err != nil {
		t.Fatalf("fund admin wallet: %v", err)
	}

	status, payload = doJSON(t, app, fiber.MethodPost, "/transfer-to-user", fiber.Map{
		"userId": "user-1",
		"amount": 200,
		"reason": "payout",
	})
	if status != fiber.StatusOK || payload["success"] != true {
		t.Fatalf("transfer: expected 200 success, got %d %v", status, payload)
	}
	if ref, _ := payload["reference_id"].(string); ref == "" {
		t.Fatal("transfer response must carry the shared reference id")
	}

	userWallet, err := svc.GetOrCreate(context.Background(), "user-1", OwnerUser)
	if err != nil {
		t.Fatalf("user wallet: %v", err)
	}
	if userWallet.Balance != 200 {
		t.Fatalf("expected user balance 200, got %d", userWallet.Balance)
	}
}

func TestDetailsAndStatisticsEndpoints(t *testing.T) {
	app, svc, _ := newHandlerApp(t)

	status, payload := doJSON(t, app, fiber.MethodGet, "/details", nil)
	if status != fiber.StatusOK {
		t.Fatalf("details: expected 200, got %d", status)
	}
	w, ok := payload["wallet"].(map[string]any)
	if !ok {
		t.Fatalf("missing wallet in %v", payload)
	}
	if w["balance"] != float64(0) || w["status"] != StatusActive {
		t.Fatalf("unexpected admin wallet %v", w)
	}

	adminWallet, err := svc.GetOrCreate(context.Background(), testAdminID, OwnerAdmin)
	if err != nil {
		t.Fatalf("admin wallet: %v", err)
	}
	if _, err := svc.Credit(context.Background(), CreditInput{WalletID: adminWallet.ID, Amount: 750, Reason: "float", ActorID: testAdminID}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	status, payload = doJSON(t, app, fiber.MethodGet, "/statistics", nil)
	if status != fiber.StatusOK {
		t.Fatalf("statistics: expected 200, got %d", status)
	}
	stats, ok := payload["statistics"].(map[string]any)
	if !ok {
		t.Fatalf("missing statistics in %v", payload)
	}
	if stats["totalWallets"] != float64(1) || stats["totalBalance"] != float64(750) || stats["totalTransactions"] != float64(1) {
		t.Fatalf("unexpected statistics %v", stats)
	}
}

func TestListUsersEndpoint(t *testing.T) {
	app, svc, users := newHandlerApp(t)
	seedUser(t, users, "user-1", "alice@example.com")
	seedUser(t, users, "user-2", "bob@example.com")

	w, err := svc.GetOrCreate(context.Background(), "user-1", OwnerUser)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if _, err := svc.Freeze(context.Background(), w.ID, "fraud hold", testAdminID); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	status, payload := doJSON(t, app, fiber.MethodGet, "/users?status=frozen", nil)
	if status != fiber.StatusOK {
		t.Fatalf("list users: expected 200, got %d", status)
	}
	rows, ok := payload["users"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("expected one frozen user, got %v", payload["users"])
	}
	row := rows[0].(map[string]any)
	if row["email"] != "alice@example.com" || row["is_frozen"] != true || row["frozen_reason"] != "fraud hold" {
		t.Fatalf("unexpected row %v", row)
	}
}
