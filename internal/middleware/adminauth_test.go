package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "jwt-test-secret"

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "admin-42",
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/details", AdminAuth(testSecret), func(c *fiber.Ctx) error {
		id, _ := c.Locals("admin_id").(string)
		return c.JSON(fiber.Map{"success": true, "admin_id": id})
	})
	return app
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	app := authTestApp()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/details", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminAuthRejectsBadSignature(t *testing.T) {
	app := authTestApp()
	req := httptest.NewRequest(fiber.MethodGet, "/details", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, "other-secret", "admin"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminAuthRejectsNonAdminRole(t *testing.T) {
	app := authTestApp()
	req := httptest.NewRequest(fiber.MethodGet, "/details", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, testSecret, "user"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminAuthAcceptsValidToken(t *testing.T) {
	app := authTestApp()
	req := httptest.NewRequest(fiber.MethodGet, "/details", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, testSecret, "admin"))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
