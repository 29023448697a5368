package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/chain_atm/internal/config"
	"github.com/congo-pay/chain_atm/internal/devchain"
	"github.com/congo-pay/chain_atm/internal/logging"
)

func testConfig(env string) config.Config {
	return config.Config{
		AppName:         "ChainATM",
		AppEnv:          env,
		Port:            "0",
		ContractAddress: devchain.DefaultContract,
		PollInterval:    5 * time.Millisecond,
		IdempotencyTTL:  time.Minute,
		IntentRateLimit: 100,
	}
}

func newDevchainDeps(t *testing.T, balance int64) Deps {
	t.Helper()
	node, err := devchain.New(devchain.Options{InitialBalance: balance})
	if err != nil {
		t.Fatalf("devchain: %v", err)
	}
	client := node.Client()
	t.Cleanup(func() {
		client.Close()
		node.Close()
	})
	return Deps{Cfg: testConfig("development"), Logger: logging.Discard(), Chain: client}
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestSetupRequiresRedisOutsideDevelopment(t *testing.T) {
	if _, err := Setup(fiber.New(), Deps{Cfg: testConfig("production"), Logger: logging.Discard()}); err == nil {
		t.Fatal("expected error without redis in production")
	}
}

func TestATMRoutes(t *testing.T) {
	app := fiber.New()
	orchestrator, err := Setup(app, newDevchainDeps(t, 100))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if resp := do(t, app, fiber.MethodPost, "/api/v1/connect", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d", resp.StatusCode)
	}
	if resp := do(t, app, fiber.MethodPost, "/api/v1/deposit", `{"amount":5}`, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("deposit: expected 200, got %d", resp.StatusCode)
	}

	resp := do(t, app, fiber.MethodGet, "/api/v1/receipts", "", nil)
	var body struct {
		Receipts []json.RawMessage `json:"receipts"`
		Next     uint64            `json:"next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode receipts: %v", err)
	}
	if len(body.Receipts) != 1 || body.Next != 2 {
		t.Fatalf("unexpected receipts body %+v", body)
	}

	resp = do(t, app, fiber.MethodGet, "/api/v1/wallet", "", nil)
	var session map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session["connected"] != true || session["account"] != devchain.DefaultAccounts[0].Hex() {
		t.Fatalf("unexpected session %v", session)
	}

	if v := orchestrator.View(); v.Balance == nil || *v.Balance != 105 {
		t.Fatalf("unexpected view %+v", v)
	}

	if resp := do(t, app, fiber.MethodGet, "/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.StatusCode)
	}
}

func TestNoWalletReportsUnavailable(t *testing.T) {
	app := fiber.New()
	if _, err := Setup(app, Deps{Cfg: testConfig("development"), Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if resp := do(t, app, fiber.MethodPost, "/api/v1/connect", "", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("connect: expected 503, got %d", resp.StatusCode)
	}

	resp := do(t, app, fiber.MethodGet, "/api/v1/state", "", nil)
	var state map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state["provider_available"] != false || state["message"] == "" {
		t.Fatalf("unexpected state %v", state)
	}
}

func TestIntentsAreIdempotentWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	deps := newDevchainDeps(t, 100)
	deps.Cache = cache
	app := fiber.New()
	orchestrator, err := Setup(app, deps)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	key := map[string]string{"Idempotency-Key": "connect-1"}
	if resp := do(t, app, fiber.MethodPost, "/api/v1/connect", "", key); resp.StatusCode != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d", resp.StatusCode)
	}
	if resp := do(t, app, fiber.MethodPost, "/api/v1/deposit", `{"amount":5}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("deposit without key: expected 400, got %d", resp.StatusCode)
	}

	key = map[string]string{"Idempotency-Key": "deposit-1"}
	for i := 0; i < 2; i++ {
		if resp := do(t, app, fiber.MethodPost, "/api/v1/deposit", `{"amount":5}`, key); resp.StatusCode != http.StatusOK {
			t.Fatalf("deposit %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
	if got := orchestrator.Receipts().Len(); got != 1 {
		t.Fatalf("replayed deposit must not run twice, got %d receipts", got)
	}

	resp := do(t, app, fiber.MethodGet, "/healthz", "", nil)
	var health struct {
		Status map[string]string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status["redis"] != "ok" || health.Status["wallet"] != "ok" {
		t.Fatalf("unexpected health %+v", health)
	}
}
