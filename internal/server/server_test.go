package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/congo-pay/chain_atm/internal/config"
	"github.com/congo-pay/chain_atm/internal/devchain"
	"github.com/congo-pay/chain_atm/internal/logging"
)

func TestNewWiresRoutes(t *testing.T) {
	cfg := config.Config{AppName: "ChainATM", AppEnv: "test", Port: "8080", ContractAddress: devchain.DefaultContract}

	srv, err := New(cfg, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if srv.Orchestrator() == nil {
		t.Fatal("expected an orchestrator")
	}

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
