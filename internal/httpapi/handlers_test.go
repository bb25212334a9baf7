package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gudangku/backend/internal/cache"
	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/service"
	"gudangku/backend/internal/store/memory"
	"gudangku/backend/internal/valuation"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-test-pass")
	t.Setenv("SEED_STAFF_PASSWORD", "staff-test-pass")

	repo := memory.NewSeeded()
	engine := valuation.NewEngine(repo, cache.NoopStockCache{})
	svc := service.New(repo, engine, cache.NoopStockCache{}, 1)
	auth := NewAuthManager("test-secret", time.Hour, repo)
	return New(svc, auth, "http://127.0.0.1:3000").Handler()
}

func loginToken(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()
	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestStockEndpointRequiresAuth(t *testing.T) {
	handler := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock?branch_id=1&item_id=1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token := loginToken(t, handler, "staff", "staff-test-pass")
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stock?branch_id=1&item_id=1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuditLogsForbiddenForStaff(t *testing.T) {
	handler := newTestAPI(t)
	token := loginToken(t, handler, "staff", "staff-test-pass")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}
}

func TestPurchaseEndpointCreatesTransaction(t *testing.T) {
	handler := newTestAPI(t)
	token := loginToken(t, handler, "admin", "admin-test-pass")

	payload := []byte(`{"branch_id":1,"lines":[{"variant_id":1,"qty":10,"unit_price":"10000","tax_percentage":"10"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Transaction.Category != domain.CategoryPurchase || len(resp.Transaction.Lines) != 1 {
		t.Fatalf("unexpected transaction: %+v", resp.Transaction)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stock?branch_id=1&item_id=1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for stock read, got %d", rec.Code)
	}
	var stock domain.StockResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stock); err != nil {
		t.Fatalf("decode stock: %v", err)
	}
	if stock.Stock.RecordedStock != 10 {
		t.Fatalf("expected recorded stock 10, got %d", stock.Stock.RecordedStock)
	}
}

func TestAdjustmentNothingToAdjustMapsTo422(t *testing.T) {
	handler := newTestAPI(t)
	token := loginToken(t, handler, "staff", "staff-test-pass")

	// No ledger history: counting zero everywhere matches the zero position.
	payload := []byte(`{"branch_id":1,"items":[{"variant_id":1,"actual_qty":0}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a no-op count, got %d: %s", rec.Code, rec.Body.String())
	}
}
