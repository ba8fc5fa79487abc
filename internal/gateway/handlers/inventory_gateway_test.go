package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventra-system/internal/database/models"
	"inventra-system/internal/gateway/middleware"
	"inventra-system/internal/ledger"
	"inventra-system/internal/repository"
)

type testEnv struct {
	router *gin.Engine
	repo   *repository.MemoryRepository

	brandID uuid.UUID
	stockID uuid.UUID
	lowID   uuid.UUID

	manager ledger.Actor
	admin   ledger.Actor
	actor   *ledger.Actor // actor injected per request
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		repo:    repository.NewMemoryRepository(),
		brandID: uuid.New(),
		stockID: uuid.New(),
		lowID:   uuid.New(),
	}

	productID, storeID, store2ID := uuid.New(), uuid.New(), uuid.New()
	env.repo.AddBrand(models.Brand{ID: env.brandID, Name: "Acme"})
	env.repo.AddProduct(models.Product{ID: productID, BrandID: env.brandID, SKU: "SKU-1", Name: "Widget"})
	env.repo.AddStore(models.Store{ID: storeID, BrandID: env.brandID, Name: "Downtown", Code: "DT"})
	env.repo.AddStore(models.Store{ID: store2ID, BrandID: env.brandID, Name: "Uptown", Code: "UT"})

	ctx := context.Background()
	stocks := []models.Stock{
		{ID: env.stockID, ProductID: productID, StoreID: storeID, QuantityOnHand: 100, MinimumStockLevel: 10, UnitCost: decimal.NewFromInt(2)},
		{ID: env.lowID, ProductID: productID, StoreID: store2ID, QuantityOnHand: 3, MinimumStockLevel: 20, UnitCost: decimal.NewFromInt(2)},
	}
	for i := range stocks {
		if err := env.repo.CreateStock(ctx, &stocks[i]); err != nil {
			t.Fatalf("seed stock: %v", err)
		}
	}

	env.manager = ledger.Actor{ID: uuid.New(), Username: "alice", Role: models.RoleBrandManager, BrandID: &env.brandID}
	env.admin = ledger.Actor{ID: uuid.New(), Username: "root", Role: models.RoleSystemAdmin}
	env.actor = &env.manager

	engine := ledger.NewEngine(env.repo, ledger.BrandScoped, nil)
	handler := NewInventoryHTTPHandler(engine, nil, nil)

	env.router = gin.New()
	group := env.router.Group("/api/v1/inventory")
	group.Use(func(c *gin.Context) {
		middleware.SetActor(c, *env.actor)
		c.Next()
	})
	group.POST("/movements", handler.ApplyMovement)
	group.GET("/movements", handler.ListMovements)
	group.DELETE("/movements", handler.PurgeMovements)
	group.POST("/stocks", handler.CreateStock)
	group.GET("/stocks/:id", handler.GetStock)
	group.POST("/stocks/:id/reserve", handler.ReserveStock)
	group.POST("/stocks/:id/release", handler.ReleaseStock)
	group.GET("/low-stock", handler.ListLowStock)
	group.GET("/value", handler.InventoryValue)

	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return payload
}

func TestApplyMovementEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/inventory/movements", gin.H{
		"stock_id":         env.stockID,
		"movement_type":    models.MovementInbound,
		"quantity":         50,
		"reference_number": "PO-9",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApplyMovementStatusMapping(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		body   gin.H
		status int
		code   string
	}{
		{
			"insufficient stock",
			gin.H{"stock_id": env.stockID, "movement_type": models.MovementOutbound, "quantity": -500},
			http.StatusBadRequest, ledger.CodeInsufficientStock,
		},
		{
			"invalid kind",
			gin.H{"stock_id": env.stockID, "movement_type": "NOPE", "quantity": 1},
			http.StatusBadRequest, ledger.CodeInvalidKind,
		},
		{
			"unknown balance",
			gin.H{"stock_id": uuid.New(), "movement_type": models.MovementInbound, "quantity": 1},
			http.StatusNotFound, ledger.CodeBalanceNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/inventory/movements", tc.body)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
			payload := decodeBody(t, w)
			if payload["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, payload["code"])
			}
		})
	}
}

func TestApplyMovementForbiddenForOtherBrand(t *testing.T) {
	env := newTestEnv(t)
	otherBrand := uuid.New()
	outsider := ledger.Actor{ID: uuid.New(), Username: "mallory", Role: models.RoleBrandManager, BrandID: &otherBrand}
	env.actor = &outsider

	w := env.do(t, http.MethodPost, "/api/v1/inventory/movements", gin.H{
		"stock_id": env.stockID, "movement_type": models.MovementInbound, "quantity": 5,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPurgeAuthorization(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/inventory/movements", gin.H{
		"stock_id": env.stockID, "movement_type": models.MovementInbound, "quantity": 5,
	})

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/inventory/movements?stock_id=%s", env.stockID), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("manager purge: expected 403, got %d", w.Code)
	}

	env.actor = &env.admin
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/inventory/movements?stock_id=%s", env.stockID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin purge: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetStockEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/inventory/stocks/"+env.stockID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	payload := decodeBody(t, w)
	data := payload["data"].(map[string]interface{})
	if data["available_quantity"].(float64) != 100 {
		t.Fatalf("unexpected available quantity: %v", data["available_quantity"])
	}

	w = env.do(t, http.MethodGet, "/api/v1/inventory/stocks/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLowStockEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/inventory/low-stock", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	payload := decodeBody(t, w)
	data := payload["data"].(map[string]interface{})
	if data["total_count"].(float64) != 1 {
		t.Fatalf("expected 1 low stock, got %v", data["total_count"])
	}
}

func TestReserveEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/inventory/stocks/"+env.stockID.String()+"/reserve", gin.H{"quantity": 40})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/inventory/stocks/"+env.stockID.String()+"/reserve", gin.H{"quantity": 70})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("over-reserve: expected 400, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/inventory/stocks/"+env.stockID.String()+"/release", gin.H{"quantity": 40})
	if w.Code != http.StatusOK {
		t.Fatalf("release: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInventoryValueEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/inventory/value", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	payload := decodeBody(t, w)
	data := payload["data"].(map[string]interface{})
	// 100*2 + 3*2 = 206
	if data["total_value"].(string) != "206" {
		t.Fatalf("expected 206, got %v", data["total_value"])
	}
}
