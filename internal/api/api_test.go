package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/bom"
	"github.com/Spok95/stockflow/internal/domain/materials"
	"github.com/Spok95/stockflow/internal/domain/production"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mats := materials.NewMemoryStore()
	boms := bom.NewRegistry(bom.NewMemoryStore(), mats, nil)
	ledger := production.NewMemoryLedger()
	engine := production.NewEngine(mats, boms, ledger, nil, production.Options{})

	r := gin.New()
	New(mats, boms, engine, ledger, nil).Register(r)
	return &testAPI{t: t, router: r}
}

func (a *testAPI) do(method, path, owner string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (a *testAPI) create(m map[string]any) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/materials", "u1", m)
	if w.Code != http.StatusCreated {
		a.t.Fatalf("create %v: %d %s", m["name"], w.Code, w.Body.String())
	}
	return decode[map[string]any](a.t, w)["id"].(string)
}

func TestAPI_OwnerRequired(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/v1/materials", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestAPI_ProductionFlow(t *testing.T) {
	a := newTestAPI(t)
	flour := a.create(map[string]any{"kind": "raw", "name": "Flour", "unitType": "bulk", "unit": "kilogram", "stock": "10"})
	bread := a.create(map[string]any{"kind": "ready", "name": "Bread", "unitType": "discrete"})

	w := a.do(http.MethodPut, "/api/v1/products/"+bread+"/bom", "u1", map[string]any{
		"ingredients": []map[string]any{{"material": flour, "quantity": "0.5", "waste": "0.05"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set bom: %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodPost, "/api/v1/production-orders/prepare", "u1", map[string]any{
		"finishedProductId": bread, "quantity": 20,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("prepare: %d %s", w.Code, w.Body.String())
	}
	plan := decode[planResponse](t, w)
	if plan.Committable || len(plan.Violations) != 1 || plan.Violations[0].Kind != "InsufficientStock" {
		t.Errorf("Expected InsufficientStock violation, got %+v", plan.Violations)
	}

	w = a.do(http.MethodPost, "/api/v1/production-orders", "u1", map[string]any{
		"finishedProductId": bread, "quantity": 20,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d %s", w.Code, w.Body.String())
	}
	body := decode[errorBody](t, w)
	if len(body.Materials) != 1 || body.Materials[0].String() != flour {
		t.Errorf("Expected flour in error, got %+v", body)
	}

	w = a.do(http.MethodPost, "/api/v1/production-orders", "u1", map[string]any{
		"finishedProductId": bread, "quantity": 10, "notes": "first",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: %d %s", w.Code, w.Body.String())
	}
	order := decode[production.Order](t, w)
	if order.QuantityProduced != 10 || len(order.BOMSnapshot) != 1 || order.BOMSnapshot[0].ActualQuantityConsumed.String() != "5.5" {
		t.Errorf("unexpected order %+v", order)
	}

	w = a.do(http.MethodGet, "/api/v1/materials/"+flour, "u1", nil)
	if m := decode[materials.Material](t, w); m.Stock.String() != "4.5" || m.Unit != materials.UnitKg {
		t.Errorf("Expected flour 4.5 kg, got %s %s", m.Stock, m.Unit)
	}

	w = a.do(http.MethodGet, "/api/v1/production-orders/"+order.ID.String(), "u1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("get order: %d", w.Code)
	}
	w = a.do(http.MethodGet, "/api/v1/production-orders/"+order.ID.String(), "u2", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for other owner, got %d", w.Code)
	}
	w = a.do(http.MethodGet, "/api/v1/production-orders", "u1", nil)
	if list := decode[map[string]any](t, w); list["count"].(float64) != 1 {
		t.Errorf("Expected 1 order, got %v", list["count"])
	}

	w = a.do(http.MethodGet, "/api/v1/materials/"+flour+"/movements", "u1", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "-5.5") {
		t.Errorf("unexpected movements %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodGet, "/api/v1/reports/production-orders.xlsx", "u1", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType || w.Body.Len() == 0 {
		t.Errorf("unexpected report response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestAPI_Errors(t *testing.T) {
	a := newTestAPI(t)
	caps := a.create(map[string]any{"kind": "raw", "name": "Caps", "unitType": "discrete", "stock": "100"})
	bottle := a.create(map[string]any{"kind": "ready", "name": "Bottle", "unitType": "discrete"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		kind   string
	}{
		{"bad unit", http.MethodPost, "/api/v1/materials", map[string]any{"kind": "raw", "name": "Oil", "unitType": "bulk", "unit": "barrel"}, http.StatusUnprocessableEntity, "InvalidInput"},
		{"fractional discrete stock", http.MethodPost, "/api/v1/materials", map[string]any{"kind": "raw", "name": "Nails", "unitType": "discrete", "stock": "1.5"}, http.StatusUnprocessableEntity, "InvalidQuantity"},
		{"unknown material", http.MethodGet, "/api/v1/materials/00000000-0000-0000-0000-000000000001", nil, http.StatusNotFound, "NotFound"},
		{"malformed id", http.MethodGet, "/api/v1/materials/abc", nil, http.StatusNotFound, "NotFound"},
		{"no bom", http.MethodPost, "/api/v1/production-orders", map[string]any{"finishedProductId": bottle, "quantity": 1}, http.StatusNotFound, "NoBOMDefined"},
		{"fractional quantity", http.MethodPost, "/api/v1/production-orders", map[string]any{"finishedProductId": bottle, "quantity": 1.5}, http.StatusUnprocessableEntity, "InvalidQuantity"},
		{"oversized quantity", http.MethodPost, "/api/v1/production-orders", map[string]any{"finishedProductId": bottle, "quantity": "18446744073709551617"}, http.StatusUnprocessableEntity, "InvalidQuantity"},
		{"zero quantity", http.MethodPost, "/api/v1/production-orders/prepare", map[string]any{"finishedProductId": bottle, "quantity": 0}, http.StatusUnprocessableEntity, "InvalidQuantity"},
		{"negative bom", http.MethodPut, "/api/v1/products/" + bottle + "/bom", map[string]any{"ingredients": []map[string]any{{"material": caps, "quantity": "-1", "waste": "0"}}}, http.StatusUnprocessableEntity, "InvalidQuantity"},
		{"overdraw", http.MethodPost, "/api/v1/materials/" + caps + "/stock", map[string]any{"delta": "-101"}, http.StatusConflict, "InsufficientStock"},
		{"unknown kind filter", http.MethodGet, "/api/v1/materials?kind=gas", nil, http.StatusUnprocessableEntity, "InvalidInput"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(tt.method, tt.path, "u1", tt.body)
			if w.Code != tt.want {
				t.Fatalf("Expected %d, got %d %s", tt.want, w.Code, w.Body.String())
			}
			if body := decode[errorBody](t, w); string(body.Kind) != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, body.Kind)
			}
		})
	}

	// дробный расход штучного материала
	w := a.do(http.MethodPut, "/api/v1/products/"+bottle+"/bom", "u1", map[string]any{
		"ingredients": []map[string]any{{"material": caps, "quantity": "1", "waste": "0.3"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set bom: %d %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodPost, "/api/v1/production-orders", "u1", map[string]any{"finishedProductId": bottle, "quantity": 3})
	if w.Code != http.StatusUnprocessableEntity || decode[errorBody](t, w).Kind != "NonIntegralDiscreteConsumption" {
		t.Errorf("Expected 422 NonIntegral, got %d %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodPost, "/api/v1/production-orders", "u1", map[string]any{
		"finishedProductId": bottle, "quantity": 3,
		"ingredientAdjustments": []map[string]any{{"materialId": caps, "manualWaste": "1"}},
	})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 after waste fix, got %d %s", w.Code, w.Body.String())
	}
}

func TestAPI_ImportAndStock(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodPost, "/api/v1/imports/materials", "u1", map[string]any{
		"items": []map[string]any{
			{"kind": "raw", "name": "Sugar", "unitType": "bulk", "unit": "g", "stock": "500"},
			{"kind": "raw", "name": "", "unitType": "bulk", "unit": "g"},
			{"kind": "raw", "name": "Milk", "unitType": "bulk", "unit": "litre", "stock": "2"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}
	res := decode[struct {
		Results []importRow `json:"results"`
		Created int         `json:"created"`
		Failed  int         `json:"failed"`
	}](t, w)
	if res.Created != 2 || res.Failed != 1 || res.Results[1].Error == nil || res.Results[1].Error.Kind != "InvalidInput" {
		t.Fatalf("unexpected import result %+v", res)
	}

	milk := res.Results[2].ID
	w = a.do(http.MethodPost, "/api/v1/materials/"+milk+"/stock", "u1", map[string]any{"delta": "1.25", "note": "delivery"})
	if w.Code != http.StatusOK {
		t.Fatalf("stock: %d %s", w.Code, w.Body.String())
	}
	if m := decode[materials.Material](t, w); m.Stock.String() != "3.25" || m.Unit != materials.UnitL {
		t.Errorf("Expected 3.25 L, got %s %s", m.Stock, m.Unit)
	}

	w = a.do(http.MethodGet, "/api/v1/materials?kind=raw", "u1", nil)
	if list := decode[map[string]any](t, w); list["count"].(float64) != 2 {
		t.Errorf("Expected 2 raw materials, got %v", list["count"])
	}
	w = a.do(http.MethodDelete, "/api/v1/materials/"+milk, "u1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	w = a.do(http.MethodGet, "/api/v1/reports/inventory.xlsx", "u1", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Errorf("unexpected inventory report %d", w.Code)
	}
}

func TestOrderRequestQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"3", 3, true},
		{"9223372036854775807", math.MaxInt64, true},
		{"9223372036854775808", 0, false},
		{"18446744073709551617", 0, false},
		{"2.5", 0, false},
		{"0", 0, false},
		{"-4", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := orderRequest{Quantity: decimal.RequireFromString(tt.in)}.quantity()
			if tt.ok {
				if err != nil || got != tt.want {
					t.Errorf("Expected %d, got %d (%v)", tt.want, got, err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindInvalidQuantity) {
				t.Errorf("Expected InvalidQuantity, got %d (%v)", got, err)
			}
		})
	}
}

func TestAPI_ClientIDIgnored(t *testing.T) {
	a := newTestAPI(t)
	flour := a.create(map[string]any{"kind": "raw", "name": "Flour", "unitType": "bulk", "unit": "kg"})

	w := a.do(http.MethodPost, "/api/v1/materials", "u2", map[string]any{
		"id": flour, "kind": "raw", "name": "Sugar", "unitType": "bulk", "unit": "kg",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %s", w.Code, w.Body.String())
	}
	if id := decode[map[string]any](t, w)["id"].(string); id == flour {
		t.Errorf("Expected server-assigned id, got the client one")
	}

	w = a.do(http.MethodPost, "/api/v1/imports/materials", "u2", map[string]any{
		"items": []map[string]any{{"id": flour, "kind": "raw", "name": "Salt", "unitType": "bulk", "unit": "g"}},
	})
	res := decode[struct {
		Results []importRow `json:"results"`
	}](t, w)
	if len(res.Results) != 1 || res.Results[0].Error != nil || res.Results[0].ID == flour {
		t.Errorf("unexpected import result %+v", res.Results)
	}
}
