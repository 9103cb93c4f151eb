package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSession backs both the cart storage and the checkout session
// storage for handler tests.
type memSession struct {
	carts    map[string][]byte
	checkout map[string][]byte
	tracking map[string][]byte
}

func newMemSession() *memSession {
	return &memSession{
		carts:    make(map[string][]byte),
		checkout: make(map[string][]byte),
		tracking: make(map[string][]byte),
	}
}

func (m *memSession) SaveCart(_ context.Context, userID string, data []byte) error {
	m.carts[userID] = data
	return nil
}

func (m *memSession) LoadCart(_ context.Context, userID string) ([]byte, error) {
	return m.carts[userID], nil
}

func (m *memSession) DeleteCart(_ context.Context, userID string) error {
	delete(m.carts, userID)
	return nil
}

func (m *memSession) SaveCheckoutContext(_ context.Context, userID string, data []byte) error {
	m.checkout[userID] = data
	return nil
}

func (m *memSession) LoadCheckoutContext(_ context.Context, userID string) ([]byte, error) {
	return m.checkout[userID], nil
}

func (m *memSession) DeleteCheckoutContext(_ context.Context, userID string) error {
	delete(m.checkout, userID)
	return nil
}

func (m *memSession) SaveTrackingSnapshot(_ context.Context, userID string, data []byte) error {
	m.tracking[userID] = data
	return nil
}

func (m *memSession) LoadTrackingSnapshot(_ context.Context, userID string) ([]byte, error) {
	return m.tracking[userID], nil
}

type memCatalog struct {
	items map[string]models.CatalogItem
}

func (m *memCatalog) UpsertProduct(_ context.Context, p *models.CatalogItem) error {
	m.items[p.ID] = *p
	return nil
}

func (m *memCatalog) GetProductByID(_ context.Context, id string) (*models.CatalogItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	return &item, nil
}

func (m *memCatalog) GetProducts(_ context.Context, _ store.CatalogFilter) ([]models.CatalogItem, error) {
	out := make([]models.CatalogItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *memCatalog) GetProductsByIDs(_ context.Context, ids []string) ([]models.CatalogItem, error) {
	var out []models.CatalogItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memCatalog) DeactivateMissing(_ context.Context, _ []string) error { return nil }

type stubOrders struct{}

func (stubOrders) CreateOrder(_ context.Context, req *service.CreateOrderRequest) (*models.Order, error) {
	return &models.Order{ID: "ord-1", UserID: req.UserID, Status: models.OrderStatusPending, TotalAmount: req.Total}, nil
}

func (stubOrders) GetOrderByID(_ context.Context, _ string) (*models.Order, error) {
	return nil, errors.New("order service unreachable")
}

func (stubOrders) GetUserOrders(_ context.Context, _ string) ([]models.Order, error) {
	return nil, nil
}

type stubProducts struct{}

func (stubProducts) GetProducts(_ context.Context, _ service.ProductFilter) ([]models.CatalogItem, error) {
	return nil, nil
}

func (stubProducts) GetProduct(_ context.Context, _ string) (*service.ProductDetail, error) {
	return nil, errors.New("product service unreachable")
}

func (stubProducts) CreateProductComplete(_ context.Context, draft *models.ProductDraft) (*models.CatalogItem, error) {
	return &models.CatalogItem{ID: "created-1", Name: draft.Name}, nil
}

func (stubProducts) UpdateProduct(_ context.Context, productID string, _ *models.ProductDraft) (*models.CatalogItem, error) {
	return &models.CatalogItem{ID: productID}, nil
}

func (stubProducts) ListBrands(_ context.Context) ([]service.Ref, error) {
	return []service.Ref{{ID: "b1", Name: "House Kitchen"}}, nil
}

func (stubProducts) ListCategories(_ context.Context) ([]service.Ref, error) {
	return []service.Ref{{ID: "c1", Name: "Pizza"}}, nil
}

func (stubProducts) ListDiscounts(_ context.Context) ([]service.Ref, error) {
	return []service.Ref{{ID: "d1", Name: "Launch Week"}}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := newMemSession()
	catalogStore := &memCatalog{items: map[string]models.CatalogItem{
		"P1": {ID: "P1", Name: "Margherita", Price: 10, Stock: 5, Active: true},
	}}

	cart := service.NewCartService(storage, 5)
	catalog := service.NewCatalogService(stubProducts{}, catalogStore)
	checkout := service.NewCheckoutService(cart, storage, stubOrders{}, nil, catalog, 5)
	drafts := service.NewDraftService(stubProducts{})
	tracking := service.NewTrackingService(stubOrders{}, storage, time.Hour)
	t.Cleanup(tracking.Shutdown)

	router := gin.New()
	NewHandler(cart, checkout, catalog, drafts, tracking, stubOrders{}).SetupRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQuantityChangeOnAbsentLineIsNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/cart/items/NOPE/increment", "u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOPE")

	w = doRequest(router, http.MethodPost, "/api/v1/cart/items/NOPE/decrement", "u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPut, "/api/v1/cart/items/NOPE", "u1", `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRequiresUserHeader(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddItemThenIncrement(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/cart/items", "u1", `{"product_id":"P1","quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/cart/items/P1/increment", "u1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_items":2`)
}

func TestAddUnknownProductIsNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/cart/items", "u1", `{"product_id":"NOPE"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizardPickerEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/admin/brands", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "House Kitchen")

	w = doRequest(router, http.MethodGet, "/api/v1/admin/categories", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pizza")

	w = doRequest(router, http.MethodGet, "/api/v1/admin/discounts", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Launch Week")
}
