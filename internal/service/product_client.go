package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ProductFilter narrows remote catalog listings.
type ProductFilter struct {
	CategoryID string
	BrandID    string
	ActiveOnly bool
}

// ProductDetail is a catalog item together with the associations the
// admin wizard edits.
type ProductDetail struct {
	Item        models.CatalogItem       `json:"item"`
	Resources   []models.ProductResource `json:"resources"`
	DiscountIDs []string                 `json:"discount_ids"`
}

// Ref is a named identifier used for the wizard's brand, category and
// discount pickers.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductAPI is the remote product service contract.
type ProductAPI interface {
	GetProducts(ctx context.Context, filter ProductFilter) ([]models.CatalogItem, error)
	GetProduct(ctx context.Context, productID string) (*ProductDetail, error)
	CreateProductComplete(ctx context.Context, draft *models.ProductDraft) (*models.CatalogItem, error)
	UpdateProduct(ctx context.Context, productID string, draft *models.ProductDraft) (*models.CatalogItem, error)
	ListBrands(ctx context.Context) ([]Ref, error)
	ListCategories(ctx context.Context) ([]Ref, error)
	ListDiscounts(ctx context.Context) ([]Ref, error)
}

// ProductClient talks to the remote product service over REST.
type ProductClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewProductClient creates a new product service client
func NewProductClient(baseURL string, timeout time.Duration) *ProductClient {
	return &ProductClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// GetProducts lists catalog items matching the filter
func (pc *ProductClient) GetProducts(ctx context.Context, filter ProductFilter) ([]models.CatalogItem, error) {
	q := url.Values{}
	if filter.CategoryID != "" {
		q.Set("category_id", filter.CategoryID)
	}
	if filter.BrandID != "" {
		q.Set("brand_id", filter.BrandID)
	}
	if filter.ActiveOnly {
		q.Set("active", "true")
	}

	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var products []models.CatalogItem
	if err := pc.doJSON(ctx, http.MethodGet, path, nil, &products, "get_products"); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches one product with its resources and discount
// associations, used to seed edit mode
func (pc *ProductClient) GetProduct(ctx context.Context, productID string) (*ProductDetail, error) {
	var detail ProductDetail
	path := fmt.Sprintf("/api/products/%s", productID)
	if err := pc.doJSON(ctx, http.MethodGet, path, nil, &detail, "get_product"); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateProductComplete submits a completed draft as one creation
// request
func (pc *ProductClient) CreateProductComplete(ctx context.Context, draft *models.ProductDraft) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := pc.doJSON(ctx, http.MethodPost, "/api/products/complete", draft, &item, "create_product"); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateProduct submits a completed draft against an existing product
func (pc *ProductClient) UpdateProduct(ctx context.Context, productID string, draft *models.ProductDraft) (*models.CatalogItem, error) {
	var item models.CatalogItem
	path := fmt.Sprintf("/api/products/%s", productID)
	if err := pc.doJSON(ctx, http.MethodPut, path, draft, &item, "update_product"); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListBrands lists brands for the wizard picker
func (pc *ProductClient) ListBrands(ctx context.Context) ([]Ref, error) {
	var refs []Ref
	if err := pc.doJSON(ctx, http.MethodGet, "/api/brands", nil, &refs, "list_brands"); err != nil {
		return nil, err
	}
	return refs, nil
}

// ListCategories lists categories for the wizard picker
func (pc *ProductClient) ListCategories(ctx context.Context) ([]Ref, error) {
	var refs []Ref
	if err := pc.doJSON(ctx, http.MethodGet, "/api/categories", nil, &refs, "list_categories"); err != nil {
		return nil, err
	}
	return refs, nil
}

// ListDiscounts lists discounts for the wizard picker
func (pc *ProductClient) ListDiscounts(ctx context.Context) ([]Ref, error) {
	var refs []Ref
	if err := pc.doJSON(ctx, http.MethodGet, "/api/discounts", nil, &refs, "list_discounts"); err != nil {
		return nil, err
	}
	return refs, nil
}

func (pc *ProductClient) doJSON(ctx context.Context, method, path string, body, out interface{}, op string) error {
	start := time.Now()
	defer func() {
		util.RemoteRequestDuration.WithLabelValues("product", op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, pc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.client.Do(req)
	if err != nil {
		return fmt.Errorf("product service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		pc.logger.Warn("Product service error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("product service returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
