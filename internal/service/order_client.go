package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the backend rejects the session;
// the caller redirects to login and retries from the same step.
var ErrUnauthorized = errors.New("session expired or unauthorized")

// CreateOrderRequest is the order service's creation contract.
type CreateOrderRequest struct {
	UserID          string             `json:"user_id"`
	Items           []OrderItemRequest `json:"items"`
	DeliveryMethod  string             `json:"delivery_method"`
	DeliveryAddress string             `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method"`
	Total           float64            `json:"total"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// createOrderResponse wraps the order service's creation reply.
type createOrderResponse struct {
	Status string        `json:"status"`
	Order  *models.Order `json:"order,omitempty"`
}

// OrderAPI is the remote order service contract.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]models.Order, error)
}

// OrderClient talks to the remote order service over REST.
type OrderClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOrderClient creates a new order service client
func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// CreateOrder submits one order creation request
func (oc *OrderClient) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	var resp createOrderResponse
	if err := oc.doJSON(ctx, http.MethodPost, "/api/orders", req, &resp, "create_order"); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("order service returned status %q without an order", resp.Status)
	}
	return resp.Order, nil
}

// GetOrderByID fetches the authoritative state of one order
func (oc *OrderClient) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/api/orders/%s", orderID)
	if err := oc.doJSON(ctx, http.MethodGet, path, nil, &order, "get_order"); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetUserOrders fetches the user's order history
func (oc *OrderClient) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	path := fmt.Sprintf("/api/users/%s/orders", userID)
	if err := oc.doJSON(ctx, http.MethodGet, path, nil, &orders, "get_user_orders"); err != nil {
		return nil, err
	}
	return orders, nil
}

func (oc *OrderClient) doJSON(ctx context.Context, method, path string, body, out interface{}, op string) error {
	start := time.Now()
	defer func() {
		util.RemoteRequestDuration.WithLabelValues("order", op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, oc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := oc.client.Do(req)
	if err != nil {
		return fmt.Errorf("order service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		oc.logger.Warn("Order service error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("order service returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
