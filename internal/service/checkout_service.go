package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrMissingPaymentMethod = errors.New("payment method not selected")
	ErrMissingAddress       = errors.New("delivery address not selected")
)

// SessionStorage holds the small checkout handoff keys written by one
// checkout step and read by the next.
type SessionStorage interface {
	SaveCheckoutContext(ctx context.Context, userID string, data []byte) error
	LoadCheckoutContext(ctx context.Context, userID string) ([]byte, error)
	DeleteCheckoutContext(ctx context.Context, userID string) error
	SaveTrackingSnapshot(ctx context.Context, userID string, data []byte) error
	LoadTrackingSnapshot(ctx context.Context, userID string) ([]byte, error)
}

// CheckoutPublisher publishes the events emitted by a successful
// checkout.
type CheckoutPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error
}

// CatalogReader is the slice of the catalog read model checkout uses
// to re-validate cart lines before submission.
type CatalogReader interface {
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.CatalogItem, error)
}

// Summarize derives the checkout summary from a cart. The delivery
// fee is flat and applies iff the cart is non-empty; tax is not
// modeled at this layer.
func Summarize(cart models.Cart, flatFee float64) models.CheckoutSummary {
	fee := 0.0
	if len(cart.Lines) > 0 {
		fee = flatFee
	}
	return models.CheckoutSummary{
		ItemCount:   cart.TotalItems,
		Subtotal:    cart.TotalPrice,
		DeliveryFee: fee,
		Total:       cart.TotalPrice + fee,
	}
}

// CheckoutService drives the checkout flow: session context handoff,
// order submission, and the post-submit cleanup.
type CheckoutService struct {
	cart      *CartService
	sessions  SessionStorage
	orders    OrderAPI
	publisher CheckoutPublisher
	catalog   CatalogReader
	flatFee   float64
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	cart *CartService,
	sessions SessionStorage,
	orders OrderAPI,
	publisher CheckoutPublisher,
	catalog CatalogReader,
	flatFee float64,
) *CheckoutService {
	return &CheckoutService{
		cart:      cart,
		sessions:  sessions,
		orders:    orders,
		publisher: publisher,
		catalog:   catalog,
		flatFee:   flatFee,
		logger:    util.GetLogger(),
	}
}

// GetContext loads the checkout session context. Missing or corrupt
// state reads as an empty context, never an error.
func (s *CheckoutService) GetContext(ctx context.Context, userID string) (models.CheckoutContext, error) {
	var cc models.CheckoutContext

	data, err := s.sessions.LoadCheckoutContext(ctx, userID)
	if err != nil {
		return cc, err
	}
	if len(data) == 0 {
		return cc, nil
	}
	if err := json.Unmarshal(data, &cc); err != nil {
		s.logger.Warn("Discarding unparseable checkout context",
			zap.String("user_id", userID),
			zap.Error(err))
		return models.CheckoutContext{}, nil
	}
	return cc, nil
}

// UpdateContext merges the non-empty fields of update into the stored
// checkout context. One typed accessor instead of free-form key
// lookups scattered across steps.
func (s *CheckoutService) UpdateContext(ctx context.Context, userID string, update models.CheckoutContext) (models.CheckoutContext, error) {
	cc, err := s.GetContext(ctx, userID)
	if err != nil {
		return cc, err
	}

	if update.PaymentMethod != "" {
		cc.PaymentMethod = update.PaymentMethod
	}
	if update.DeliveryMethod != "" {
		cc.DeliveryMethod = update.DeliveryMethod
	}
	if update.DeliveryAddress != "" {
		cc.DeliveryAddress = update.DeliveryAddress
	}

	data, err := json.Marshal(cc)
	if err != nil {
		return cc, fmt.Errorf("failed to marshal checkout context: %w", err)
	}
	if err := s.sessions.SaveCheckoutContext(ctx, userID, data); err != nil {
		return cc, fmt.Errorf("failed to save checkout context: %w", err)
	}
	return cc, nil
}

// validateLines re-checks the cart's products against the catalog
// read model in one batch fetch. A line the read model does not know
// passes through; the order service performs the authoritative check.
// A read-model failure is logged and skipped rather than blocking
// checkout.
func (s *CheckoutService) validateLines(ctx context.Context, cart models.Cart) error {
	if s.catalog == nil {
		return nil
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.Item.ID)
	}

	items, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Skipping catalog re-validation", zap.Error(err))
		return nil
	}

	active := make(map[string]bool, len(items))
	for _, item := range items {
		active[item.ID] = item.Active
	}
	for _, line := range cart.Lines {
		if isActive, known := active[line.Item.ID]; known && !isActive {
			return fmt.Errorf("%w: %s", ErrProductInactive, line.Item.ID)
		}
	}
	return nil
}

// SubmitOrder converts the current cart and checkout context into one
// order creation request. Validation failures are rejected before any
// network call; on a remote failure the cart and context are left
// untouched so nothing is re-entered.
func (s *CheckoutService) SubmitOrder(ctx context.Context, userID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.SubmitOrder")
	defer span.End()

	cart, err := s.cart.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		util.OrdersSubmitFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	cc, err := s.GetContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cc.PaymentMethod == "" {
		util.OrdersSubmitFailedTotal.WithLabelValues("missing_payment_method").Inc()
		return nil, ErrMissingPaymentMethod
	}
	if cc.DeliveryAddress == "" {
		util.OrdersSubmitFailedTotal.WithLabelValues("missing_address").Inc()
		return nil, ErrMissingAddress
	}
	if err := s.validateLines(ctx, cart); err != nil {
		util.OrdersSubmitFailedTotal.WithLabelValues("inactive_product").Inc()
		return nil, err
	}

	summary := Summarize(cart, s.flatFee)

	req := &CreateOrderRequest{
		UserID:          userID,
		DeliveryMethod:  cc.DeliveryMethod,
		DeliveryAddress: cc.DeliveryAddress,
		PaymentMethod:   cc.PaymentMethod,
		Total:           summary.Total,
		IdempotencyKey:  uuid.New().String(),
	}
	for _, line := range cart.Lines {
		req.Items = append(req.Items, OrderItemRequest{
			ProductID: line.Item.ID,
			Quantity:  line.Quantity,
		})
	}

	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		util.OrdersSubmitFailedTotal.WithLabelValues("remote_error").Inc()
		return nil, fmt.Errorf("order submission failed: %w", err)
	}

	util.OrdersSubmittedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("user_id", userID),
		zap.String("order_id", order.ID),
		zap.Float64("total", order.TotalAmount))

	snapshot := models.TrackingSnapshot{
		OrderID:   order.ID,
		Status:    order.Status,
		UpdatedAt: time.Now(),
	}
	if data, err := json.Marshal(snapshot); err == nil {
		if err := s.sessions.SaveTrackingSnapshot(ctx, userID, data); err != nil {
			s.logger.Warn("Failed to cache tracking snapshot", zap.Error(err))
		}
	}

	// The order is accepted; only now is user input safe to discard.
	if err := s.cart.Clear(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear cart after order", zap.Error(err))
	}
	if err := s.sessions.DeleteCheckoutContext(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear checkout context", zap.Error(err))
	}

	if s.publisher != nil {
		placed := &models.OrderPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderPlaced,
				Timestamp: time.Now(),
			},
			OrderID:     order.ID,
			UserID:      userID,
			TotalAmount: order.TotalAmount,
		}
		for _, line := range cart.Lines {
			placed.Items = append(placed.Items, models.OrderItemData{
				ProductID: line.Item.ID,
				Quantity:  line.Quantity,
				UnitPrice: line.Item.EffectivePrice(),
			})
		}
		if err := s.publisher.PublishOrderPlaced(ctx, placed); err != nil {
			s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}

		cleared := &models.CartClearedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCartCleared,
				Timestamp: time.Now(),
			},
			UserID:  userID,
			OrderID: order.ID,
		}
		if err := s.publisher.PublishCartCleared(ctx, cleared); err != nil {
			s.logger.Error("Failed to publish CartCleared event", zap.Error(err))
		}
	}

	return order, nil
}
