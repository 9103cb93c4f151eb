package service

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderAPI struct {
	createErr error
	getErr    error
	created   []*CreateOrderRequest
	order     *models.Order
	history   []models.Order
}

func (f *fakeOrderAPI) CreateOrder(_ context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	if f.order != nil {
		return f.order, nil
	}
	return &models.Order{ID: "ord-1", UserID: req.UserID, Status: models.OrderStatusPending, TotalAmount: req.Total}, nil
}

func (f *fakeOrderAPI) GetOrderByID(_ context.Context, orderID string) (*models.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.order != nil && f.order.ID == orderID {
		return f.order, nil
	}
	return nil, errors.New("order not found")
}

func (f *fakeOrderAPI) GetUserOrders(_ context.Context, _ string) ([]models.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.history, nil
}

type fakeCatalogReader struct {
	items []models.CatalogItem
	err   error
}

func (f *fakeCatalogReader) GetProductsByIDs(_ context.Context, _ []string) ([]models.CatalogItem, error) {
	return f.items, f.err
}

func newCheckoutFixture(orders OrderAPI) (*CheckoutService, *CartService, *fakeSession) {
	storage := newFakeSession()
	cart := NewCartService(storage, testFlatFee)
	checkout := NewCheckoutService(cart, storage, orders, nil, nil, testFlatFee)
	return checkout, cart, storage
}

func TestSummarizeTotalIdentity(t *testing.T) {
	cart := models.Cart{Lines: []models.CartLine{{Item: testItem("P1", 4, nil), Quantity: 3}}}
	cart.Recompute()

	summary := Summarize(cart, testFlatFee)
	assert.Equal(t, 3, summary.ItemCount)
	assert.Equal(t, 12.0, summary.Subtotal)
	assert.Equal(t, summary.Subtotal+summary.DeliveryFee, summary.Total)

	empty := Summarize(models.Cart{}, testFlatFee)
	assert.Equal(t, 0.0, empty.DeliveryFee)
	assert.Equal(t, 0.0, empty.Total)
}

func TestSubmitOrderRejectsEmptyCart(t *testing.T) {
	ctx := context.Background()
	checkout, _, _ := newCheckoutFixture(&fakeOrderAPI{})

	_, err := checkout.SubmitOrder(ctx, "u1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitOrderValidatesContextBeforeNetwork(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrderAPI{}
	checkout, cart, _ := newCheckoutFixture(orders)

	require.NoError(t, cart.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))

	_, err := checkout.SubmitOrder(ctx, "u1")
	assert.ErrorIs(t, err, ErrMissingPaymentMethod)
	assert.Empty(t, orders.created, "no network call before validation passes")

	_, err = checkout.UpdateContext(ctx, "u1", models.CheckoutContext{PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = checkout.SubmitOrder(ctx, "u1")
	assert.ErrorIs(t, err, ErrMissingAddress)
	assert.Empty(t, orders.created)
}

func TestSubmitOrderFailurePreservesCartAndContext(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrderAPI{createErr: errors.New("connection refused")}
	checkout, cart, _ := newCheckoutFixture(orders)

	require.NoError(t, cart.AddItem(ctx, "u1", testItem("P1", 10, ptr(8)), 2))
	_, err := checkout.UpdateContext(ctx, "u1", models.CheckoutContext{
		PaymentMethod:   "card",
		DeliveryAddress: "12 Main St",
	})
	require.NoError(t, err)

	_, err = checkout.SubmitOrder(ctx, "u1")
	require.Error(t, err)

	// Nothing the user entered is lost.
	got, _ := cart.GetCart(ctx, "u1")
	assert.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)

	cc, _ := checkout.GetContext(ctx, "u1")
	assert.Equal(t, "card", cc.PaymentMethod)
	assert.Equal(t, "12 Main St", cc.DeliveryAddress)
}

func TestSubmitOrderSuccessClearsCartAndCachesTracking(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrderAPI{}
	checkout, cart, storage := newCheckoutFixture(orders)

	require.NoError(t, cart.AddItem(ctx, "u1", testItem("P1", 10, ptr(8)), 2))
	_, err := checkout.UpdateContext(ctx, "u1", models.CheckoutContext{
		PaymentMethod:   "card",
		DeliveryMethod:  "delivery",
		DeliveryAddress: "12 Main St",
	})
	require.NoError(t, err)

	order, err := checkout.SubmitOrder(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)

	require.Len(t, orders.created, 1)
	req := orders.created[0]
	assert.Equal(t, 21.0, req.Total)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "P1", req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.NotEmpty(t, req.IdempotencyKey)

	got, _ := cart.GetCart(ctx, "u1")
	assert.Empty(t, got.Lines)

	cc, _ := checkout.GetContext(ctx, "u1")
	assert.Empty(t, cc.PaymentMethod)

	assert.NotEmpty(t, storage.trackingData("u1"), "tracking snapshot cached for the tracking page")
}

func TestSubmitOrderRejectsDeactivatedLine(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrderAPI{}
	storage := newFakeSession()
	cart := NewCartService(storage, testFlatFee)
	catalog := &fakeCatalogReader{items: []models.CatalogItem{{ID: "P1", Active: false}}}
	checkout := NewCheckoutService(cart, storage, orders, nil, catalog, testFlatFee)

	require.NoError(t, cart.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))
	_, err := checkout.UpdateContext(ctx, "u1", models.CheckoutContext{
		PaymentMethod:   "card",
		DeliveryAddress: "12 Main St",
	})
	require.NoError(t, err)

	_, err = checkout.SubmitOrder(ctx, "u1")
	assert.ErrorIs(t, err, ErrProductInactive)
	assert.Empty(t, orders.created, "rejected before any network call")

	got, _ := cart.GetCart(ctx, "u1")
	assert.Len(t, got.Lines, 1)
}

func TestSubmitOrderProceedsWhenCatalogUnavailable(t *testing.T) {
	ctx := context.Background()
	orders := &fakeOrderAPI{}
	storage := newFakeSession()
	cart := NewCartService(storage, testFlatFee)
	catalog := &fakeCatalogReader{err: errors.New("read model down")}
	checkout := NewCheckoutService(cart, storage, orders, nil, catalog, testFlatFee)

	require.NoError(t, cart.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))
	_, err := checkout.UpdateContext(ctx, "u1", models.CheckoutContext{
		PaymentMethod:   "card",
		DeliveryAddress: "12 Main St",
	})
	require.NoError(t, err)

	// The order service owns the authoritative check; a broken read
	// model must not block checkout.
	_, err = checkout.SubmitOrder(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders.created, 1)
}

func TestUpdateContextMergesFields(t *testing.T) {
	ctx := context.Background()
	checkout, _, _ := newCheckoutFixture(&fakeOrderAPI{})

	_, err := checkout.UpdateContext(ctx, "u1", models.CheckoutContext{PaymentMethod: "card"})
	require.NoError(t, err)
	_, err = checkout.UpdateContext(ctx, "u1", models.CheckoutContext{DeliveryAddress: "12 Main St"})
	require.NoError(t, err)

	cc, err := checkout.GetContext(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "card", cc.PaymentMethod)
	assert.Equal(t, "12 Main St", cc.DeliveryAddress)
}

func TestCorruptCheckoutContextReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	checkout, _, storage := newCheckoutFixture(&fakeOrderAPI{})
	storage.checkout["u1"] = []byte("%%%")

	cc, err := checkout.GetContext(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutContext{}, cc)
}
