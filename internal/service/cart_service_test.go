package service

import (
	"context"
	"sync"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is an in-memory stand-in for the redis session storage,
// shared by the cart, checkout and tracking tests.
type fakeSession struct {
	mu       sync.Mutex
	carts    map[string][]byte
	checkout map[string][]byte
	tracking map[string][]byte
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		carts:    make(map[string][]byte),
		checkout: make(map[string][]byte),
		tracking: make(map[string][]byte),
	}
}

func (f *fakeSession) SaveCart(_ context.Context, userID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSession) LoadCart(_ context.Context, userID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carts[userID], nil
}

func (f *fakeSession) DeleteCart(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

func (f *fakeSession) SaveCheckoutContext(_ context.Context, userID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkout[userID] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSession) LoadCheckoutContext(_ context.Context, userID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkout[userID], nil
}

func (f *fakeSession) DeleteCheckoutContext(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.checkout, userID)
	return nil
}

func (f *fakeSession) SaveTrackingSnapshot(_ context.Context, userID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracking[userID] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSession) LoadTrackingSnapshot(_ context.Context, userID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracking[userID], nil
}

func (f *fakeSession) trackingData(userID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracking[userID]
}

func testItem(id string, price float64, discounted *float64) models.CatalogItem {
	return models.CatalogItem{
		ID:              id,
		Name:            "item " + id,
		Price:           price,
		DiscountedPrice: discounted,
		Stock:           100,
		Active:          true,
	}
}

func ptr(f float64) *float64 { return &f }

const testFlatFee = 5.0

func TestCartTotalsAlwaysConsistent(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, ptr(8)), 2))
	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P2", 3, nil), 1))
	require.NoError(t, cs.IncrementQuantity(ctx, "u1", "P2"))
	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P3", 7, nil), 1))
	require.NoError(t, cs.RemoveItem(ctx, "u1", "P3"))
	require.NoError(t, cs.DecrementQuantity(ctx, "u1", "P1"))

	cart, err := cs.GetCart(ctx, "u1")
	require.NoError(t, err)

	items := 0
	total := 0.0
	for _, line := range cart.Lines {
		items += line.Quantity
		total += line.Subtotal
		assert.Equal(t, float64(line.Quantity)*line.Item.EffectivePrice(), line.Subtotal)
	}
	assert.Equal(t, items, cart.TotalItems)
	assert.Equal(t, total, cart.TotalPrice)
}

func TestAddSameItemMergesIntoOneLine(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 2))
	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 3))

	cart, _ := cs.GetCart(ctx, "u1")
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, 50.0, cart.Lines[0].Subtotal)
}

func TestAddReSnapshotsDiscount(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))

	// The catalog item picked up a discount between adds; touching
	// the line applies it to the whole line.
	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, ptr(8)), 1))

	cart, _ := cs.GetCart(ctx, "u1")
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 16.0, cart.Lines[0].Subtotal)
}

func TestDecrementAtQuantityOneRemovesLine(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))
	require.NoError(t, cs.DecrementQuantity(ctx, "u1", "P1"))

	cart, _ := cs.GetCart(ctx, "u1")
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0, cart.TotalItems)

	for _, line := range cart.Lines {
		assert.Greater(t, line.Quantity, 0)
	}
}

func TestSetQuantityZeroBehavesAsRemove(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 3))
	require.NoError(t, cs.SetQuantity(ctx, "u1", "P1", 0))

	cart, _ := cs.GetCart(ctx, "u1")
	assert.Empty(t, cart.Lines)
}

func TestRemoveAbsentItemIsNoop(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	assert.NoError(t, cs.RemoveItem(ctx, "u1", "ghost"))
}

func TestQuantityChangeOnAbsentLineReturnsSentinel(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	assert.ErrorIs(t, cs.IncrementQuantity(ctx, "u1", "ghost"), ErrLineNotFound)
	assert.ErrorIs(t, cs.DecrementQuantity(ctx, "u1", "ghost"), ErrLineNotFound)
	assert.ErrorIs(t, cs.SetQuantity(ctx, "u1", "ghost", 2), ErrLineNotFound)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	assert.ErrorIs(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 0), ErrInvalidQuantity)

	inactive := testItem("P2", 10, nil)
	inactive.Active = false
	assert.ErrorIs(t, cs.AddItem(ctx, "u1", inactive, 1), ErrProductInactive)
}

func TestSummaryFeeAppliesOnlyToNonEmptyCart(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	summary, err := cs.GetSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.DeliveryFee)
	assert.Equal(t, 0.0, summary.Total)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))
	summary, _ = cs.GetSummary(ctx, "u1")
	assert.Equal(t, testFlatFee, summary.DeliveryFee)
	assert.Equal(t, summary.Subtotal+summary.DeliveryFee, summary.Total)

	require.NoError(t, cs.Clear(ctx, "u1"))
	summary, _ = cs.GetSummary(ctx, "u1")
	assert.Equal(t, 0.0, summary.DeliveryFee)
}

func TestCheckoutScenario(t *testing.T) {
	ctx := context.Background()
	cs := NewCartService(newFakeSession(), testFlatFee)

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, ptr(8)), 2))

	summary, err := cs.GetSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 16.0, summary.Subtotal)
	assert.Equal(t, 5.0, summary.DeliveryFee)
	assert.Equal(t, 21.0, summary.Total)

	require.NoError(t, cs.DecrementQuantity(ctx, "u1", "P1"))

	cart, _ := cs.GetCart(ctx, "u1")
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Equal(t, 8.0, cart.Lines[0].Subtotal)

	summary, _ = cs.GetSummary(ctx, "u1")
	assert.Equal(t, 13.0, summary.Total)
}

func TestCartRoundTripThroughStorage(t *testing.T) {
	ctx := context.Background()
	storage := newFakeSession()

	first := NewCartService(storage, testFlatFee)
	require.NoError(t, first.AddItem(ctx, "u1", testItem("P1", 10, ptr(8)), 2))
	require.NoError(t, first.AddItem(ctx, "u1", testItem("P2", 3, nil), 1))
	want, _ := first.GetCart(ctx, "u1")

	// A fresh service rehydrates from the same storage.
	second := NewCartService(storage, testFlatFee)
	got, err := second.GetCart(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, want.Lines, got.Lines)
	assert.Equal(t, want.TotalItems, got.TotalItems)
	assert.Equal(t, want.TotalPrice, got.TotalPrice)
}

func TestCorruptedStorageFallsBackToEmptyCart(t *testing.T) {
	ctx := context.Background()
	storage := newFakeSession()
	storage.carts["u1"] = []byte("{definitely not json")

	cs := NewCartService(storage, testFlatFee)
	cart, err := cs.GetCart(ctx, "u1")

	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestSubscribersSeeEveryMutationInOrder(t *testing.T) {
	ctx := context.Background()
	storage := newFakeSession()
	cs := NewCartService(storage, testFlatFee)

	var seen []models.Cart
	cs.Subscribe(func(userID string, cart models.Cart) {
		assert.Equal(t, "u1", userID)
		// Persisted state must never lag behind what subscribers see.
		assert.NotEmpty(t, storage.carts["u1"])
		seen = append(seen, cart)
	})

	require.NoError(t, cs.AddItem(ctx, "u1", testItem("P1", 10, nil), 1))
	require.NoError(t, cs.IncrementQuantity(ctx, "u1", "P1"))
	require.NoError(t, cs.Clear(ctx, "u1"))

	require.Len(t, seen, 3)
	assert.Equal(t, 1, seen[0].TotalItems)
	assert.Equal(t, 2, seen[1].TotalItems)
	assert.Equal(t, 0, seen[2].TotalItems)
}
