package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrProductInactive = errors.New("product is not available")
	ErrLineNotFound    = errors.New("no cart line for product")
)

// CartStorage is the durable session storage behind the cart. Writes
// are last-write-wins; the store never merges concurrent sessions.
type CartStorage interface {
	SaveCart(ctx context.Context, userID string, data []byte) error
	LoadCart(ctx context.Context, userID string) ([]byte, error)
	DeleteCart(ctx context.Context, userID string) error
}

// CartSubscriber receives an immutable copy of the cart after every
// mutation, strictly after totals are recomputed and the cart is
// persisted.
type CartSubscriber func(userID string, cart models.Cart)

// CartService owns the per-user shopping carts: in-memory working
// copies rehydrated from durable storage, recomputed and re-persisted
// on every mutation.
type CartService struct {
	storage CartStorage
	flatFee float64
	logger  *zap.Logger

	mu          sync.Mutex
	carts       map[string]*models.Cart
	subscribers []CartSubscriber
}

// NewCartService creates a new cart service
func NewCartService(storage CartStorage, flatFee float64) *CartService {
	return &CartService{
		storage: storage,
		flatFee: flatFee,
		logger:  util.GetLogger(),
		carts:   make(map[string]*models.Cart),
	}
}

// Subscribe registers a change listener. Subscribers are invoked
// synchronously, in registration order, after each mutation.
func (cs *CartService) Subscribe(sub CartSubscriber) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.subscribers = append(cs.subscribers, sub)
}

// cart returns the in-memory cart for userID, rehydrating it from
// storage on first touch. Unparseable persisted data is treated as no
// cart: losing a recoverable cart beats corrupting the session.
func (cs *CartService) cart(ctx context.Context, userID string) *models.Cart {
	if c, ok := cs.carts[userID]; ok {
		return c
	}

	c := &models.Cart{}
	data, err := cs.storage.LoadCart(ctx, userID)
	if err != nil {
		cs.logger.Warn("Failed to load persisted cart, starting empty",
			zap.String("user_id", userID),
			zap.Error(err))
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, c); err != nil {
			util.CartLoadCorruptTotal.Inc()
			cs.logger.Warn("Discarding unparseable persisted cart",
				zap.String("user_id", userID),
				zap.Error(err))
			c = &models.Cart{}
		}
	}

	c.Recompute()
	cs.carts[userID] = c
	return c
}

// commit finishes a mutation: recompute totals from the full line
// list, stamp the cart, persist it, then notify subscribers. The
// order is fixed so a subscriber never observes state that storage
// has not seen.
func (cs *CartService) commit(ctx context.Context, userID string, c *models.Cart, op string) {
	c.Recompute()
	c.UpdatedAt = time.Now()

	data, err := json.Marshal(c)
	if err != nil {
		cs.logger.Error("Failed to marshal cart", zap.String("user_id", userID), zap.Error(err))
	} else if err := cs.storage.SaveCart(ctx, userID, data); err != nil {
		cs.logger.Error("Failed to persist cart", zap.String("user_id", userID), zap.Error(err))
	}

	util.CartMutationsTotal.WithLabelValues(op).Inc()

	snapshot := c.Clone()
	for _, sub := range cs.subscribers {
		sub(userID, snapshot)
	}
}

// AddItem adds quantity units of item to the cart. An existing line
// for the same item is incremented and re-snapshots the item, so the
// current discount applies to the whole line from here on.
func (cs *CartService) AddItem(ctx context.Context, userID string, item models.CatalogItem, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !item.Active {
		return ErrProductInactive
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.cart(ctx, userID)
	if idx := c.LineIndex(item.ID); idx >= 0 {
		c.Lines[idx].Item = item
		c.Lines[idx].Quantity += quantity
	} else {
		c.Lines = append(c.Lines, models.CartLine{Item: item, Quantity: quantity})
	}

	cs.commit(ctx, userID, c, "add")
	return nil
}

// RemoveItem deletes the line for productID, no-op if absent.
func (cs *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.cart(ctx, userID)
	idx := c.LineIndex(productID)
	if idx < 0 {
		return nil
	}

	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	cs.commit(ctx, userID, c, "remove")
	return nil
}

// IncrementQuantity raises the line's quantity by one.
func (cs *CartService) IncrementQuantity(ctx context.Context, userID, productID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.cart(ctx, userID)
	idx := c.LineIndex(productID)
	if idx < 0 {
		return fmt.Errorf("%w %s", ErrLineNotFound, productID)
	}

	c.Lines[idx].Quantity++
	cs.commit(ctx, userID, c, "increment")
	return nil
}

// DecrementQuantity lowers the line's quantity by one; a line at
// quantity one is removed so quantity never reaches zero.
func (cs *CartService) DecrementQuantity(ctx context.Context, userID, productID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.cart(ctx, userID)
	idx := c.LineIndex(productID)
	if idx < 0 {
		return fmt.Errorf("%w %s", ErrLineNotFound, productID)
	}

	if c.Lines[idx].Quantity <= 1 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	} else {
		c.Lines[idx].Quantity--
	}

	cs.commit(ctx, userID, c, "decrement")
	return nil
}

// SetQuantity replaces the line's quantity; zero or negative behaves
// as removal.
func (cs *CartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return cs.RemoveItem(ctx, userID, productID)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.cart(ctx, userID)
	idx := c.LineIndex(productID)
	if idx < 0 {
		return fmt.Errorf("%w %s", ErrLineNotFound, productID)
	}

	c.Lines[idx].Quantity = quantity
	cs.commit(ctx, userID, c, "set_quantity")
	return nil
}

// Clear empties all lines.
func (cs *CartService) Clear(ctx context.Context, userID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.cart(ctx, userID)
	c.Lines = nil
	cs.commit(ctx, userID, c, "clear")
	return nil
}

// GetCart returns a copy of the user's current cart.
func (cs *CartService) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.cart(ctx, userID).Clone(), nil
}

// GetSummary returns the checkout summary derived live from the
// current cart state.
func (cs *CartService) GetSummary(ctx context.Context, userID string) (models.CheckoutSummary, error) {
	cart, err := cs.GetCart(ctx, userID)
	if err != nil {
		return models.CheckoutSummary{}, err
	}
	return Summarize(cart, cs.flatFee), nil
}
