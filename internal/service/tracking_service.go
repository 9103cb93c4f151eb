package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTrackingUnavailable = errors.New("order status unavailable")
	// ErrSimulationUnavailable is returned while a backend order is
	// still in flight: the authoritative feed wins and the local
	// simulator must not overwrite it.
	ErrSimulationUnavailable = errors.New("simulation unavailable while a backend order is active")
)

const simOrderPrefix = "sim-"

// StatusSource feeds order status transitions to apply until the
// context is cancelled or a terminal status is reached. Two
// implementations exist: the authoritative backend feed and a local
// timer simulation, swappable without touching the lifecycle model.
type StatusSource interface {
	Watch(ctx context.Context, orderID string, from models.OrderStatus, apply func(models.OrderStatus)) error
}

// BackendStatusSource polls the order service and reports status
// changes. Push updates arrive separately through the status worker.
type BackendStatusSource struct {
	orders   OrderAPI
	interval time.Duration
}

// NewBackendStatusSource creates a polling source
func NewBackendStatusSource(orders OrderAPI, interval time.Duration) *BackendStatusSource {
	return &BackendStatusSource{orders: orders, interval: interval}
}

// Watch polls until the order reaches a terminal status or the
// context is cancelled. Backend statuses are trusted as-is; no local
// transition validation.
func (b *BackendStatusSource) Watch(ctx context.Context, orderID string, from models.OrderStatus, apply func(models.OrderStatus)) error {
	current := from
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			order, err := b.orders.GetOrderByID(ctx, orderID)
			if err != nil {
				continue
			}
			if order.Status != current {
				current = order.Status
				apply(current)
			}
			if current.IsTerminal() {
				return nil
			}
		}
	}
}

// SimulatedStatusSource advances through the happy path on a fixed
// timer, standing in for real push updates in demo mode.
type SimulatedStatusSource struct {
	interval time.Duration
}

// NewSimulatedStatusSource creates a timer-driven source
func NewSimulatedStatusSource(interval time.Duration) *SimulatedStatusSource {
	return &SimulatedStatusSource{interval: interval}
}

// Watch advances from the given status one step per tick, stopping at
// DELIVERED or when the context is cancelled.
func (s *SimulatedStatusSource) Watch(ctx context.Context, orderID string, from models.OrderStatus, apply func(models.OrderStatus)) error {
	current := from
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next, ok := models.NextStatus(current)
			if !ok {
				return nil
			}
			current = next
			apply(current)
			if current == models.OrderStatusDelivered {
				return nil
			}
		}
	}
}

// TrackingView is the rendered tracking state for one order.
type TrackingView struct {
	OrderID   string                `json:"order_id"`
	Status    models.OrderStatus    `json:"status"`
	Steps     []models.TrackingStep `json:"steps"`
	Cancelled bool                  `json:"cancelled"`
	Source    string                `json:"source"`
}

// TrackingService maps order statuses onto the tracking timeline,
// caches the last known state, and owns the lifecycle of local
// status simulations.
type TrackingService struct {
	orders      OrderAPI
	sessions    SessionStorage
	simInterval time.Duration
	logger      *zap.Logger

	mu   sync.Mutex
	sims map[string]*simHandle
}

// simHandle identifies one simulation run so a finished goroutine can
// deregister itself without tearing down a newer run.
type simHandle struct {
	cancel context.CancelFunc
}

// NewTrackingService creates a new tracking service
func NewTrackingService(orders OrderAPI, sessions SessionStorage, simInterval time.Duration) *TrackingService {
	return &TrackingService{
		orders:      orders,
		sessions:    sessions,
		simInterval: simInterval,
		logger:      util.GetLogger(),
		sims:        make(map[string]*simHandle),
	}
}

func viewFor(orderID string, status models.OrderStatus, source string) *TrackingView {
	return &TrackingView{
		OrderID:   orderID,
		Status:    status,
		Steps:     models.TrackingSteps(status),
		Cancelled: status == models.OrderStatusCancelled,
		Source:    source,
	}
}

// GetTracking returns the tracking view for an order. The backend is
// authoritative; when it is unreachable the cached snapshot keeps the
// post-purchase page usable instead of erroring.
func (ts *TrackingService) GetTracking(ctx context.Context, userID, orderID string) (*TrackingView, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.GetTracking")
	defer span.End()

	order, err := ts.orders.GetOrderByID(ctx, orderID)
	if err == nil {
		// An authoritative answer supersedes any running simulation.
		ts.StopSimulation(userID)
		ts.saveSnapshot(ctx, userID, orderID, order.Status)
		util.TrackingStatusUpdatesTotal.WithLabelValues("backend").Inc()
		return viewFor(orderID, order.Status, "backend"), nil
	}

	ts.logger.Warn("Authoritative order fetch failed, trying cached snapshot",
		zap.String("order_id", orderID),
		zap.Error(err))

	snapshot, ok := ts.loadSnapshot(ctx, userID)
	if !ok || snapshot.OrderID != orderID {
		return nil, fmt.Errorf("%w: %v", ErrTrackingUnavailable, err)
	}

	util.TrackingFallbacksTotal.Inc()
	return viewFor(snapshot.OrderID, snapshot.Status, "cache"), nil
}

// GetLastTracking returns the view for the user's most recent order
// from the cached snapshot alone.
func (ts *TrackingService) GetLastTracking(ctx context.Context, userID string) (*TrackingView, error) {
	snapshot, ok := ts.loadSnapshot(ctx, userID)
	if !ok {
		return nil, ErrTrackingUnavailable
	}
	return viewFor(snapshot.OrderID, snapshot.Status, "cache"), nil
}

// HandleStatusEvent applies a pushed status update from the order
// service. Authoritative always wins: any local simulation for the
// user is cancelled first.
func (ts *TrackingService) HandleStatusEvent(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	ts.StopSimulation(event.UserID)
	ts.saveSnapshot(ctx, event.UserID, event.OrderID, event.Status)
	util.TrackingStatusUpdatesTotal.WithLabelValues("push").Inc()

	ts.logger.Info("Order status updated",
		zap.String("order_id", event.OrderID),
		zap.String("status", string(event.Status)))
	return nil
}

// StartSimulation runs a local timer-driven progression for demo
// tracking. It refuses to start while a backend order is still in
// flight, so the simulator can never overwrite real state.
func (ts *TrackingService) StartSimulation(userID string) (*TrackingView, error) {
	ctx := context.Background()

	if snapshot, ok := ts.loadSnapshot(ctx, userID); ok {
		if !strings.HasPrefix(snapshot.OrderID, simOrderPrefix) && !snapshot.Status.IsTerminal() {
			return nil, ErrSimulationUnavailable
		}
	}

	orderID := simOrderPrefix + uuid.New().String()
	start := models.OrderStatusPreparing
	ts.saveSnapshot(ctx, userID, orderID, start)

	simCtx, cancel := context.WithCancel(context.Background())
	handle := &simHandle{cancel: cancel}
	ts.mu.Lock()
	if prev, ok := ts.sims[userID]; ok {
		prev.cancel()
	}
	ts.sims[userID] = handle
	ts.mu.Unlock()

	source := NewSimulatedStatusSource(ts.simInterval)
	go func() {
		defer ts.clearSimulation(userID, handle)

		err := source.Watch(simCtx, orderID, start, func(status models.OrderStatus) {
			ts.saveSnapshot(simCtx, userID, orderID, status)
			util.TrackingStatusUpdatesTotal.WithLabelValues("simulated").Inc()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			ts.logger.Warn("Simulation stopped", zap.String("user_id", userID), zap.Error(err))
		}
	}()

	return viewFor(orderID, start, "simulated"), nil
}

// StopSimulation cancels the user's running simulation, if any. Safe
// to call on teardown paths where none is running.
func (ts *TrackingService) StopSimulation(userID string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if handle, ok := ts.sims[userID]; ok {
		handle.cancel()
		delete(ts.sims, userID)
	}
}

// Shutdown cancels every running simulation.
func (ts *TrackingService) Shutdown() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for userID, handle := range ts.sims {
		handle.cancel()
		delete(ts.sims, userID)
	}
}

func (ts *TrackingService) clearSimulation(userID string, handle *simHandle) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if current, ok := ts.sims[userID]; ok && current == handle {
		delete(ts.sims, userID)
	}
}

func (ts *TrackingService) saveSnapshot(ctx context.Context, userID, orderID string, status models.OrderStatus) {
	snapshot := models.TrackingSnapshot{
		OrderID:   orderID,
		Status:    status,
		UpdatedAt: time.Now(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := ts.sessions.SaveTrackingSnapshot(ctx, userID, data); err != nil {
		ts.logger.Warn("Failed to cache tracking snapshot",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// loadSnapshot reads the cached snapshot; corrupt data reads as
// absent.
func (ts *TrackingService) loadSnapshot(ctx context.Context, userID string) (models.TrackingSnapshot, bool) {
	var snapshot models.TrackingSnapshot

	data, err := ts.sessions.LoadTrackingSnapshot(ctx, userID)
	if err != nil || len(data) == 0 {
		return snapshot, false
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.TrackingSnapshot{}, false
	}
	return snapshot, true
}
