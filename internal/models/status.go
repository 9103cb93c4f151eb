package models

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// HappyPath is the forward progression of a non-cancelled order.
// CANCELLED sits outside it and has no step position.
var HappyPath = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// StatusIndex returns the position of s on the happy path, or -1 for
// CANCELLED and unknown values.
func StatusIndex(s OrderStatus) int {
	for i, st := range HappyPath {
		if st == s {
			return i
		}
	}
	return -1
}

// NextStatus returns the status following s on the happy path. The
// second return is false when s is terminal or off-path.
func NextStatus(s OrderStatus) (OrderStatus, bool) {
	idx := StatusIndex(s)
	if idx < 0 || idx >= len(HappyPath)-1 {
		return s, false
	}
	return HappyPath[idx+1], true
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable reports whether an order in status s may still be
// cancelled. Once preparation starts the order runs to delivery.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// TrackingStep is one rendered stage of the status timeline.
type TrackingStep struct {
	Status    OrderStatus `json:"status"`
	Completed bool        `json:"completed"`
	Current   bool        `json:"current"`
}

// TrackingSteps derives the timeline for the given status: earlier
// happy-path steps are completed, exactly one is current. CANCELLED
// has no timeline and yields nil; the caller renders it as a distinct
// terminal display.
func TrackingSteps(current OrderStatus) []TrackingStep {
	currentIdx := StatusIndex(current)
	if currentIdx < 0 {
		return nil
	}

	steps := make([]TrackingStep, len(HappyPath))
	for i, st := range HappyPath {
		steps[i] = TrackingStep{
			Status:    st,
			Completed: i < currentIdx,
			Current:   i == currentIdx,
		}
	}
	return steps
}
