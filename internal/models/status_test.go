package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackingStepsPreparing(t *testing.T) {
	steps := TrackingSteps(OrderStatusPreparing)

	assert.Len(t, steps, len(HappyPath))

	currentCount := 0
	for i, step := range steps {
		assert.False(t, step.Completed && step.Current, "step %d is both completed and current", i)
		if step.Current {
			currentCount++
			assert.Equal(t, OrderStatusPreparing, step.Status)
		}
	}
	assert.Equal(t, 1, currentCount)

	assert.True(t, steps[0].Completed)  // PENDING
	assert.True(t, steps[1].Completed)  // CONFIRMED
	assert.False(t, steps[2].Completed) // PREPARING is current
	assert.False(t, steps[3].Completed)
	assert.False(t, steps[4].Completed)
}

func TestTrackingStepsDelivered(t *testing.T) {
	steps := TrackingSteps(OrderStatusDelivered)

	for _, step := range steps[:len(steps)-1] {
		assert.True(t, step.Completed)
	}
	last := steps[len(steps)-1]
	assert.True(t, last.Current)
	assert.False(t, last.Completed)
}

func TestTrackingStepsCancelled(t *testing.T) {
	assert.Nil(t, TrackingSteps(OrderStatusCancelled))
}

func TestNextStatus(t *testing.T) {
	next, ok := NextStatus(OrderStatusPreparing)
	assert.True(t, ok)
	assert.Equal(t, OrderStatusOutForDelivery, next)

	_, ok = NextStatus(OrderStatusDelivered)
	assert.False(t, ok)

	_, ok = NextStatus(OrderStatusCancelled)
	assert.False(t, ok)
}

func TestCancellable(t *testing.T) {
	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusConfirmed.Cancellable())
	assert.False(t, OrderStatusPreparing.Cancellable())
	assert.False(t, OrderStatusDelivered.Cancellable())
	assert.False(t, OrderStatusCancelled.Cancellable())
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusOutForDelivery.IsTerminal())
}
