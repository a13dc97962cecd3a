package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrderNumber(t *testing.T) {
	order := &Order{}
	order.ID = uuid.MustParse("49c599b2-68ef-4a0c-b9f0-68ab22fb78a4")
	assert.Equal(t, "ORD-fb78a4", order.Number())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderPending, OrderShipped))
	assert.True(t, CanTransition(OrderPending, OrderCancelled))
	assert.True(t, CanTransition(OrderShipped, OrderDelivered))

	assert.False(t, CanTransition(OrderShipped, OrderPending))
	assert.False(t, CanTransition(OrderShipped, OrderCancelled))
	assert.False(t, CanTransition(OrderDelivered, OrderShipped))
	assert.False(t, CanTransition(OrderCancelled, OrderPending))
	assert.False(t, CanTransition(OrderPending, OrderPending))
}
