package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartAddMergesExistingLine(t *testing.T) {
	cart := NewCart("user-1")

	cart.Add("p1", 2)
	cart.Add("p2", 1)
	cart.Add("p1", 3)

	assert.Len(t, cart.Items, 2)
	assert.EqualValues(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
}

func TestCartSetQuantity(t *testing.T) {
	cart := NewCart("user-1")
	cart.Add("p1", 2)

	assert.True(t, cart.SetQuantity("p1", 7))
	assert.EqualValues(t, 7, cart.Items[0].Quantity)

	assert.False(t, cart.SetQuantity("p2", 1))
}

func TestCartRemove(t *testing.T) {
	cart := NewCart("user-1")
	cart.Add("p1", 2)
	cart.Add("p2", 1)

	assert.True(t, cart.Remove("p1"))
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ProductID)

	assert.False(t, cart.Remove("p1"))
}

func TestCartClear(t *testing.T) {
	cart := NewCart("user-1")
	cart.Add("p1", 2)

	cart.Clear()
	assert.True(t, cart.IsEmpty())
}
