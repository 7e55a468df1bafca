package seating

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

type areaMap map[uint64]*model.Area

func (m areaMap) Area(_ context.Context, id uint64) (*model.Area, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("area %d: %w", id, model.ErrAreaNotFound)
}

func TestIsValidSeat(t *testing.T) {
	area := &model.Area{Capacity: 3}
	assert.False(t, IsValidSeat(area, 0))
	assert.True(t, IsValidSeat(area, 1))
	assert.True(t, IsValidSeat(area, 3))
	assert.False(t, IsValidSeat(area, 4))
	assert.False(t, IsValidSeat(area, -1))
	assert.False(t, IsValidSeat(nil, 1))
}

func TestAllSeats_Restartable(t *testing.T) {
	seq := AllSeats(&model.Area{Capacity: 4})
	assert.Equal(t, []int{1, 2, 3, 4}, slices.Collect(seq))
	assert.Equal(t, []int{1, 2, 3, 4}, slices.Collect(seq))

	var first []int
	for n := range seq {
		if n > 2 {
			break
		}
		first = append(first, n)
	}
	assert.Equal(t, []int{1, 2}, first)
	assert.Empty(t, slices.Collect(AllSeats(&model.Area{Capacity: 0})))
}

func TestAvailable(t *testing.T) {
	area := &model.Area{Capacity: 5}
	assert.Equal(t, []int{1, 3, 5}, Available(area, []int{4, 2, 2, 9}))
	assert.Equal(t, []int{}, Available(&model.Area{Capacity: 2}, []int{1, 2}))
}

func TestInventory_Area(t *testing.T) {
	inv := NewInventory(areaMap{
		1: {ID: 1, Capacity: 3, Active: true},
		2: {ID: 2, Capacity: 3, Active: false},
	})
	ctx := context.Background()

	a, err := inv.Area(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.ID)

	_, err = inv.Area(ctx, 2)
	assert.ErrorIs(t, err, model.ErrAreaNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = inv.Area(ctx, 3)
	assert.ErrorIs(t, err, model.ErrAreaNotFound)

	seats, err := inv.Seats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seats)
}
