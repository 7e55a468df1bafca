// Package seating bound-checks seat numbers against an area's capacity and
// enumerates the seats of an area.  Seats are plain integers 1..capacity;
// nothing here is persisted.
package seating

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// IsValidSeat reports whether n is a seat of area.
func IsValidSeat(area *model.Area, n int) bool {
	return area != nil && n >= 1 && n <= area.Capacity
}

// AllSeats yields 1..area.Capacity.  The sequence is lazy and can be
// ranged over any number of times.
func AllSeats(area *model.Area) iter.Seq[int] {
	return func(yield func(int) bool) {
		if area == nil {
			return
		}
		for n := 1; n <= area.Capacity; n++ {
			if !yield(n) {
				return
			}
		}
	}
}

// Available returns the seats of area not present in occupied, ascending.
// Occupied numbers outside the area's range are ignored.
func Available(area *model.Area, occupied []int) []int {
	taken := make(map[int]struct{}, len(occupied))
	for _, n := range occupied {
		taken[n] = struct{}{}
	}
	out := make([]int, 0, max(area.Capacity-len(taken), 0))
	for n := range AllSeats(area) {
		if _, ok := taken[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// AreaLookup loads an area by id.  Implementations return an error
// matching model.ErrAreaNotFound when the id is unknown.
type AreaLookup interface {
	Area(ctx context.Context, id uint64) (*model.Area, error)
}

// Inventory resolves areas and hides inactive ones.  It is the only
// component allowed to reject a request before the ledger is consulted.
type Inventory struct {
	areas AreaLookup
}

// NewInventory wraps an area lookup.
func NewInventory(areas AreaLookup) *Inventory {
	return &Inventory{areas: areas}
}

// Area returns the active area with the given id.  Inactive areas are
// reported as not found.
func (inv *Inventory) Area(ctx context.Context, id uint64) (*model.Area, error) {
	a, err := inv.areas.Area(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, fmt.Errorf("area %d is inactive: %w", id, model.ErrAreaNotFound)
	}
	return a, nil
}

// Seats returns all seat numbers of the area with the given id.
func (inv *Inventory) Seats(ctx context.Context, id uint64) ([]int, error) {
	a, err := inv.Area(ctx, id)
	if err != nil {
		return nil, err
	}
	return slices.Collect(AllSeats(a)), nil
}
