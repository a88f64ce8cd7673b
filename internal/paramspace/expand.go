package paramspace

import (
	"errors"
	"fmt"
)

// MaxCombinations bounds the number of coordinates one expansion may yield.
const MaxCombinations = 10000

// ErrTooManyCombinations is returned when a selection exceeds MaxCombinations.
var ErrTooManyCombinations = errors.New("selection expands to too many combinations")

// Expansion is the set of coordinates a selection asks for, plus the subplot
// slot assigned to each checked value of the slot axis.
type Expansion struct {
	Headers []string
	Coords  []Coord

	// SlotHeader is the axis third from the end of the header order, the
	// tracked quantity. Slots maps each of its checked values to 0..k-1 in
	// selection order; SlotOrder lists those values by slot.
	SlotHeader string
	Slots      map[string]int
	SlotOrder  []string
}

// Slot returns the subplot slot of a coordinate produced by this expansion.
func (e *Expansion) Slot(c Coord) int {
	return e.Slots[c.fromEnd(fixedAxes)]
}

// NumSlots is the number of distinct subplot slots.
func (e *Expansion) NumSlots() int {
	return len(e.SlotOrder)
}

// Expand turns a selection into the cartesian product of one checked value
// per axis, in header order with the last axis varying fastest. It fails
// with an *InsufficientSelectionError when some axis has nothing checked;
// no coordinates are produced in that case.
func Expand(sel *Selection) (*Expansion, error) {
	space := sel.Space()
	if missing := sel.Unselected(); len(missing) > 0 {
		return nil, &InsufficientSelectionError{Missing: missing}
	}

	headers := space.Headers()
	values := make([][]string, len(headers))
	total := int64(1)
	for i, h := range headers {
		values[i] = sel.Selected(h)
		total *= int64(len(values[i]))
		if total > MaxCombinations {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyCombinations, MaxCombinations)
		}
	}

	coords := make([]Coord, total)
	for i := range coords {
		coords[i] = make(Coord, len(headers))
	}
	repeat := int64(1)
	for dim := len(headers) - 1; dim >= 0; dim-- {
		dimValues := values[dim]
		cycle := int64(len(dimValues))
		for i := int64(0); i < total; i++ {
			coords[i][dim] = dimValues[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	slotAxis := len(headers) - fixedAxes
	exp := &Expansion{
		Headers:    headers,
		Coords:     coords,
		SlotHeader: headers[slotAxis],
		Slots:      make(map[string]int, len(values[slotAxis])),
	}
	for _, v := range values[slotAxis] {
		if _, ok := exp.Slots[v]; ok {
			continue
		}
		exp.Slots[v] = len(exp.SlotOrder)
		exp.SlotOrder = append(exp.SlotOrder, v)
	}
	return exp, nil
}
