package paramspace

import (
	"strconv"
	"strings"
)

// Coord is a point in the parameter space, one value per axis in axis order.
// A prefix Coord holds only the input-parameter values.
type Coord []string

// Key encodes c as a map key. Each value is length-prefixed, so no value
// content can make two different coordinates collide.
func (c Coord) Key() string {
	var sb strings.Builder
	for _, v := range c {
		sb.WriteString(strconv.Itoa(len(v)))
		sb.WriteByte(':')
		sb.WriteString(v)
	}
	return sb.String()
}

// Prefix returns the input-parameter part of a full coordinate.
func (c Coord) Prefix() Coord {
	if len(c) < fixedAxes {
		return nil
	}
	return c[:len(c)-fixedAxes]
}

// Quantity returns the tracked-quantity value of a full coordinate.
func (c Coord) Quantity() string {
	return c.fromEnd(3)
}

// MeasuringPoint returns the measuring-point value of a full coordinate.
func (c Coord) MeasuringPoint() string {
	return c.fromEnd(2)
}

// Dimension returns the dimension value of a full coordinate.
func (c Coord) Dimension() string {
	return c.fromEnd(1)
}

func (c Coord) fromEnd(n int) string {
	if len(c) < n {
		return ""
	}
	return c[len(c)-n]
}

// With returns prefix extended by quantity, measuring point and dimension.
func (c Coord) With(quantity, msPoint, dimension string) Coord {
	out := make(Coord, 0, len(c)+fixedAxes)
	out = append(out, c...)
	return append(out, quantity, msPoint, dimension)
}

// Equal reports whether two coordinates hold the same values.
func (c Coord) Equal(other Coord) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the coordinate as a parenthesized tuple.
func (c Coord) String() string {
	quoted := make([]string, len(c))
	for i, v := range c {
		quoted[i] = strconv.Quote(v)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
