// Package paramspace indexes a batch of simulation records by their
// parameter space and expands checkbox selections into coordinates.
//
// The space has one axis per input parameter followed by three fixed axes:
// the tracked quantity, the measuring point and the dimension. A Coord holds
// one value per axis in that order and addresses a single time series in the
// Index. Space and Index are built once per batch and never mutated.
package paramspace

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/banshee-data/sweepview/internal/record"
)

// Headers of the three fixed trailing axes.
const (
	HeaderQuantity       = "Output value"
	HeaderMeasuringPoint = "Measuring point"
	HeaderDimension      = "Dimension"
)

// fixedAxes is the number of trailing axes that are not input parameters.
const fixedAxes = 3

var (
	ErrEmptyBatch       = errors.New("no records to index")
	ErrParamMismatch    = errors.New("input parameter spaces don't match up")
	ErrQuantityMismatch = errors.New("output values spaces don't match up")
	ErrLabelMismatch    = errors.New("measuring point or dimension labels don't match up")
	ErrShapeOutOfRange  = errors.New("output array larger than its labels")
	ErrMalformedRecord  = errors.New("malformed record")
	ErrReservedParam    = errors.New("input parameter named like a fixed axis")
)

// Axis is one dimension of the parameter space.
type Axis struct {
	Header string
	Values []string
	// Open axes are input parameters whose values were discovered while
	// scanning records. Fixed axes come from the first record.
	Open bool
}

// Contains reports whether v is one of the axis values.
func (a Axis) Contains(v string) bool {
	return a.indexOf(v) >= 0
}

func (a Axis) indexOf(v string) int {
	for i, x := range a.Values {
		if x == v {
			return i
		}
	}
	return -1
}

// Space is the finalized parameter space of a batch.
type Space struct {
	Axes []Axis
}

// Headers returns the axis headers in axis order.
func (s *Space) Headers() []string {
	headers := make([]string, len(s.Axes))
	for i, a := range s.Axes {
		headers[i] = a.Header
	}
	return headers
}

// Params returns the input-parameter headers (every axis but the last three).
func (s *Space) Params() []string {
	return s.Headers()[:s.PrefixLen()]
}

// PrefixLen is the number of input-parameter axes.
func (s *Space) PrefixLen() int {
	return len(s.Axes) - fixedAxes
}

// Axis returns the axis with the given header.
func (s *Space) Axis(header string) (Axis, bool) {
	i := s.axisIndex(header)
	if i < 0 {
		return Axis{}, false
	}
	return s.Axes[i], true
}

func (s *Space) axisIndex(header string) int {
	for i, a := range s.Axes {
		if a.Header == header {
			return i
		}
	}
	return -1
}

// Size is the number of fully specified coordinates in the space.
func (s *Space) Size() int {
	if len(s.Axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range s.Axes {
		n *= len(a.Values)
	}
	return n
}

// Builder accumulates the parameter space over the records of one batch.
type Builder struct {
	params     []string
	quantities []string
	msPoints   []string
	dimensions []string
	open       []map[string]struct{}
	records    int
}

// NewBuilder initializes one empty open set per input parameter of first
// plus the fixed quantity, measuring-point and dimension axes taken from it.
// first itself still has to be passed to Add.
func NewBuilder(first *record.Record) *Builder {
	b := &Builder{
		params:     first.InputParams.Names(),
		quantities: first.OutputValues.Names(),
		msPoints:   append([]string(nil), first.MsPoints...),
		dimensions: append([]string(nil), first.Dimensions...),
	}
	b.open = make([]map[string]struct{}, len(b.params))
	for i := range b.open {
		b.open[i] = make(map[string]struct{})
	}
	return b
}

// Add checks rec against the first record and records its parameter values.
// It returns the record's coordinate prefix (string-cast parameter values in
// axis order). Any error is fatal for the whole batch.
func (b *Builder) Add(rec *record.Record) (Coord, error) {
	if err := b.check(rec); err != nil {
		return nil, err
	}

	prefix := make(Coord, len(rec.InputParams))
	for i, v := range rec.InputParams.Strings() {
		prefix[i] = v
		b.open[i][v] = struct{}{}
	}
	b.records++
	return prefix, nil
}

func (b *Builder) check(rec *record.Record) error {
	if err := checkLabels(rec); err != nil {
		return err
	}
	if names := rec.InputParams.Names(); !record.SameSequence(names, b.params) {
		return fmt.Errorf("%w: %s has %v, want %v", ErrParamMismatch, rec, names, b.params)
	}
	if names := rec.OutputValues.Names(); !record.SameSequence(names, b.quantities) {
		return fmt.Errorf("%w: %s has %v, want %v", ErrQuantityMismatch, rec, names, b.quantities)
	}
	if !record.SameSequence(rec.MsPoints, b.msPoints) {
		return fmt.Errorf("%w: %s has measuring points %v, want %v", ErrLabelMismatch, rec, rec.MsPoints, b.msPoints)
	}
	if !record.SameSequence(rec.Dimensions, b.dimensions) {
		return fmt.Errorf("%w: %s has dimensions %v, want %v", ErrLabelMismatch, rec, rec.Dimensions, b.dimensions)
	}
	return nil
}

// checkLabels rejects a record whose own names cannot form distinct axes or
// distinct coordinates: a parameter shadowing a fixed axis header, or a
// repeated parameter, quantity, measuring point or dimension.
func checkLabels(rec *record.Record) error {
	params := rec.InputParams.Names()
	for _, name := range params {
		switch name {
		case HeaderQuantity, HeaderMeasuringPoint, HeaderDimension:
			return fmt.Errorf("%w: %s has parameter %q", ErrReservedParam, rec, name)
		}
	}
	if dup, ok := firstDuplicate(params); ok {
		return fmt.Errorf("%w: %s repeats parameter %q", ErrParamMismatch, rec, dup)
	}
	if dup, ok := firstDuplicate(rec.OutputValues.Names()); ok {
		return fmt.Errorf("%w: %s repeats quantity %q", ErrQuantityMismatch, rec, dup)
	}
	if dup, ok := firstDuplicate(rec.MsPoints); ok {
		return fmt.Errorf("%w: %s repeats measuring point %q", ErrLabelMismatch, rec, dup)
	}
	if dup, ok := firstDuplicate(rec.Dimensions); ok {
		return fmt.Errorf("%w: %s repeats dimension %q", ErrLabelMismatch, rec, dup)
	}
	return nil
}

func firstDuplicate(names []string) (string, bool) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n, true
		}
		seen[n] = struct{}{}
	}
	return "", false
}

// Space finalizes the builder. Open axis values are sorted (numerically when
// every value parses as a number); fixed axes keep the first record's order.
func (b *Builder) Space() *Space {
	axes := make([]Axis, 0, len(b.params)+fixedAxes)
	for i, name := range b.params {
		values := make([]string, 0, len(b.open[i]))
		for v := range b.open[i] {
			values = append(values, v)
		}
		SortValues(values)
		axes = append(axes, Axis{Header: name, Values: values, Open: true})
	}
	axes = append(axes,
		Axis{Header: HeaderQuantity, Values: append([]string(nil), b.quantities...)},
		Axis{Header: HeaderMeasuringPoint, Values: append([]string(nil), b.msPoints...)},
		Axis{Header: HeaderDimension, Values: append([]string(nil), b.dimensions...)},
	)
	return &Space{Axes: axes}
}

// SortValues orders axis values in place: numerically if all of them parse
// as finite numbers, lexically otherwise. Ties in numeric value (e.g. "1"
// and "1.0") fall back to lexical order.
func SortValues(values []string) {
	nums := make(map[string]float64, len(values))
	numeric := true
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			numeric = false
			break
		}
		nums[v] = f
	}
	if !numeric {
		sort.Strings(values)
		return
	}
	sort.Slice(values, func(i, j int) bool {
		a, b := nums[values[i]], nums[values[j]]
		if a != b {
			return a < b
		}
		return values[i] < values[j]
	})
}
