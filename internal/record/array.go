package record

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrRaggedArray is returned when a nested output array is not rectangular.
var ErrRaggedArray = errors.New("ragged output array")

// Array3 is a dense row-major float64 array shaped
// [time-steps, measuring-points, dimensions].
type Array3 struct {
	Shape [3]int
	Data  []float64
}

// NewArray3 allocates a zeroed array of the given shape.
func NewArray3(steps, points, dims int) *Array3 {
	return &Array3{
		Shape: [3]int{steps, points, dims},
		Data:  make([]float64, steps*points*dims),
	}
}

// FromNested converts a nested [T][M][D] slice into an Array3.
func FromNested(nested [][][]float64) (*Array3, error) {
	if len(nested) == 0 || len(nested[0]) == 0 || len(nested[0][0]) == 0 {
		return nil, fmt.Errorf("%w: every axis needs at least one entry", ErrRaggedArray)
	}
	steps, points, dims := len(nested), len(nested[0]), len(nested[0][0])
	a := NewArray3(steps, points, dims)
	for t, plane := range nested {
		if len(plane) != points {
			return nil, fmt.Errorf("%w: step %d has %d measuring points, want %d", ErrRaggedArray, t, len(plane), points)
		}
		for m, row := range plane {
			if len(row) != dims {
				return nil, fmt.Errorf("%w: step %d point %d has %d dimensions, want %d", ErrRaggedArray, t, m, len(row), dims)
			}
			copy(a.Data[(t*points+m)*dims:], row)
		}
	}
	return a, nil
}

// At returns the element at (t, m, d).
func (a *Array3) At(t, m, d int) float64 {
	return a.Data[(t*a.Shape[1]+m)*a.Shape[2]+d]
}

// Set stores v at (t, m, d).
func (a *Array3) Set(t, m, d int, v float64) {
	a.Data[(t*a.Shape[1]+m)*a.Shape[2]+d] = v
}

// Series copies the time series at measuring point m and dimension d.
func (a *Array3) Series(m, d int) []float64 {
	out := make([]float64, a.Shape[0])
	for t := range out {
		out[t] = a.At(t, m, d)
	}
	return out
}

// Nested returns the [T][M][D] form of the array.
func (a *Array3) Nested() [][][]float64 {
	out := make([][][]float64, a.Shape[0])
	for t := range out {
		out[t] = make([][]float64, a.Shape[1])
		for m := range out[t] {
			row := make([]float64, a.Shape[2])
			copy(row, a.Data[(t*a.Shape[1]+m)*a.Shape[2]:])
			out[t][m] = row
		}
	}
	return out
}

// UnmarshalJSON decodes a nested list of numbers.
func (a *Array3) UnmarshalJSON(data []byte) error {
	var nested [][][]float64
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}
	decoded, err := FromNested(nested)
	if err != nil {
		return err
	}
	*a = *decoded
	return nil
}

// MarshalJSON encodes the array as a nested list.
func (a *Array3) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Nested())
}

// UnmarshalYAML decodes a nested sequence of numbers.
func (a *Array3) UnmarshalYAML(value *yaml.Node) error {
	var nested [][][]float64
	if err := value.Decode(&nested); err != nil {
		return err
	}
	decoded, err := FromNested(nested)
	if err != nil {
		return err
	}
	*a = *decoded
	return nil
}
