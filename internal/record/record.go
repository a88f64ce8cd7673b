// Package record decodes simulation result files into Records.
//
// A record holds the swept input parameters of one simulation run, one
// three-dimensional output array per tracked quantity shaped
// [time-steps, measuring-points, dimensions], the shared time axis, and the
// measuring-point and dimension labels. Key order of input_params and
// output_values is preserved from the file because the parameter-space
// builder compares key sets as ordered sequences.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is one loaded simulation result.
type Record struct {
	// Source is the path the record was decoded from (empty for records
	// built in memory).
	Source string `json:"-" yaml:"-"`

	InputParams  Params     `json:"input_params" yaml:"input_params"`
	OutputValues Quantities `json:"output_values" yaml:"output_values"`
	Time         []float64  `json:"time" yaml:"time"`
	MsPoints     []string   `json:"ms_points" yaml:"ms_points"`
	Dimensions   []string   `json:"dimensions" yaml:"dimensions"`
}

// ErrInvalidRecord is returned when a decoded file lacks required fields.
var ErrInvalidRecord = errors.New("invalid record")

// Validate checks that the fields every record must carry are present.
// Consistency across records is checked by the parameter-space builder.
func (r *Record) Validate() error {
	if len(r.Time) == 0 {
		return fmt.Errorf("%w: time axis is empty", ErrInvalidRecord)
	}
	if len(r.OutputValues) == 0 {
		return fmt.Errorf("%w: no output_values", ErrInvalidRecord)
	}
	if r.MsPoints == nil {
		return fmt.Errorf("%w: ms_points missing", ErrInvalidRecord)
	}
	if r.Dimensions == nil {
		return fmt.Errorf("%w: dimensions missing", ErrInvalidRecord)
	}
	for _, q := range r.OutputValues {
		if q.Values == nil {
			return fmt.Errorf("%w: quantity %q has no values", ErrInvalidRecord, q.Name)
		}
	}
	return nil
}

// Param is one named input parameter. Value is a scalar: string, bool,
// json.Number, an integer or float type, or nil.
type Param struct {
	Name  string
	Value interface{}
}

// Params is the ordered input-parameter mapping of a record.
type Params []Param

// Names returns the parameter names in file order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Strings returns the string-cast parameter values in file order.
func (p Params) Strings() []string {
	out := make([]string, len(p))
	for i, param := range p {
		out[i] = FormatValue(param.Value)
	}
	return out
}

// Lookup returns the value of the named parameter.
func (p Params) Lookup(name string) (interface{}, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Quantity is one tracked output quantity.
type Quantity struct {
	Name   string
	Values *Array3
}

// Quantities is the ordered output-value mapping of a record.
type Quantities []Quantity

// Names returns the quantity names in file order.
func (q Quantities) Names() []string {
	names := make([]string, len(q))
	for i, qty := range q {
		names[i] = qty.Name
	}
	return names
}

// Get returns the array of the named quantity.
func (q Quantities) Get(name string) (*Array3, bool) {
	for _, qty := range q {
		if qty.Name == name {
			return qty.Values, true
		}
	}
	return nil, false
}

// FormatValue casts a parameter value to the string used as its axis value.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// SameSequence reports whether a and b hold the same strings in the same order.
func SameSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// describe is a short identifier for diagnostics.
func (r *Record) describe() string {
	if r.Source != "" {
		return r.Source
	}
	return "<" + strings.Join(r.InputParams.Strings(), ",") + ">"
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	return r.describe()
}
