package paramspace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAxis           = errors.New("unknown axis")
	ErrUnknownValue          = errors.New("unknown axis value")
	ErrInsufficientSelection = errors.New("insufficient selection")
)

// InsufficientSelectionError lists the axes with nothing checked.
type InsufficientSelectionError struct {
	Missing []string
}

func (e *InsufficientSelectionError) Error() string {
	return fmt.Sprintf("%s: nothing checked under %s", ErrInsufficientSelection, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is match ErrInsufficientSelection.
func (e *InsufficientSelectionError) Is(target error) bool {
	return target == ErrInsufficientSelection
}

// Selection records which values are checked on each axis of a Space.
// Flags are kept per axis (axis → value → checked), and Selected always
// reports values in axis order, never in map order.
type Selection struct {
	space   *Space
	checked map[string]map[string]bool
}

// NewSelection returns a selection over space with nothing checked.
func NewSelection(space *Space) *Selection {
	s := &Selection{
		space:   space,
		checked: make(map[string]map[string]bool, len(space.Axes)),
	}
	for _, a := range space.Axes {
		s.checked[a.Header] = make(map[string]bool, len(a.Values))
	}
	return s
}

// DefaultSelection checks the first value of every axis.
func DefaultSelection(space *Space) *Selection {
	s := NewSelection(space)
	for _, a := range space.Axes {
		if len(a.Values) > 0 {
			s.checked[a.Header][a.Values[0]] = true
		}
	}
	return s
}

// SelectionFromMap builds a selection from axis → checked values.
func SelectionFromMap(space *Space, values map[string][]string) (*Selection, error) {
	s := NewSelection(space)
	for header, vs := range values {
		if err := s.SetAxis(header, vs); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Space returns the space the selection refers to.
func (s *Selection) Space() *Space {
	return s.space
}

// Set checks or unchecks one value.
func (s *Selection) Set(header, value string, on bool) error {
	a, ok := s.space.Axis(header)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownAxis, header)
	}
	if !a.Contains(value) {
		return fmt.Errorf("%w %q on axis %q", ErrUnknownValue, value, header)
	}
	if on {
		s.checked[header][value] = true
	} else {
		delete(s.checked[header], value)
	}
	return nil
}

// SetAxis replaces the checked values of one axis.
func (s *Selection) SetAxis(header string, values []string) error {
	a, ok := s.space.Axis(header)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownAxis, header)
	}
	next := make(map[string]bool, len(values))
	for _, v := range values {
		if !a.Contains(v) {
			return fmt.Errorf("%w %q on axis %q", ErrUnknownValue, v, header)
		}
		next[v] = true
	}
	s.checked[header] = next
	return nil
}

// IsSet reports whether value is checked on the axis.
func (s *Selection) IsSet(header, value string) bool {
	return s.checked[header][value]
}

// Selected returns the checked values of an axis in axis order.
func (s *Selection) Selected(header string) []string {
	a, ok := s.space.Axis(header)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range a.Values {
		if s.checked[header][v] {
			out = append(out, v)
		}
	}
	return out
}

// Unselected returns the headers with no checked value, in axis order.
func (s *Selection) Unselected() []string {
	var missing []string
	for _, a := range s.space.Axes {
		if len(s.checked[a.Header]) == 0 {
			missing = append(missing, a.Header)
		}
	}
	return missing
}

// Map returns axis → checked values, each list in axis order.
func (s *Selection) Map() map[string][]string {
	out := make(map[string][]string, len(s.space.Axes))
	for _, a := range s.space.Axes {
		out[a.Header] = s.Selected(a.Header)
	}
	return out
}

// Clone returns an independent copy.
func (s *Selection) Clone() *Selection {
	c := NewSelection(s.space)
	for header, values := range s.checked {
		for v, on := range values {
			if on {
				c.checked[header][v] = true
			}
		}
	}
	return c
}
