package explorer

import (
	"github.com/banshee-data/sweepview/internal/paramspace"
)

// Widget is an element built by a Toolkit. Its concrete type belongs to the
// toolkit that made it.
type Widget interface{}

// Toolkit builds the checkbox controls of a session. A checkbox is
// identified by the axis header and value it toggles; the toolkit reports
// changes back through Session.OnChange.
type Toolkit interface {
	Checkbox(header, value string, checked bool) Widget
	VBox(children []Widget) Widget
	Tab(titles []string, children []Widget) Widget
}

// BuildControls lays out one tab per axis, each holding a vertical box with
// one checkbox per axis value, checked according to sel.
func BuildControls(tk Toolkit, sel *paramspace.Selection) Widget {
	space := sel.Space()
	titles := make([]string, 0, len(space.Axes))
	tabs := make([]Widget, 0, len(space.Axes))
	for _, a := range space.Axes {
		boxes := make([]Widget, len(a.Values))
		for i, v := range a.Values {
			boxes[i] = tk.Checkbox(a.Header, v, sel.IsSet(a.Header, v))
		}
		titles = append(titles, a.Header)
		tabs = append(tabs, tk.VBox(boxes))
	}
	return tk.Tab(titles, tabs)
}
