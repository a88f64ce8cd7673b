package explorer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// HTMLToolkit renders widgets as HTML fragments.
type HTMLToolkit struct {
	tmpl *template.Template
	seq  int
}

// htmlWidget is a rendered fragment. A template failure is carried along
// and surfaces when the page is rendered.
type htmlWidget struct {
	html template.HTML
	err  error
}

// NewHTMLToolkit parses the embedded widget and page templates.
func NewHTMLToolkit() (*HTMLToolkit, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTMLToolkit{tmpl: tmpl}, nil
}

func (tk *HTMLToolkit) fragment(name string, data interface{}) htmlWidget {
	var buf bytes.Buffer
	if err := tk.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return htmlWidget{err: fmt.Errorf("%s: %w", name, err)}
	}
	return htmlWidget{html: template.HTML(buf.String())}
}

func (tk *HTMLToolkit) nextID(prefix string) string {
	tk.seq++
	return fmt.Sprintf("%s-%d", prefix, tk.seq)
}

// Checkbox renders a labelled checkbox carrying its axis and value.
func (tk *HTMLToolkit) Checkbox(header, value string, checked bool) Widget {
	return tk.fragment("checkbox", map[string]interface{}{
		"ID":      tk.nextID("cb"),
		"Header":  header,
		"Value":   value,
		"Checked": checked,
	})
}

// VBox stacks children vertically.
func (tk *HTMLToolkit) VBox(children []Widget) Widget {
	inner, err := joinWidgets(children)
	if err != nil {
		return htmlWidget{err: err}
	}
	return tk.fragment("vbox", inner)
}

// Tab renders one tab per title with the matching child as its body.
func (tk *HTMLToolkit) Tab(titles []string, children []Widget) Widget {
	if len(titles) != len(children) {
		return htmlWidget{err: fmt.Errorf("tab: %d titles for %d children", len(titles), len(children))}
	}
	type pane struct {
		ID    string
		Title string
		Body  template.HTML
	}
	group := tk.nextID("tabs")
	panes := make([]pane, len(titles))
	for i, child := range children {
		w, ok := child.(htmlWidget)
		if !ok {
			return htmlWidget{err: fmt.Errorf("tab: foreign widget %T", child)}
		}
		if w.err != nil {
			return w
		}
		panes[i] = pane{ID: fmt.Sprintf("%s-%d", group, i), Title: titles[i], Body: w.html}
	}
	return tk.fragment("tab", map[string]interface{}{"Group": group, "Panes": panes})
}

func joinWidgets(children []Widget) (template.HTML, error) {
	var sb strings.Builder
	for _, child := range children {
		w, ok := child.(htmlWidget)
		if !ok {
			return "", fmt.Errorf("foreign widget %T", child)
		}
		if w.err != nil {
			return "", w.err
		}
		sb.WriteString(string(w.html))
	}
	return template.HTML(sb.String()), nil
}

// PageData is what the explorer page shows around the controls.
type PageData struct {
	Title    string
	Source   string
	Layout   string
	Records  int
	Skipped  int
	Message  string
	Missing  []string
	Revision int64
}

// RenderPage writes the full explorer page with root as its controls.
func (tk *HTMLToolkit) RenderPage(w io.Writer, root Widget, data PageData) error {
	body, ok := root.(htmlWidget)
	if !ok {
		return fmt.Errorf("foreign widget %T", root)
	}
	if body.err != nil {
		return body.err
	}
	return tk.tmpl.ExecuteTemplate(w, "page", struct {
		PageData
		Controls template.HTML
	}{data, body.html})
}
