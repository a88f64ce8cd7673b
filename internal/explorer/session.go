// Package explorer ties a loaded batch to its checkbox controls. Setup loads
// and indexes a batch once; every change of the controls then runs Update,
// which expands the selection, composes the figure and renders it.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sweepview/internal/catalog"
	"github.com/banshee-data/sweepview/internal/config"
	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/paramspace"
	"github.com/banshee-data/sweepview/internal/record"
	"github.com/banshee-data/sweepview/internal/render"
	"github.com/banshee-data/sweepview/internal/timeutil"
)

// InsufficientSelectionMessage is printed when some axis has nothing checked.
const InsufficientSelectionMessage = "Please check at least one box in each group"

// Deps are the collaborators of a session. Only FS is required.
type Deps struct {
	FS fsutil.FileSystem
	// Catalog, when set, records every loaded batch.
	Catalog *catalog.Catalog
	// Toolkit builds the controls; nil uses an HTMLToolkit.
	Toolkit Toolkit
	// Targets overrides the render targets derived from the config.
	Targets []render.Target
	// Clock stamps batch loads and renders; nil uses the real clock.
	Clock timeutil.Clock
	// InitialSelection replaces the default values of the listed axes for
	// the first render. Unlisted axes keep their default.
	InitialSelection map[string][]string
}

// UpdateResult describes one completed render.
type UpdateResult struct {
	Revision   int64               `json:"revision"`
	Selection  map[string][]string `json:"selection"`
	Coords     int                 `json:"coords"`
	Panels     int                 `json:"panels"`
	Curves     int                 `json:"curves"`
	Missing    []string            `json:"missing,omitempty"`
	Outputs    []string            `json:"outputs"`
	RenderedAt time.Time           `json:"rendered_at"`
}

// Session is one explorer over one batch. All methods are safe for
// concurrent use; updates are serialized.
type Session struct {
	mu sync.Mutex

	cfg     *config.ExplorerConfig
	layout  render.Layout
	opts    render.Options
	batch   *record.Batch
	batchID string
	space   *paramspace.Space
	index   *paramspace.Index
	sel     *paramspace.Selection
	toolkit Toolkit
	targets []render.Target
	clock   timeutil.Clock

	revision int64
	figure   *render.Figure
	last     *UpdateResult
	message  string
}

// Setup validates the configuration, loads and indexes the batch, renders
// the initial selection (the first value of every axis, overridden per axis
// by deps.InitialSelection) and then records the batch in the catalog. The
// layout is checked before anything is loaded; a failed first render leaves
// no catalog entry.
func Setup(ctx context.Context, cfg *config.ExplorerConfig, deps Deps) (*Session, error) {
	if cfg == nil {
		cfg = &config.ExplorerConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := render.ParseLayout(string(cfg.GetLayout()))
	if err != nil {
		return nil, err
	}
	if deps.FS == nil {
		deps.FS = fsutil.OSFileSystem{}
	}

	batch, err := record.Load(deps.FS, cfg.GetFiles())
	if err != nil {
		return nil, err
	}
	space, ix, err := paramspace.Build(batch.Records)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", batch.Source, err)
	}

	s := &Session{
		cfg:     cfg,
		layout:  layout,
		opts:    render.Options{PacingQuantity: cfg.GetPacingQuantity()},
		batch:   batch,
		space:   space,
		index:   ix,
		sel:     paramspace.DefaultSelection(space),
		toolkit: deps.Toolkit,
		targets: deps.Targets,
		clock:   deps.Clock,
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	if s.toolkit == nil {
		tk, err := NewHTMLToolkit()
		if err != nil {
			return nil, err
		}
		s.toolkit = tk
	}
	if s.targets == nil {
		s.targets = targetsFromConfig(deps.FS, cfg)
	}

	loadedAt := s.clock.Now()

	// Sorted so a bad axis is reported the same way on every run.
	headers := make([]string, 0, len(deps.InitialSelection))
	for h := range deps.InitialSelection {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	for _, h := range headers {
		if err := s.sel.SetAxis(h, deps.InitialSelection[h]); err != nil {
			return nil, err
		}
	}

	if _, err := s.Update(s.sel); err != nil {
		return nil, err
	}

	if deps.Catalog != nil {
		id, err := deps.Catalog.RecordBatch(ctx, batchLoad(batch, layout, space, ix, loadedAt))
		if err != nil {
			return nil, fmt.Errorf("record batch: %w", err)
		}
		s.batchID = id
		monitoring.Logf("recorded batch %s (%s)", id, batch.Source)
	}
	return s, nil
}

func targetsFromConfig(fs fsutil.FileSystem, cfg *config.ExplorerConfig) []render.Target {
	img := render.NewImageTarget(fs, cfg.GetOutput())
	img.Width = vg.Length(cfg.GetWidth()) * vg.Inch
	img.PanelHeight = vg.Length(cfg.GetPanelHeight()) * vg.Inch
	img.DPI = cfg.GetDPI()
	targets := []render.Target{img}
	if path := cfg.GetHTMLOutput(); path != "" {
		targets = append(targets, &render.HTMLTarget{FS: fs, Path: path, Title: cfg.GetTitle()})
	}
	return targets
}

// batchLoad summarizes a batch for the catalog. Files are listed in path
// order, loaded and skipped alike.
func batchLoad(b *record.Batch, layout render.Layout, space *paramspace.Space, ix *paramspace.Index, at time.Time) catalog.BatchLoad {
	files := make([]catalog.FileEntry, 0, len(b.Records)+len(b.Skipped))
	for _, rec := range b.Records {
		files = append(files, catalog.FileEntry{Path: rec.Source, Status: catalog.StatusLoaded})
	}
	for _, sk := range b.Skipped {
		files = append(files, catalog.FileEntry{Path: sk.Path, Status: catalog.StatusSkipped, Error: sk.Err.Error()})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	axes := make([]catalog.AxisSummary, len(space.Axes))
	for i, a := range space.Axes {
		axes[i] = catalog.AxisSummary{Header: a.Header, Values: append([]string(nil), a.Values...)}
	}
	return catalog.BatchLoad{
		Source:   b.Source,
		Layout:   string(layout),
		Axes:     axes,
		Series:   ix.Len(),
		Files:    files,
		LoadedAt: at,
	}
}

// Update makes sel the current selection and renders it. With an axis left
// empty it prints InsufficientSelectionMessage and returns an error matching
// paramspace.ErrInsufficientSelection; nothing is rendered and the previous
// output stays in place.
func (s *Session) Update(sel *paramspace.Selection) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel.Space() != s.space {
		return nil, errors.New("selection belongs to a different parameter space")
	}
	s.sel = sel.Clone()
	return s.updateLocked()
}

// OnChange is the checkbox callback: it toggles one value and re-renders.
func (s *Session) OnChange(header, value string, checked bool) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sel.Set(header, value, checked); err != nil {
		return nil, err
	}
	return s.updateLocked()
}

func (s *Session) updateLocked() (*UpdateResult, error) {
	exp, err := paramspace.Expand(s.sel)
	if err != nil {
		if errors.Is(err, paramspace.ErrInsufficientSelection) {
			monitoring.Diagf(InsufficientSelectionMessage)
			s.message = InsufficientSelectionMessage
		}
		return nil, err
	}

	start := s.clock.Now()
	fig, missing := render.Compose(s.layout, s.space, s.index, exp, s.opts)
	for _, t := range s.targets {
		if err := t.Render(fig); err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
	}

	s.revision++
	res := &UpdateResult{
		Revision:   s.revision,
		Selection:  s.sel.Map(),
		Coords:     len(exp.Coords),
		Panels:     len(fig.Panels),
		Outputs:    outputs(s.targets),
		RenderedAt: s.clock.Now().UTC(),
	}
	for _, p := range fig.Panels {
		res.Curves += len(p.Curves)
	}
	for _, c := range missing {
		res.Missing = append(res.Missing, c.String())
	}

	monitoring.Logf("rendered revision %d: %d curves in %d panels (%v)", res.Revision, res.Curves, res.Panels, s.clock.Since(start))
	s.figure = fig
	s.last = res
	s.message = ""
	return res, nil
}

func outputs(targets []render.Target) []string {
	var out []string
	for _, t := range targets {
		switch t := t.(type) {
		case *render.ImageTarget:
			out = append(out, t.Path)
		case *render.HTMLTarget:
			out = append(out, t.Path)
		}
	}
	return out
}

// Space returns the batch's parameter space.
func (s *Session) Space() *paramspace.Space {
	return s.space
}

// Index returns the batch's coordinate index.
func (s *Session) Index() *paramspace.Index {
	return s.index
}

// Batch returns the loaded batch.
func (s *Session) Batch() *record.Batch {
	return s.batch
}

// BatchID returns the catalog id of the batch, or "" without a catalog.
func (s *Session) BatchID() string {
	return s.batchID
}

// Layout returns the session's layout mode.
func (s *Session) Layout() render.Layout {
	return s.layout
}

// Config returns the session configuration.
func (s *Session) Config() *config.ExplorerConfig {
	return s.cfg
}

// Selection returns a copy of the current checkbox state.
func (s *Session) Selection() *paramspace.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Clone()
}

// Last returns the most recent successful update.
func (s *Session) Last() *UpdateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Figure returns the most recently rendered figure.
func (s *Session) Figure() *render.Figure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.figure
}

// Controls builds the checkbox controls for the current selection.
func (s *Session) Controls() Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildControls(s.toolkit, s.sel)
}

// RenderPage writes the explorer page. It requires an HTMLToolkit.
func (s *Session) RenderPage(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk, ok := s.toolkit.(*HTMLToolkit)
	if !ok {
		return fmt.Errorf("page rendering needs an HTML toolkit, have %T", s.toolkit)
	}
	data := PageData{
		Title:    s.cfg.GetTitle(),
		Source:   s.batch.Source,
		Layout:   string(s.layout),
		Records:  len(s.batch.Records),
		Skipped:  len(s.batch.Skipped),
		Message:  s.message,
		Revision: s.revision,
	}
	if s.last != nil {
		data.Missing = s.last.Missing
	}
	return tk.RenderPage(w, BuildControls(tk, s.sel), data)
}
