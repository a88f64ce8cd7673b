package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/sweepview/internal/render"
)

// DefaultExplorerConfigPath is the path to the canonical explorer defaults file.
const DefaultExplorerConfigPath = "config/sweepview.defaults.json"

// ExplorerConfig configures one explorer session. Every field is optional;
// the Get* accessors supply defaults for anything left unset, so partial
// files and flag-only invocations both work.
type ExplorerConfig struct {
	// Record source: a directory or a glob pattern.
	Files *string `json:"files,omitempty"`
	// Layout mode, "ms_points" or "avg_std_pacing".
	Layout *string `json:"layout,omitempty"`

	// Image output, PNG or SVG by extension.
	Output *string `json:"output,omitempty"`
	// Optional interactive HTML output.
	HTMLOutput *string `json:"html_output,omitempty"`

	// Figure geometry in inches; the image height is PanelHeight × panels.
	Width       *float64 `json:"width_in,omitempty"`
	PanelHeight *float64 `json:"panel_height_in,omitempty"`
	DPI         *int     `json:"dpi,omitempty"`

	// Quantity drawn as the pacing reference in avg_std_pacing.
	PacingQuantity *string `json:"pacing_quantity,omitempty"`

	// SQLite catalog of loaded batches. Empty disables the catalog.
	CatalogPath *string `json:"catalog_path,omitempty"`

	// HTTP front end.
	Listen          *string `json:"listen,omitempty"`
	ShutdownTimeout *string `json:"shutdown_timeout,omitempty"` // duration string like "5s"
	Title           *string `json:"title,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadExplorerConfig loads an ExplorerConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadExplorerConfig(path string) (*ExplorerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ExplorerConfig{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultExplorerConfig loads DefaultExplorerConfigPath, searching
// the current directory and its parents. Panics if the file cannot be
// loaded; intended for test setup.
func MustLoadDefaultExplorerConfig() *ExplorerConfig {
	candidates := []string{
		DefaultExplorerConfigPath,
		"../../" + DefaultExplorerConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultExplorerConfigPath, // from cmd/tools/<tool>/
	}
	for _, path := range candidates {
		if cfg, err := LoadExplorerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultExplorerConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. The layout is
// checked here so an unknown mode fails before any record is loaded.
func (c *ExplorerConfig) Validate() error {
	if c.Layout != nil && *c.Layout != "" {
		if _, err := render.ParseLayout(*c.Layout); err != nil {
			return err
		}
	}

	if c.Width != nil && *c.Width <= 0 {
		return fmt.Errorf("width_in must be positive, got %f", *c.Width)
	}
	if c.PanelHeight != nil && *c.PanelHeight <= 0 {
		return fmt.Errorf("panel_height_in must be positive, got %f", *c.PanelHeight)
	}
	if c.DPI != nil && (*c.DPI < 10 || *c.DPI > 1200) {
		return fmt.Errorf("dpi must be between 10 and 1200, got %d", *c.DPI)
	}

	if c.Output != nil && *c.Output != "" {
		switch ext := strings.ToLower(filepath.Ext(*c.Output)); ext {
		case ".png", ".svg":
		default:
			return fmt.Errorf("output must be a .png or .svg file, got %q", *c.Output)
		}
	}
	if c.HTMLOutput != nil && *c.HTMLOutput != "" {
		if ext := strings.ToLower(filepath.Ext(*c.HTMLOutput)); ext != ".html" && ext != ".htm" {
			return fmt.Errorf("html_output must be an .html file, got %q", *c.HTMLOutput)
		}
	}

	if c.ShutdownTimeout != nil && *c.ShutdownTimeout != "" {
		d, err := time.ParseDuration(*c.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout '%s': %w", *c.ShutdownTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("shutdown_timeout must be non-negative, got %s", d)
		}
	}
	return nil
}

// Merge overwrites every field of c that is set in other.
func (c *ExplorerConfig) Merge(other *ExplorerConfig) {
	if other == nil {
		return
	}
	mergeString(&c.Files, other.Files)
	mergeString(&c.Layout, other.Layout)
	mergeString(&c.Output, other.Output)
	mergeString(&c.HTMLOutput, other.HTMLOutput)
	mergeString(&c.PacingQuantity, other.PacingQuantity)
	mergeString(&c.CatalogPath, other.CatalogPath)
	mergeString(&c.Listen, other.Listen)
	mergeString(&c.ShutdownTimeout, other.ShutdownTimeout)
	mergeString(&c.Title, other.Title)
	if other.Width != nil {
		c.Width = ptrFloat64(*other.Width)
	}
	if other.PanelHeight != nil {
		c.PanelHeight = ptrFloat64(*other.PanelHeight)
	}
	if other.DPI != nil {
		c.DPI = ptrInt(*other.DPI)
	}
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = ptrString(*src)
	}
}

// GetFiles returns the record source or "" when unset.
func (c *ExplorerConfig) GetFiles() string {
	if c.Files == nil {
		return ""
	}
	return *c.Files
}

// GetLayout returns the layout mode or the default.
func (c *ExplorerConfig) GetLayout() render.Layout {
	if c.Layout == nil || *c.Layout == "" {
		return render.LayoutMsPoints // default
	}
	return render.Layout(*c.Layout)
}

// GetOutput returns the image output path or the default.
func (c *ExplorerConfig) GetOutput() string {
	if c.Output == nil || *c.Output == "" {
		return "current.png" // default
	}
	return *c.Output
}

// GetHTMLOutput returns the HTML output path or "" when disabled.
func (c *ExplorerConfig) GetHTMLOutput() string {
	if c.HTMLOutput == nil {
		return ""
	}
	return *c.HTMLOutput
}

// GetWidth returns the figure width in inches or the default.
func (c *ExplorerConfig) GetWidth() float64 {
	if c.Width == nil {
		return 10 // default
	}
	return *c.Width
}

// GetPanelHeight returns the per-panel height in inches or the default.
func (c *ExplorerConfig) GetPanelHeight() float64 {
	if c.PanelHeight == nil {
		return 4 // default
	}
	return *c.PanelHeight
}

// GetDPI returns the PNG resolution or the default.
func (c *ExplorerConfig) GetDPI() int {
	if c.DPI == nil {
		return 300 // default
	}
	return *c.DPI
}

// GetPacingQuantity returns the pacing reference quantity or "" when unset.
func (c *ExplorerConfig) GetPacingQuantity() string {
	if c.PacingQuantity == nil {
		return ""
	}
	return *c.PacingQuantity
}

// GetCatalogPath returns the catalog database path or "" when disabled.
func (c *ExplorerConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// GetListen returns the HTTP listen address or "" for one-shot mode.
func (c *ExplorerConfig) GetListen() string {
	if c.Listen == nil {
		return ""
	}
	return *c.Listen
}

// GetShutdownTimeout parses and returns the ShutdownTimeout as a time.Duration.
func (c *ExplorerConfig) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == nil || *c.ShutdownTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetTitle returns the page title or the default.
func (c *ExplorerConfig) GetTitle() string {
	if c.Title == nil || *c.Title == "" {
		return "sweepview" // default
	}
	return *c.Title
}
