// Command sweepview loads a batch of simulation result files and plots the
// selected slices of their parameter space. Without -listen it renders the
// selection once and exits; with -listen it serves the checkbox explorer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/banshee-data/sweepview/internal/api"
	"github.com/banshee-data/sweepview/internal/catalog"
	"github.com/banshee-data/sweepview/internal/config"
	"github.com/banshee-data/sweepview/internal/explorer"
	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/render"
	"github.com/banshee-data/sweepview/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("sweepview: %v", err)
	}
}

// options are the parsed command line.
type options struct {
	configPath  string
	showVersion bool
	selection   map[string][]string
	overrides   *config.ExplorerConfig
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sweepview", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to a JSON explorer config")
	files := fs.String("files", "", "Result files: a glob pattern, a file, or a directory")
	layout := fs.String("layout", "", "Plot layout: "+strings.Join(layoutNames(), " or "))
	out := fs.String("out", "", "Image output path (.png or .svg)")
	htmlOut := fs.String("html-out", "", "Interactive HTML chart output path")
	width := fs.Float64("width", 0, "Figure width in inches")
	height := fs.Float64("height", 0, "Height of one panel in inches")
	dpi := fs.Int("dpi", 0, "PNG resolution")
	pacing := fs.String("pacing", "", "Quantity drawn as the pacing reference in avg_std_pacing")
	catalogPath := fs.String("catalog", "", "SQLite catalog of loaded batches")
	listen := fs.String("listen", "", "Serve the explorer on this address instead of rendering once")
	selectFlag := fs.String("select", "", `Initial selection, e.g. "k=1,2;Measuring point=p0"`)
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := &options{
		configPath:  *configPath,
		showVersion: *showVersion,
		overrides:   &config.ExplorerConfig{},
	}

	// Only flags given on the command line override the config file.
	var err error
	fs.Visit(func(f *flag.Flag) {
		o := opts.overrides
		switch f.Name {
		case "files":
			o.Files = files
		case "layout":
			o.Layout = layout
		case "out":
			o.Output = out
		case "html-out":
			o.HTMLOutput = htmlOut
		case "width":
			o.Width = width
		case "height":
			o.PanelHeight = height
		case "dpi":
			o.DPI = dpi
		case "pacing":
			o.PacingQuantity = pacing
		case "catalog":
			o.CatalogPath = catalogPath
		case "listen":
			o.Listen = listen
		case "select":
			opts.selection, err = parseSelection(*selectFlag)
		}
	})
	if err != nil {
		return nil, err
	}
	return opts, nil
}

func layoutNames() []string {
	var names []string
	for _, l := range render.Layouts() {
		names = append(names, string(l))
	}
	return names
}

// parseSelection reads "axis=v1,v2;axis2=v3". Axis names may contain spaces.
func parseSelection(s string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, group := range strings.Split(s, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		header, values, ok := strings.Cut(group, "=")
		header = strings.TrimSpace(header)
		if !ok || header == "" {
			return nil, fmt.Errorf("invalid selection %q: want axis=value[,value]", group)
		}
		if _, dup := out[header]; dup {
			return nil, fmt.Errorf("axis %q selected twice", header)
		}
		vs := []string{}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				vs = append(vs, v)
			}
		}
		out[header] = vs
	}
	if len(out) == 0 {
		return nil, errors.New("empty selection")
	}
	return out, nil
}

func loadConfig(opts *options) (*config.ExplorerConfig, error) {
	cfg := &config.ExplorerConfig{}
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultExplorerConfigPath); err == nil {
			path = config.DefaultExplorerConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadExplorerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Merge(opts.overrides)
	if cfg.GetFiles() == "" {
		return nil, errors.New("no result files given; use -files or set \"files\" in the config")
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	fsys := fsutil.OSFileSystem{}
	// Axes missing from -select keep their default value.
	deps := explorer.Deps{FS: fsys, InitialSelection: opts.selection}
	var cat *catalog.Catalog
	if path := cfg.GetCatalogPath(); path != "" {
		cat, err = catalog.Open(path)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer cat.Close()
		deps.Catalog = cat
	}

	session, err := explorer.Setup(ctx, cfg, deps)
	if err != nil {
		return err
	}

	report(stdout, session)

	addr := cfg.GetListen()
	if addr == "" {
		return nil
	}
	return api.NewServer(session, fsys, cat).Start(ctx, addr, cfg.GetShutdownTimeout())
}

func report(w io.Writer, s *explorer.Session) {
	last := s.Last()
	if last == nil {
		return
	}
	headers := make([]string, 0, len(last.Selection))
	for h := range last.Selection {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	for _, h := range headers {
		fmt.Fprintf(w, "%s: %s\n", h, strings.Join(last.Selection[h], ", "))
	}
	fmt.Fprintf(w, "%d curves in %d panels written to %s\n", last.Curves, last.Panels, strings.Join(last.Outputs, ", "))
}
