package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
)

// Format identifies a supported on-disk encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatJSONGz Format = "json.gz"
	FormatYAML   Format = "yaml"
)

// maxFileSize bounds a single decoded result file.
const maxFileSize = 512 * 1024 * 1024

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported record format")

// FormatFor picks the decoder for path from its extension.
func FormatFor(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json.gz"):
		return FormatJSONGz, nil
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// Decode reads one record in the given format from r.
func Decode(r io.Reader, format Format) (*Record, error) {
	rec := new(Record)
	switch format {
	case FormatJSONGz:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return Decode(zr, FormatJSON)
	case FormatJSON:
		dec := json.NewDecoder(io.LimitReader(r, maxFileSize))
		if err := dec.Decode(rec); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		data, err := io.ReadAll(io.LimitReader(r, maxFileSize))
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// DecodeFile opens and decodes path through fsys.
func DecodeFile(fsys fsutil.FileSystem, path string) (*Record, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Decode(f, format)
	if err != nil {
		return nil, err
	}
	rec.Source = path
	return rec, nil
}

// Encode writes rec as indented JSON.
func Encode(w io.Writer, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// Skipped describes a file that was matched but not loaded.
type Skipped struct {
	Path string
	Err  error
}

// Batch is the outcome of loading one source.
type Batch struct {
	Source  string
	Matched int
	Records []*Record
	Skipped []Skipped
}

// Paths returns the source paths of the loaded records.
func (b *Batch) Paths() []string {
	paths := make([]string, len(b.Records))
	for i, rec := range b.Records {
		paths[i] = rec.Source
	}
	return paths
}

// Load reads every result file named by source: a glob pattern, a single
// file, or a directory (all supported files directly inside it). Files are
// read in sorted order. Unreadable files are reported on the diagnostics
// writer and skipped; only a malformed pattern or empty source is an error.
func Load(fsys fsutil.FileSystem, source string) (*Batch, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("no record source given")
	}

	paths, err := resolve(fsys, source)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Source: source, Matched: len(paths)}
	for _, path := range paths {
		rec, err := DecodeFile(fsys, path)
		if err != nil {
			monitoring.Diagf("Error: Could not read file: %s (%v)", path, err)
			batch.Skipped = append(batch.Skipped, Skipped{Path: path, Err: err})
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	monitoring.Logf("loaded %d of %d result files from %s", len(batch.Records), batch.Matched, source)
	return batch, nil
}

// resolve expands source into the sorted list of candidate files.
func resolve(fsys fsutil.FileSystem, source string) ([]string, error) {
	if info, err := fsys.Stat(source); err == nil && info.IsDir() {
		all, err := fsys.Glob(filepath.Join(source, "*"))
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, p := range all {
			if _, err := FormatFor(p); err != nil {
				continue
			}
			if isDir(fsys, p) {
				continue
			}
			paths = append(paths, p)
		}
		return paths, nil
	}

	matches, err := fsys.Glob(source)
	if err != nil {
		return nil, fmt.Errorf("bad file pattern %q: %w", source, err)
	}
	var paths []string
	for _, p := range matches {
		if isDir(fsys, p) {
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func isDir(fsys fsutil.FileSystem, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.IsDir()
}
