package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/paramspace"
	"github.com/banshee-data/sweepview/internal/record"
	"github.com/banshee-data/sweepview/internal/testutil"
	"github.com/banshee-data/sweepview/internal/version"
)

func TestParseSelection(t *testing.T) {
	got, err := parseSelection("k=1, 2; Measuring point = p0 ;Dimension=")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"k":               {"1", "2"},
		"Measuring point": {"p0"},
		"Dimension":       {},
	}, got)

	for _, bad := range []string{"", ";", "k", "=1", "k=1;k=2"} {
		_, err := parseSelection(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFlags_OnlySetFlagsOverride(t *testing.T) {
	opts, err := parseFlags([]string{"-files", "runs/*.json", "-dpi", "120", "-select", "k=1"}, io.Discard)
	require.NoError(t, err)

	o := opts.overrides
	require.NotNil(t, o.Files)
	assert.Equal(t, "runs/*.json", *o.Files)
	require.NotNil(t, o.DPI)
	assert.Equal(t, 120, *o.DPI)
	assert.Nil(t, o.Layout)
	assert.Nil(t, o.Width)
	assert.Nil(t, o.Listen)
	assert.Equal(t, map[string][]string{"k": {"1"}}, opts.selection)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"-select", "nope"}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-no-such-flag"}, io.Discard)
	assert.Error(t, err)
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out))
	assert.Equal(t, version.String()+"\n", out.String())
}

func TestRun_NoFiles(t *testing.T) {
	err := run(context.Background(), []string{"-out", "x.png"}, io.Discard)
	assert.ErrorContains(t, err, "no result files")
}

func writeRun(t *testing.T, dir string, k int) {
	t.Helper()
	rec := testutil.NewRecord(testutil.RecordFixture{
		Params:     record.Params{{Name: "k", Value: k}},
		Quantities: []string{"V"},
		MsPoints:   []string{"p0"},
		Dimensions: []string{"x"},
		Steps:      2,
		Value:      func(_, ts, _, _ int) float64 { return float64(k + ts) },
	})
	testutil.WriteRecord(t, fsutil.OSFileSystem{}, filepath.Join(dir, fmt.Sprintf("run_%d.json", k)), rec)
}

func TestRun_OneShot(t *testing.T) {
	prev := monitoring.SetDiagnostics(io.Discard)
	defer monitoring.SetDiagnostics(prev)

	dir := t.TempDir()
	writeRun(t, dir, 1)
	writeRun(t, dir, 2)
	outPath := filepath.Join(dir, "out", "figure.svg")
	catPath := filepath.Join(dir, "catalog.db")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-files", filepath.Join(dir, "*.json"),
		"-out", outPath,
		"-catalog", catPath,
		"-select", "k=1,2",
	}, &out)
	require.NoError(t, err)

	assert.FileExists(t, outPath)
	assert.FileExists(t, catPath)
	assert.Contains(t, out.String(), "k: 1, 2\n")
	assert.Contains(t, out.String(), paramspace.HeaderMeasuringPoint+": p0\n")
	assert.Contains(t, out.String(), "2 curves in 1 panels written to "+outPath)
}

func TestRun_InsufficientSelection(t *testing.T) {
	prev := monitoring.SetDiagnostics(io.Discard)
	defer monitoring.SetDiagnostics(prev)

	dir := t.TempDir()
	writeRun(t, dir, 1)

	err := run(context.Background(), []string{
		"-files", dir,
		"-out", filepath.Join(dir, "figure.svg"),
		"-select", "k=",
	}, io.Discard)
	assert.ErrorIs(t, err, paramspace.ErrInsufficientSelection)
}
