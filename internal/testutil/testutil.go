// Package testutil provides shared test fixtures: synthetic result records,
// writing them into a file system, and requests that pass the loopback-only
// debug handlers.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/record"
)

// ValueFunc gives the value of quantity q at time step ts, measuring point m
// and dimension d.
type ValueFunc func(q, ts, m, d int) float64

// RecordFixture describes a synthetic record.
type RecordFixture struct {
	Params     record.Params
	Quantities []string
	MsPoints   []string
	Dimensions []string
	// Time defaults to 0, 1, ... with Steps entries.
	Time  []float64
	Steps int
	Value ValueFunc
}

// NewRecord builds a record whose arrays are filled from fx.Value.
func NewRecord(fx RecordFixture) *record.Record {
	times := fx.Time
	if times == nil {
		times = make([]float64, fx.Steps)
		for i := range times {
			times[i] = float64(i)
		}
	}
	rec := &record.Record{
		InputParams: fx.Params,
		Time:        times,
		MsPoints:    fx.MsPoints,
		Dimensions:  fx.Dimensions,
	}
	for qi, name := range fx.Quantities {
		a := record.NewArray3(len(times), len(fx.MsPoints), len(fx.Dimensions))
		for ts := range times {
			for m := range fx.MsPoints {
				for d := range fx.Dimensions {
					if fx.Value != nil {
						a.Set(ts, m, d, fx.Value(qi, ts, m, d))
					}
				}
			}
		}
		rec.OutputValues = append(rec.OutputValues, record.Quantity{Name: name, Values: a})
	}
	return rec
}

// WriteRecord encodes rec as JSON and writes it to path in fsys.
func WriteRecord(t testing.TB, fsys fsutil.FileSystem, path string, rec *record.Record) {
	t.Helper()
	var buf bytes.Buffer
	if err := record.Encode(&buf, rec); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// NewLocalRequest creates a test HTTP request that appears to come from
// the loopback interface. An empty body sends none.
func NewLocalRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}
