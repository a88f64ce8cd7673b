package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweepview/internal/catalog"
	"github.com/banshee-data/sweepview/internal/config"
	"github.com/banshee-data/sweepview/internal/explorer"
	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/paramspace"
	"github.com/banshee-data/sweepview/internal/record"
	"github.com/banshee-data/sweepview/internal/testutil"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func writeRecords(t *testing.T, fs *fsutil.MemoryFileSystem, ks ...int) {
	t.Helper()
	for _, k := range ks {
		rec := testutil.NewRecord(testutil.RecordFixture{
			Params:     record.Params{{Name: "k", Value: k}},
			Quantities: []string{"V"},
			MsPoints:   []string{"p0", "p1"},
			Dimensions: []string{"x"},
			Steps:      2,
			Value:      func(_, ts, m, _ int) float64 { return float64((m+1)*k + ts) },
		})
		testutil.WriteRecord(t, fs, fmt.Sprintf("results/run_%d.json", k), rec)
	}
}

type fixture struct {
	fs      *fsutil.MemoryFileSystem
	session *explorer.Session
	catalog *catalog.Catalog
	handler http.Handler
}

func newFixture(t *testing.T, withCatalog bool) *fixture {
	t.Helper()
	prev := monitoring.SetDiagnostics(io.Discard)
	t.Cleanup(func() { monitoring.SetDiagnostics(prev) })

	fs := fsutil.NewMemoryFileSystem()
	writeRecords(t, fs, 1, 2)

	var cat *catalog.Catalog
	if withCatalog {
		var err error
		cat, err = catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
		require.NoError(t, err)
		t.Cleanup(func() { cat.Close() })
	}

	cfg := &config.ExplorerConfig{
		Files:  strPtr("results"),
		Output: strPtr("out/current.svg"),
		DPI:    intPtr(30),
	}
	session, err := explorer.Setup(context.Background(), cfg, explorer.Deps{FS: fs, Catalog: cat})
	require.NoError(t, err)

	mux, err := NewServer(session, fs, cat).ServeMux()
	require.NoError(t, err)
	return &fixture{fs: fs, session: session, catalog: cat, handler: mux}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, testutil.NewLocalRequest(method, target, body))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "sweepview", resp["service"])
}

func TestPage(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `data-axis="k" value="1" checked`)

	rec = f.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFigure(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/figure?rev=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestChart(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/chart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>sweepview</title>")
}

func TestSpace(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/space", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp spaceResponse
	decode(t, rec, &resp)
	assert.Equal(t, "results", resp.Source)
	assert.Equal(t, "ms_points", resp.Layout)
	assert.Equal(t, 2, resp.Records)
	assert.Equal(t, 4, resp.Series)
	require.Len(t, resp.Axes, 4)
	assert.Equal(t, axisResponse{Header: "k", Values: []string{"1", "2"}, Open: true}, resp.Axes[0])
	assert.Equal(t, []string{"1"}, resp.Selection["k"])
	require.NotNil(t, resp.Last)
	assert.Equal(t, int64(1), resp.Last.Revision)
}

func TestToggle(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/toggle", `{"axis": "k", "value": "2", "checked": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res explorer.UpdateResult
	decode(t, rec, &res)
	assert.Equal(t, int64(2), res.Revision)
	assert.Equal(t, 2, res.Curves)
	assert.Equal(t, []string{"out/current.svg"}, res.Outputs)

	rec = f.do(t, http.MethodPost, "/api/toggle", `{"axis": "k", "value": "9", "checked": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/toggle", `{"axis": "k", "bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/toggle", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestToggle_InsufficientSelection(t *testing.T) {
	f := newFixture(t, false)
	before, err := f.fs.ReadFile("out/current.svg")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/toggle", `{"axis": "Measuring point", "value": "p0", "checked": false}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, explorer.InsufficientSelectionMessage, resp.Error)
	assert.Equal(t, []string{paramspace.HeaderMeasuringPoint}, resp.Missing)

	after, err := f.fs.ReadFile("out/current.svg")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	page := f.do(t, http.MethodGet, "/", "")
	assert.Contains(t, page.Body.String(), explorer.InsufficientSelectionMessage)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, false)

	body := `{"selection": {"k": ["1", "2"], "Output value": ["V"], "Measuring point": ["p0", "p1"], "Dimension": ["x"]}}`
	rec := f.do(t, http.MethodPost, "/api/update", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var res explorer.UpdateResult
	decode(t, rec, &res)
	assert.Equal(t, 4, res.Coords)
	assert.Equal(t, 4, res.Curves)

	rec = f.do(t, http.MethodPost, "/api/update", `{"selection": {"k": ["1"]}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/update", `{"selection": {"zeta": ["1"]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/update", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatches_NoCatalog(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/batches", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatches(t *testing.T) {
	f := newFixture(t, true)
	id := f.session.BatchID()
	require.NotEmpty(t, id)

	rec := f.do(t, http.MethodGet, "/api/batches?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var batches []catalog.Batch
	decode(t, rec, &batches)
	require.Len(t, batches, 1)
	assert.Equal(t, id, batches[0].ID)
	assert.Equal(t, 2, batches[0].Loaded)

	rec = f.do(t, http.MethodGet, "/api/batches?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/batches/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/batches/"+id+"/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var files []catalog.FileEntry
	decode(t, rec, &files)
	require.Len(t, files, 2)
	assert.Equal(t, "results/run_1.json", files[0].Path)

	rec = f.do(t, http.MethodGet, "/api/batches/does-not-exist/files", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesMounted(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/debug/backup", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, false)
	s := NewServer(f.session, f.fs, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln, LoggingMiddleware(f.handler), time.Second) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_ListenError(t *testing.T) {
	f := newFixture(t, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = NewServer(f.session, f.fs, nil).Start(context.Background(), ln.Addr().String(), time.Second)
	assert.Error(t, err)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"422"+colorReset, statusCodeColor(422))
	assert.Equal(t, "100", statusCodeColor(100))
}
