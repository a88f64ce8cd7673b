package catalog

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweepview/internal/testutil"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleLoad(source string, at time.Time) BatchLoad {
	return BatchLoad{
		Source: source,
		Layout: "ms_points",
		Axes: []AxisSummary{
			{Header: "k", Values: []string{"1", "2"}},
			{Header: "Output value", Values: []string{"V"}},
		},
		Series: 2,
		Files: []FileEntry{
			{Path: "r/a.json", Status: StatusLoaded},
			{Path: "r/b.json", Status: StatusSkipped, Error: "unexpected EOF"},
			{Path: "r/c.json", Status: StatusLoaded},
		},
		LoadedAt: at,
	}
}

func TestOpen_MigratesSchema(t *testing.T) {
	c := openTestCatalog(t)

	version, dirty, err := c.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Reopening an up-to-date catalog is a no-op.
	again, err := Open(c.Path())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpen_Pragmas(t *testing.T) {
	c := openTestCatalog(t)

	var journalMode string
	require.NoError(t, c.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout, foreignKeys int
	require.NoError(t, c.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
	require.NoError(t, c.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrateDown(t *testing.T) {
	c := openTestCatalog(t)
	require.NoError(t, c.MigrateDown())

	var n int
	require.NoError(t, c.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='batches'`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, c.MigrateUp())
	require.NoError(t, c.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='batches'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRecordBatch(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := c.RecordBatch(ctx, sampleLoad("r/*.json", at))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	b, err := c.Batch(ctx, id)
	require.NoError(t, err)
	want := Batch{
		ID:      id,
		Source:  "r/*.json",
		Layout:  "ms_points",
		Loaded:  2,
		Skipped: 1,
		Series:  2,
		Axes: []AxisSummary{
			{Header: "k", Values: []string{"1", "2"}},
			{Header: "Output value", Values: []string{"V"}},
		},
		LoadedAt: at,
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("batch mismatch (-want +got):\n%s", diff)
	}

	files, err := c.BatchFiles(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleLoad("", at).Files, files)
}

func TestRecordBatch_InvalidStatus(t *testing.T) {
	c := openTestCatalog(t)
	load := sampleLoad("r", time.Now())
	load.Files[0].Status = "maybe"

	_, err := c.RecordBatch(context.Background(), load)
	require.Error(t, err)

	batches, err := c.Batches(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestBatches_NewestFirst(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := c.RecordBatch(ctx, sampleLoad("batch", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := c.Batches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	limited, err := c.Batches(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestBatchFiles_Unknown(t *testing.T) {
	c := openTestCatalog(t)
	_, err := c.BatchFiles(context.Background(), "no-such-batch")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestAdminRoutes(t *testing.T) {
	c := openTestCatalog(t)
	_, err := c.RecordBatch(context.Background(), sampleLoad("r", time.Now()))
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, c.AttachAdminRoutes(mux))

	req := testutil.NewLocalRequest(http.MethodGet, "/debug/backup", "")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))

	gz, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("SQLite format 3")))
}
