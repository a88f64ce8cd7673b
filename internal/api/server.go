// Package api serves an explorer session over HTTP: the checkbox page, the
// rendered figure, a JSON API for changing the selection and, when a catalog
// is configured, the history of loaded batches.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/sweepview/internal/catalog"
	"github.com/banshee-data/sweepview/internal/explorer"
	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/httputil"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/paramspace"
	"github.com/banshee-data/sweepview/internal/render"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// defaultBatchLimit is used by /api/batches without a limit parameter.
const defaultBatchLimit = 20

type Server struct {
	session *explorer.Session
	fs      fsutil.FileSystem
	catalog *catalog.Catalog
}

// NewServer wraps session. fs must be the file system the session renders
// into; cat may be nil.
func NewServer(session *explorer.Session, fs fsutil.FileSystem, cat *catalog.Catalog) *Server {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Server{session: session, fs: fs, catalog: cat}
}

// ServeMux builds the route table. Catalog admin routes are mounted under
// /debug/ when a catalog is present.
func (s *Server) ServeMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /figure", s.handleFigure)
	mux.HandleFunc("GET /chart", s.handleChart)
	mux.HandleFunc("GET /api/space", s.handleSpace)
	mux.HandleFunc("POST /api/update", s.handleUpdate)
	mux.HandleFunc("POST /api/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/batches", s.handleBatches)
	mux.HandleFunc("GET /api/batches/{id}", s.handleBatch)
	mux.HandleFunc("GET /api/batches/{id}/files", s.handleBatchFiles)

	if s.catalog != nil {
		if err := s.catalog.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout. A listen failure is returned immediately.
func (s *Server) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	mux, err := s.ServeMux()
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln, LoggingMiddleware(mux), shutdownTimeout)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, h http.Handler, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":    "ok",
		"service":   "sweepview",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.session.RenderPage(&buf); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

// handleFigure serves the current image output. The rev query parameter is
// only a cache buster.
func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	path := s.session.Config().GetOutput()
	data, err := s.fs.ReadFile(path)
	if err != nil {
		httputil.NotFound(w, "no figure has been rendered yet")
		return
	}
	contentType := "image/png"
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		contentType = "image/svg+xml"
	}
	httputil.WriteBytes(w, contentType, data, true)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	fig := s.session.Figure()
	if fig == nil {
		httputil.NotFound(w, "no figure has been rendered yet")
		return
	}
	var buf bytes.Buffer
	if err := render.WriteHTML(&buf, fig, s.session.Config().GetTitle()); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

type axisResponse struct {
	Header string   `json:"header"`
	Values []string `json:"values"`
	Open   bool     `json:"open"`
}

type spaceResponse struct {
	Source    string                 `json:"source"`
	Layout    string                 `json:"layout"`
	Records   int                    `json:"records"`
	Skipped   int                    `json:"skipped"`
	Series    int                    `json:"series"`
	BatchID   string                 `json:"batch_id,omitempty"`
	Axes      []axisResponse         `json:"axes"`
	Selection map[string][]string    `json:"selection"`
	Last      *explorer.UpdateResult `json:"last,omitempty"`
}

func (s *Server) handleSpace(w http.ResponseWriter, r *http.Request) {
	space := s.session.Space()
	batch := s.session.Batch()
	resp := spaceResponse{
		Source:    batch.Source,
		Layout:    string(s.session.Layout()),
		Records:   len(batch.Records),
		Skipped:   len(batch.Skipped),
		Series:    s.session.Index().Len(),
		BatchID:   s.session.BatchID(),
		Axes:      make([]axisResponse, len(space.Axes)),
		Selection: s.session.Selection().Map(),
		Last:      s.session.Last(),
	}
	for i, a := range space.Axes {
		resp.Axes[i] = axisResponse{Header: a.Header, Values: a.Values, Open: a.Open}
	}
	httputil.WriteJSONOK(w, resp)
}

type updateRequest struct {
	Selection map[string][]string `json:"selection"`
}

type toggleRequest struct {
	Axis    string `json:"axis"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sel, err := paramspace.SelectionFromMap(s.session.Space(), req.Selection)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	res, err := s.session.Update(sel)
	s.writeUpdate(w, res, err)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.session.OnChange(req.Axis, req.Value, req.Checked)
	s.writeUpdate(w, res, err)
}

func (s *Server) writeUpdate(w http.ResponseWriter, res *explorer.UpdateResult, err error) {
	var insufficient *paramspace.InsufficientSelectionError
	switch {
	case err == nil:
		httputil.WriteJSONOK(w, res)
	case errors.As(err, &insufficient):
		httputil.Unprocessable(w, explorer.InsufficientSelectionMessage, insufficient.Missing)
	case errors.Is(err, paramspace.ErrUnknownAxis), errors.Is(err, paramspace.ErrUnknownValue),
		errors.Is(err, paramspace.ErrTooManyCombinations):
		httputil.BadRequest(w, err.Error())
	default:
		monitoring.Logf("update failed: %v", err)
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) requireCatalog(w http.ResponseWriter) bool {
	if s.catalog == nil {
		httputil.NotFound(w, "no batch catalog configured")
		return false
	}
	return true
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	limit := defaultBatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	batches, err := s.catalog.Batches(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if batches == nil {
		batches = []catalog.Batch{}
	}
	httputil.WriteJSONOK(w, batches)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	b, err := s.catalog.Batch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	httputil.WriteJSONOK(w, b)
}

func (s *Server) handleBatchFiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	files, err := s.catalog.BatchFiles(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if files == nil {
		files = []catalog.FileEntry{}
	}
	httputil.WriteJSONOK(w, files)
}

func (s *Server) writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrBatchNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}
