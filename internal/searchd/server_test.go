package searchd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/taller/internal/catalog"
	"github.com/runger/taller/internal/typeahead"
)

func testSource() MemorySource {
	return MemorySource{
		catalog.KindTechnician: {
			{"id": float64(101), "nombre": "Juan Pérez"},
			{"id": float64(102), "nombre": "Ana Gómez"},
			{"id": float64(103), "nombre": "Carlos Ruiz"},
		},
	}
}

func newTestServer(t *testing.T, src Source, unwrap bool) *httptest.Server {
	t.Helper()
	s := New(Options{Source: src, UnwrapSingle: unwrap, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestSearch_Array(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testSource(), true)
	resp, body := post(t, srv.URL+"/search/technician", `{"query":"an"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Juan Pérez", got[0]["nombre"])
	assert.Equal(t, "Ana Gómez", got[1]["nombre"])
}

func TestSearch_UnwrapSingle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testSource(), true)
	_, body := post(t, srv.URL+"/search/technician", `{"query":"carlos"}`)
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &obj))
	assert.Equal(t, float64(103), obj["id"])

	srv = newTestServer(t, testSource(), false)
	_, body = post(t, srv.URL+"/search/technician", `{"query":"carlos"}`)
	var arr []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &arr))
	assert.Len(t, arr, 1)
}

func TestSearch_NoMatches(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testSource(), true)
	_, body := post(t, srv.URL+"/search/technician", `{"query":"zzz"}`)
	assert.Equal(t, "[]\n", body)

	// A known kind with no data is empty, not an error.
	resp, body := post(t, srv.URL+"/search/product", `{"query":"a"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]\n", body)
}

func TestSearch_BadRequests(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testSource(), true)

	resp, _ := post(t, srv.URL+"/search/garage", `{"query":"a"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/search/technician", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/search/technician", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/search/technician")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type failingSource struct{}

func (failingSource) Search(context.Context, string, string) ([]typeahead.Candidate, error) {
	return nil, errors.New("disk I/O error")
}

type panickingSource struct{}

func (panickingSource) Search(context.Context, string, string) ([]typeahead.Candidate, error) {
	panic("boom")
}

func TestSearch_SourceFailures(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, failingSource{}, true)
	resp, _ := post(t, srv.URL+"/search/client", `{"query":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	srv = newTestServer(t, panickingSource{}, true)
	resp, _ = post(t, srv.URL+"/search/client", `{"query":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testSource(), true)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestSearch_CatalogSourceWithRemoteProvider(t *testing.T) {
	t.Parallel()

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.Replace(context.Background(), catalog.KindProduct, []typeahead.Candidate{
		{"id": float64(401), "nombre": "Aceite 5W30", "precio_venta": 45.5},
		{"id": float64(402), "nombre": "Filtro de Aire", "precio_venta": 15.2},
	})
	require.NoError(t, err)

	srv := newTestServer(t, store, true)
	var logs bytes.Buffer
	p := typeahead.NewRemoteProvider(srv.URL+"/search/product", nil, slog.New(slog.NewTextHandler(&logs, nil)))

	got, err := p.Search(context.Background(), "filtro")
	require.NoError(t, err)
	require.Len(t, got, 1, "single match arrives as an object and is wrapped")
	assert.Equal(t, "402", got[0].Text("id"))

	got, err = p.Search(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = p.Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, logs.String())
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	s := New(Options{Source: testSource(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	s := New(Options{Source: testSource(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	err := s.Run(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
