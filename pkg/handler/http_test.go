package handler

import (
	"context"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bitshelter/filecatalog/catalog"
	"github.com/bitshelter/filecatalog/pkg/browse"
	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/pkg/task"
	"github.com/bitshelter/filecatalog/responses"
)

type stubExecutor struct {
	result task.Result
	err    error
}

func (s *stubExecutor) Execute(_ context.Context, _ *task.Descriptor) (task.Result, error) {
	return s.result, s.err
}

func newTestHandler(t *testing.T, stub *stubExecutor) http.Handler {
	t.Helper()
	l := zaptest.NewLogger(t)

	data, err := stdjson.Marshal([]*registry.Backup{{ID: "b1", TargetURL: "mem://"}})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "backups.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	reg := registry.New(l, path)
	require.NoError(t, reg.Load())

	queue := task.NewQueue(l, stub)
	go queue.Run(t.Context()) //nolint:errcheck

	return NewHTTP(l, browse.New(l, reg, queue))
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeReplyInto(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope map[string]stdjson.RawMessage
	require.NoError(t, stdjson.Unmarshal(w.Body.Bytes(), &envelope))
	require.Contains(t, envelope, "reply")
	require.NoError(t, stdjson.Unmarshal(envelope["reply"], v))
}

func TestServeHTTPListFilesets(t *testing.T) {
	stub := &stubExecutor{result: &task.FilesetsResult{
		Filesets: []catalog.Fileset{{
			Version:   3,
			Time:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			FileCount: 7,
			FileSizes: 42,
		}},
		PageSize:   1000,
		TotalCount: 1,
	}}
	h := newTestHandler(t, stub)

	w := postJSON(t, h, "/filecatalog/listFilesets", `{"backupId":"b1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var page responses.Page[catalog.Fileset]
	decodeReplyInto(t, w, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].Version)
	assert.Equal(t, int64(1), page.TotalCount)
	assert.Equal(t, 1000, page.PageSize)
}

func TestServeHTTPListFolderContent(t *testing.T) {
	stub := &stubExecutor{result: &task.FolderResult{
		Entries:    []catalog.Entry{{Path: "/home/a.txt", Size: 10}},
		PageSize:   1000,
		TotalCount: 1,
	}}
	h := newTestHandler(t, stub)

	w := postJSON(t, h, "/filecatalog/listFolderContent", `{"backupId":"b1","paths":["/home"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var page responses.Page[catalog.Entry]
	decodeReplyInto(t, w, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "/home/a.txt", page.Items[0].Path)
}

func TestServeHTTPMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &stubExecutor{})

	r := httptest.NewRequest(http.MethodGet, "/filecatalog/listFilesets", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServeHTTPUnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubExecutor{})

	w := postJSON(t, h, "/filecatalog/bogus", `{}`)

	require.Equal(t, http.StatusOK, w.Code)
	var responseErr responses.Error
	decodeReplyInto(t, w, &responseErr)
	assert.Equal(t, responses.CodeNotFound, responseErr.Code)
}

func TestServeHTTPBadJSON(t *testing.T) {
	h := newTestHandler(t, &stubExecutor{})

	w := postJSON(t, h, "/filecatalog/listFilesets", `{"backupId":`)

	require.Equal(t, http.StatusOK, w.Code)
	var responseErr responses.Error
	decodeReplyInto(t, w, &responseErr)
	assert.Equal(t, responses.CodeServerError, responseErr.Code)
}

func TestServeHTTPUnknownBackupKeepsCode(t *testing.T) {
	h := newTestHandler(t, &stubExecutor{})

	w := postJSON(t, h, "/filecatalog/listFilesets", `{"backupId":"nope"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var responseErr responses.Error
	decodeReplyInto(t, w, &responseErr)
	assert.Equal(t, responses.CodeNotFound, responseErr.Code)
	assert.Equal(t, http.StatusNotFound, responseErr.Status)
}

func TestServeHTTPBasePath(t *testing.T) {
	l := zaptest.NewLogger(t)
	stub := &stubExecutor{result: &task.FilesetsResult{PageSize: 1000}}

	data, err := stdjson.Marshal([]*registry.Backup{{ID: "b1", TargetURL: "mem://"}})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "backups.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	reg := registry.New(l, path)
	require.NoError(t, reg.Load())

	queue := task.NewQueue(l, stub)
	go queue.Run(t.Context()) //nolint:errcheck

	h := NewHTTP(l, browse.New(l, reg, queue), WithBasePath("/catalog"))

	w := postJSON(t, h, "/catalog/listFilesets", `{"backupId":"b1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var page responses.Page[catalog.Fileset]
	decodeReplyInto(t, w, &page)
	assert.Equal(t, int64(0), page.TotalCount)
}

func TestExtractRouteAndJSONLength(t *testing.T) {
	route, length, err := extractRouteAndJSONLength("listFilesets:42")
	require.NoError(t, err)
	assert.Equal(t, RouteListFilesets, route)
	assert.Equal(t, 42, length)

	_, _, err = extractRouteAndJSONLength("listFilesets")
	require.Error(t, err)

	_, _, err = extractRouteAndJSONLength("listFilesets:abc")
	require.Error(t, err)
}
