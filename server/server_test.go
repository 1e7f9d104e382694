package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/correct"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/epub"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/pipeline"
)

type echoEngine struct{}

func (echoEngine) Name() string { return "echo" }

func (echoEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{InputID: in.ID, PlainText: fmt.Sprintf("text of page %d", in.PageIndex)}, nil
}

type echoCorrector struct{}

func (echoCorrector) Name() string { return "echo" }

func (echoCorrector) Correct(_ context.Context, text string, _ correct.Style) (string, error) {
	return "clean " + text, nil
}

func newTestServer(t *testing.T) (*Server, *pipeline.Registry) {
	t.Helper()
	reg := pipeline.NewRegistry()
	promReg := prometheus.NewRegistry()
	orch := pipeline.NewOrchestrator(reg,
		ocr.NewAdapter(echoEngine{}, nil),
		correct.NewAdapter(echoCorrector{}, nil),
		nil,
		observability.NewMetrics(promReg),
		nil,
		pipeline.Options{Workers: 2, WorkDir: t.TempDir()})
	return New(orch, reg, nil, Options{Gatherer: promReg}), reg
}

func pagePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, parts := range files {
		for i, data := range parts {
			fw, err := mw.CreateFormFile(field, fmt.Sprintf("%s-%d.png", field, i))
			require.NoError(t, err)
			_, err = fw.Write(data)
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func submitJob(t *testing.T, h http.Handler, fields map[string]string, pages int) string {
	t.Helper()
	files := map[string][][]byte{}
	for i := 0; i < pages; i++ {
		files["pages"] = append(files["pages"], pagePNG(t))
	}
	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func pollUntilComplete(t *testing.T, h http.Handler, id string) map[string]any {
	t.Helper()
	var last map[string]any
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/jobs/"+id, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}
		last = map[string]any{}
		if err := json.Unmarshal(rec.Body.Bytes(), &last); err != nil {
			return false
		}
		status := last["status"].(string)
		return status == "completed" || status == "failed"
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func TestSubmitPollDownloadRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	id := submitJob(t, h, map[string]string{
		"title":        "Sample",
		"language":     "ur",
		"skip_summary": "true",
	}, 2)

	status := pollUntilComplete(t, h, id)
	require.Equal(t, "completed", status["status"], "job error: %v", status["error"])
	assert.Equal(t, float64(100), status["progress"])
	require.Contains(t, status, "download_url")

	req := httptest.NewRequest(http.MethodGet, status["download_url"].(string), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, epub.MimeType, rec.Header().Get("Content-Type"))

	// The streamed artifact starts with a zip local header and embeds the
	// uncompressed mimetype right after it.
	payload, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("PK\x03\x04")))
	assert.Contains(t, string(payload[:200]), epub.MimeType)
}

func TestSubmitWithoutPages(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"title": "x"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusUnknownJob(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/jobs/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadBeforeCompletion(t *testing.T) {
	srv, reg := newTestServer(t)
	id := reg.Create()

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/download", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"script": "latin"},
		map[string][][]byte{"file": {pagePNG(t)}})

	req := httptest.NewRequest(http.MethodPost, "/process-page", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview struct {
		Raw   string `json:"raw"`
		Clean string `json:"clean"`
		HTML  string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "text of page 0", preview.Raw)
	assert.Equal(t, "clean text of page 0", preview.Clean)
	assert.Contains(t, preview.HTML, "clean text of page 0")
}

func TestPreviewRejectsCorruptImage(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartBody(t, nil, map[string][][]byte{"file": {[]byte("garbage")}})

	req := httptest.NewRequest(http.MethodPost, "/process-page", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	submitJob(t, h, map[string]string{"skip_summary": "true"}, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scan2ebook_jobs_submitted_total")
}
