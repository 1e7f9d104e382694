package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/epub"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/pipeline"
)

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	Summary     string `json:"summary,omitempty"`
	Error       string `json:"error,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// handleSubmit accepts a multipart form with ordered "pages" files, optional
// "cover", "title", "language", "script", and "skip_summary" fields, and
// answers immediately with the job id.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "parse multipart form: %v", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["pages"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one page image is required")
		return
	}

	req := pipeline.Request{
		Title:       r.FormValue("title"),
		Language:    r.FormValue("language"),
		Script:      ocr.Script(r.FormValue("script")),
		SkipSummary: r.FormValue("skip_summary") == "true",
	}
	for i, fh := range files {
		data, err := readPart(func() (io.ReadCloser, error) { return fh.Open() })
		if err != nil {
			writeError(w, http.StatusBadRequest, "read page %d: %v", i, err)
			return
		}
		req.Pages = append(req.Pages, pipeline.PageInput{Index: i, Data: data, Name: fh.Filename})
	}
	if covers := r.MultipartForm.File["cover"]; len(covers) > 0 {
		data, err := readPart(func() (io.ReadCloser, error) { return covers[0].Open() })
		if err != nil {
			writeError(w, http.StatusBadRequest, "read cover: %v", err)
			return
		}
		req.Cover = data
	}

	// The job must outlive this request; it runs on the server's lifetime,
	// not the upload's.
	id, err := s.orch.Submit(s.baseContext(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.log.Info("job submitted",
		observability.String("job", id),
		observability.Int("pages", len(req.Pages)))
	writeJSON(w, http.StatusAccepted, submitResponse{ID: id})
}

func readPart(open func() (io.ReadCloser, error)) ([]byte, error) {
	f, err := open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.registry.Get(id)
	if errors.Is(err, pipeline.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "unknown job %s", id)
		return
	}
	resp := statusResponse{
		ID:       job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Message:  job.Message,
		Summary:  job.Summary,
		Error:    job.Error,
	}
	if job.Status == pipeline.StatusCompleted {
		resp.DownloadURL = fmt.Sprintf("/jobs/%s/download", job.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.registry.Get(id)
	if errors.Is(err, pipeline.ErrUnknownJob) {
		writeError(w, http.StatusNotFound, "unknown job %s", id)
		return
	}
	if job.Status != pipeline.StatusCompleted {
		writeError(w, http.StatusConflict, "job %s is %s, artifact not ready", id, job.Status)
		return
	}
	f, err := os.Open(job.ArtifactPath)
	if err != nil {
		s.log.Error("artifact unreadable",
			observability.String("job", id),
			observability.Error("err", err))
		writeError(w, http.StatusInternalServerError, "artifact unavailable")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", epub.MimeType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.ArtifactPath)))
	_, _ = io.Copy(w, f)
}

// handlePreview processes one page synchronously, creating no job.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "parse multipart form: %v", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "a page image is required")
		return
	}
	data, err := readPart(func() (io.ReadCloser, error) { return files[0].Open() })
	if err != nil {
		writeError(w, http.StatusBadRequest, "read page: %v", err)
		return
	}

	preview, err := s.orch.ProcessPage(r.Context(), data, ocr.Script(r.FormValue("script")))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
