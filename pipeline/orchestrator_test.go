package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/correct"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
)

// stubEngine recognizes by page index so tests can attribute text to pages.
type stubEngine struct {
	mu    sync.Mutex
	texts map[int]string
	fail  map[int]bool
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[in.PageIndex] {
		return ocr.Result{}, errors.New("engine failure")
	}
	text, ok := s.texts[in.PageIndex]
	if !ok {
		text = fmt.Sprintf("raw text of page %d", in.PageIndex)
	}
	return ocr.Result{InputID: in.ID, PlainText: text}, nil
}

// stubCorrector polishes deterministically and can fail for chosen inputs or
// stall to shuffle completion order.
type stubCorrector struct {
	mu       sync.Mutex
	failFor  map[string]bool
	delayFor map[string]time.Duration
	calls    int
	err      error
}

func (s *stubCorrector) Name() string { return "stub" }

func (s *stubCorrector) Correct(_ context.Context, text string, _ correct.Style) (string, error) {
	s.mu.Lock()
	s.calls++
	fail := s.failFor[text] || s.err != nil
	delay := s.delayFor[text]
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return "", errors.New("correction failure")
	}
	return "polished: " + text, nil
}

type stubSummarizer struct {
	out string
	err error
}

func (s stubSummarizer) Summarize(context.Context, string, correct.Style) (string, error) {
	return s.out, s.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func pageInputs(t *testing.T, n int) []PageInput {
	t.Helper()
	data := pngBytes(t)
	pages := make([]PageInput, n)
	for i := range pages {
		pages[i] = PageInput{Index: i, Data: data, Name: fmt.Sprintf("scan-%d.png", i)}
	}
	return pages
}

func newTestOrchestrator(t *testing.T, eng ocr.Engine, cor correct.Corrector, sum Summarizer) (*Orchestrator, *Registry) {
	t.Helper()
	reg := NewRegistry()
	o := NewOrchestrator(reg,
		ocr.NewAdapter(eng, nil),
		correct.NewAdapter(cor, nil),
		sum, nil, nil,
		Options{Workers: 2, WorkDir: t.TempDir()})
	return o, reg
}

func waitTerminal(t *testing.T, reg *Registry, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, err := reg.Get(id)
		if err != nil {
			return false
		}
		job = j
		return j.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func openArtifact(t *testing.T, path string) *zip.ReadCloser {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { zr.Close() })
	return zr
}

func entryContent(t *testing.T, zr *zip.ReadCloser, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("entry %s not found in artifact", name)
	return ""
}

func TestSubmitRejectsEmptyAndUnknownScript(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, nil)

	_, err := o.Submit(context.Background(), Request{})
	assert.Error(t, err)

	_, err = o.Submit(context.Background(), Request{
		Pages:  pageInputs(t, 1),
		Script: ocr.Script("klingon"),
	})
	assert.Error(t, err)
}

func TestHappyPathThreePages(t *testing.T) {
	o, reg := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, nil)

	id, err := o.Submit(context.Background(), Request{
		Pages:       pageInputs(t, 3),
		Title:       "Sample",
		Language:    "ur",
		SkipSummary: true,
	})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status, "error: %s", job.Error)
	assert.Equal(t, 100, job.Progress)
	assert.NotEmpty(t, job.ArtifactPath)

	zr := openArtifact(t, job.ArtifactPath)
	opf := entryContent(t, zr, "OEBPS/content.opf")
	assert.Contains(t, opf, "<dc:title>Sample</dc:title>")

	// Exactly three content entries in spine order p1, p2, p3.
	spine := opf[strings.Index(opf, "<spine"):]
	last := -1
	for i := 1; i <= 3; i++ {
		pos := strings.Index(spine, fmt.Sprintf("idref=\"page_%d\"", i))
		require.GreaterOrEqual(t, pos, 0)
		assert.Greater(t, pos, last)
		last = pos
	}
	assert.NotContains(t, opf, "page_4")

	for i := 0; i < 3; i++ {
		content := entryContent(t, zr, fmt.Sprintf("OEBPS/page_%d.xhtml", i+1))
		assert.Contains(t, content, fmt.Sprintf("polished: raw text of page %d", i))
	}
}

func TestCorruptPageDegradesButJobCompletes(t *testing.T) {
	o, reg := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, nil)

	id, err := o.Submit(context.Background(), Request{
		Pages:       []PageInput{{Index: 0, Data: []byte("not an image"), Name: "bad.png"}},
		SkipSummary: true,
	})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status, "error: %s", job.Error)

	zr := openArtifact(t, job.ArtifactPath)
	content := entryContent(t, zr, "OEBPS/page_1.xhtml")
	assert.Contains(t, content, "<p></p>")
}

func TestCorrectionFailureFallsBackPerPage(t *testing.T) {
	eng := &stubEngine{texts: map[int]string{0: "zero raw", 1: "one raw"}}
	cor := &stubCorrector{failFor: map[string]bool{"zero raw": true}}
	o, reg := newTestOrchestrator(t, eng, cor, nil)

	id, err := o.Submit(context.Background(), Request{
		Pages:       pageInputs(t, 2),
		SkipSummary: true,
	})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status, "error: %s", job.Error)

	zr := openArtifact(t, job.ArtifactPath)
	p1 := entryContent(t, zr, "OEBPS/page_1.xhtml")
	p2 := entryContent(t, zr, "OEBPS/page_2.xhtml")
	assert.Contains(t, p1, "zero raw")
	assert.NotContains(t, p1, "polished:")
	assert.Contains(t, p2, "polished: one raw")
}

func TestOutputOrderUnaffectedByCompletionOrder(t *testing.T) {
	const n = 6
	eng := &stubEngine{texts: map[int]string{}}
	cor := &stubCorrector{delayFor: map[string]time.Duration{}}
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("text-%d", i)
		eng.texts[i] = text
		// Later pages finish first.
		cor.delayFor[text] = time.Duration(n-i) * 10 * time.Millisecond
	}
	o, reg := newTestOrchestrator(t, eng, cor, nil)

	id, err := o.Submit(context.Background(), Request{
		Pages:       pageInputs(t, n),
		SkipSummary: true,
	})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status, "error: %s", job.Error)

	zr := openArtifact(t, job.ArtifactPath)
	for i := 0; i < n; i++ {
		content := entryContent(t, zr, fmt.Sprintf("OEBPS/page_%d.xhtml", i+1))
		assert.Contains(t, content, fmt.Sprintf("polished: text-%d", i))
	}
}

func TestProgressMonotonicAcrossPolls(t *testing.T) {
	eng := &stubEngine{}
	cor := &stubCorrector{delayFor: map[string]time.Duration{}}
	o, reg := newTestOrchestrator(t, eng, cor, nil)

	id, err := o.Submit(context.Background(), Request{
		Pages:       pageInputs(t, 4),
		SkipSummary: true,
	})
	require.NoError(t, err)

	prev := -1
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := reg.Get(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, job.Progress, prev, "progress regressed")
		prev = job.Progress
		if job.Status.Terminal() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	job, err := reg.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
}

func TestAssemblyFailureFailsJobWithDiagnostic(t *testing.T) {
	reg := NewRegistry()
	o := NewOrchestrator(reg,
		ocr.NewAdapter(&stubEngine{}, nil),
		correct.NewAdapter(&stubCorrector{}, nil),
		nil, nil, nil,
		Options{WorkDir: filepath.Join(t.TempDir(), "does", "not", "exist")})

	id, err := o.Submit(context.Background(), Request{
		Pages:       pageInputs(t, 1),
		SkipSummary: true,
	})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error, "failed job must carry a diagnostic")
}

func TestSummaryGenerated(t *testing.T) {
	o, reg := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, stubSummarizer{out: "a short synopsis"})

	id, err := o.Submit(context.Background(), Request{Pages: pageInputs(t, 1)})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status, "error: %s", job.Error)
	assert.Equal(t, "a short synopsis", job.Summary)
}

func TestSummarySkipped(t *testing.T) {
	o, reg := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, stubSummarizer{out: "unused"})

	id, err := o.Submit(context.Background(), Request{Pages: pageInputs(t, 1), SkipSummary: true})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status)
	assert.Empty(t, job.Summary)
}

func TestSummaryFailureYieldsPlaceholder(t *testing.T) {
	o, reg := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, stubSummarizer{err: errors.New("offline")})

	id, err := o.Submit(context.Background(), Request{Pages: pageInputs(t, 1)})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "Summary unavailable.", job.Summary)
}

func TestCancelledContextFailsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, reg := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, nil)
	id, err := o.Submit(ctx, Request{Pages: pageInputs(t, 2), SkipSummary: true})
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.Error, "canceled")
}

func TestProcessPagePreview(t *testing.T) {
	eng := &stubEngine{texts: map[int]string{0: "preview raw"}}
	o, _ := newTestOrchestrator(t, eng, &stubCorrector{}, nil)

	p, err := o.ProcessPage(context.Background(), pngBytes(t), ocr.ScriptArabic)
	require.NoError(t, err)
	assert.Equal(t, "preview raw", p.Raw)
	assert.Equal(t, "polished: preview raw", p.Polished)
	assert.Contains(t, p.HTML, "polished: preview raw")
}

func TestProcessPageRejectsCorruptImage(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubEngine{}, &stubCorrector{}, nil)
	_, err := o.ProcessPage(context.Background(), []byte("nope"), ocr.ScriptLatin)
	assert.Error(t, err)
}
