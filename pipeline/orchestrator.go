package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/correct"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/epub"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/imaging"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/render"
)

// Progress sub-ranges reserved for each phase. Extraction owns 10-50,
// correction 50-90, assembly the rest.
const (
	progressExtractBase = 10
	progressCorrectBase = 50
	progressAssemble    = 90
	phaseSpan           = 40
)

// DefaultWorkers bounds the correction fan-out. The stage is network-bound
// and pages are independent, so the limit is a tunable policy knob, not a
// derived constant.
const DefaultWorkers = 4

// summaryPrefixLimit bounds how much raw text feeds the synopsis request.
const summaryPrefixLimit = 4000

// Summarizer is the optional capability producing a short book synopsis.
// *correct.GroqCorrector satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, text string, style correct.Style) (string, error)
}

// Request describes one submitted conversion.
type Request struct {
	Pages []PageInput
	// Cover optionally becomes the container's cover entry.
	Cover []byte
	Title string
	// Language is the metadata language tag, e.g. "ur".
	Language string
	// Script hints the writing system for extraction and directionality.
	Script ocr.Script
	// SkipSummary suppresses synopsis generation.
	SkipSummary bool
}

// Options tunes the orchestrator.
type Options struct {
	// Workers is the correction pool size; values below 1 become DefaultWorkers.
	Workers int
	// Imaging controls page normalization.
	Imaging imaging.Options
	// WorkDir is where assembled artifacts are written.
	WorkDir string
}

// Orchestrator coordinates jobs from submission to terminal state. One
// instance serves all jobs; per-job state lives in the registry entry that
// only the running job mutates.
type Orchestrator struct {
	registry  *Registry
	extract   *ocr.Adapter
	polish    *correct.Adapter
	summarize Summarizer
	metrics   *observability.Metrics
	log       observability.Logger

	workers int
	imaging imaging.Options
	workDir string
}

// NewOrchestrator wires the pipeline together. summarize may be nil, in
// which case jobs never produce a synopsis. A nil metrics set is replaced
// with unregistered collectors, a nil logger with a no-op one.
func NewOrchestrator(reg *Registry, ex *ocr.Adapter, po *correct.Adapter, summarize Summarizer, metrics *observability.Metrics, log observability.Logger, opts Options) *Orchestrator {
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	if log == nil {
		log = observability.NopLogger{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		registry:  reg,
		extract:   ex,
		polish:    po,
		summarize: summarize,
		metrics:   metrics,
		log:       log,
		workers:   workers,
		imaging:   opts.Imaging,
		workDir:   opts.WorkDir,
	}
}

// Submit registers a job and starts its pipeline in the background. ctx
// should outlive the request that carried the upload; the daemon passes its
// base context.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	if len(req.Pages) == 0 {
		return "", fmt.Errorf("submission has no pages")
	}
	if req.Script == "" {
		req.Script = ocr.ScriptArabic
	}
	if !req.Script.Valid() {
		return "", fmt.Errorf("unknown script hint %q", req.Script)
	}
	id := o.registry.Create()
	o.metrics.JobsSubmitted.Inc()
	go o.Run(ctx, id, req)
	return id, nil
}

// Run executes the whole pipeline for one job. Every exit path, panics
// included, leaves the registry entry in exactly one terminal state.
func (o *Orchestrator) Run(ctx context.Context, jobID string, req Request) {
	log := o.log.With(observability.String("job", jobID))

	o.metrics.JobsInProgress.Inc()
	defer o.metrics.JobsInProgress.Dec()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("pipeline panicked", observability.String("panic", fmt.Sprint(rec)))
			o.fail(jobID, fmt.Errorf("internal error: %v", rec))
		}
	}()

	pages := append([]PageInput(nil), req.Pages...)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	o.registry.update(jobID, func(j *Job) {
		j.Status = StatusProcessing
		j.Progress = 0
		j.Message = "processing"
	})
	log.Info("job started", observability.Int("pages", len(pages)))

	style := styleFor(req.Script)

	texts, err := o.extractPhase(ctx, jobID, pages, req.Script, log)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	if err := o.correctPhase(ctx, jobID, texts, style); err != nil {
		o.fail(jobID, err)
		return
	}

	summary := o.summaryPhase(ctx, req, texts, style, log)

	artifact, err := o.assemblePhase(jobID, req, texts, style)
	if err != nil {
		o.fail(jobID, err)
		return
	}

	o.registry.update(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = 100
		j.Message = "completed"
		j.ArtifactPath = artifact
		j.Summary = summary
	})
	o.metrics.JobsCompleted.Inc()
	log.Info("job completed", observability.String("artifact", artifact))
}

// extractPhase normalizes and recognizes pages one at a time so only a
// single decoded page image is ever resident. A page that cannot be decoded
// degrades to empty text; only cancellation aborts the job here.
func (o *Orchestrator) extractPhase(ctx context.Context, jobID string, pages []PageInput, script ocr.Script, log observability.Logger) ([]pageText, error) {
	texts := make([]pageText, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("job canceled during extraction: %w", err)
		}
		texts[i] = pageText{index: p.Index}

		img, err := imaging.Normalize(p.Data, o.imaging)
		if err != nil {
			log.Warn("page decode failed, substituting empty text",
				observability.Int("page", p.Index),
				observability.String("source", p.Name),
				observability.Error("err", err))
			o.metrics.PagesDegraded.Inc()
			texts[i].degraded = true
		} else {
			start := time.Now()
			raw, ok := o.extract.Text(ctx, p.Index, img, script)
			o.metrics.PageExtractSeconds.Observe(time.Since(start).Seconds())
			texts[i].raw = raw
			if !ok {
				o.metrics.PagesDegraded.Inc()
				texts[i].degraded = true
			}
		}

		done := i + 1
		o.registry.update(jobID, func(j *Job) {
			j.Progress = progressExtractBase + done*phaseSpan/len(pages)
			j.Message = fmt.Sprintf("extracted page %d of %d", done, len(pages))
		})
	}
	return texts, nil
}

// correctPhase fans page corrections out to a fixed-size worker pool. Each
// worker writes only its own slice slot, so completion order cannot disturb
// page order.
func (o *Orchestrator) correctPhase(ctx context.Context, jobID string, texts []pageText, style correct.Style) error {
	indices := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64

	workers := o.workers
	if workers > len(texts) {
		workers = len(texts)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				start := time.Now()
				polished, used := o.polish.Polish(ctx, texts[i].index, texts[i].raw, style)
				o.metrics.PageCorrectSeconds.Observe(time.Since(start).Seconds())
				texts[i].polished = polished
				if !used && texts[i].raw != "" {
					o.metrics.PagesDegraded.Inc()
				}
				n := int(done.Add(1))
				o.registry.update(jobID, func(j *Job) {
					j.Progress = progressCorrectBase + n*phaseSpan/len(texts)
					j.Message = fmt.Sprintf("polished page %d of %d", n, len(texts))
				})
			}
		}()
	}

	for i := range texts {
		select {
		case indices <- i:
		case <-ctx.Done():
			close(indices)
			wg.Wait()
			return fmt.Errorf("job canceled during correction: %w", ctx.Err())
		}
	}
	close(indices)
	wg.Wait()
	return nil
}

// summaryPhase is best effort: any failure yields a placeholder rather than
// touching the job's fate.
func (o *Orchestrator) summaryPhase(ctx context.Context, req Request, texts []pageText, style correct.Style, log observability.Logger) string {
	if req.SkipSummary || o.summarize == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range texts {
		if sb.Len() >= summaryPrefixLimit {
			break
		}
		sb.WriteString(t.raw)
		sb.WriteString("\n")
	}
	prefix := sb.String()
	if len(prefix) > summaryPrefixLimit {
		prefix = prefix[:summaryPrefixLimit]
	}
	if strings.TrimSpace(prefix) == "" {
		return ""
	}
	summary, err := o.summarize.Summarize(ctx, prefix, style)
	if err != nil {
		log.Warn("summary generation failed", observability.Error("err", err))
		return "Summary unavailable."
	}
	return strings.TrimSpace(summary)
}

// assemblePhase renders fragments and writes the container.
func (o *Orchestrator) assemblePhase(jobID string, req Request, texts []pageText, style correct.Style) (string, error) {
	o.registry.update(jobID, func(j *Job) {
		j.Progress = progressAssemble
		j.Message = "assembling container"
	})

	book := epub.Book{
		Metadata: epub.Metadata{
			Title:      req.Title,
			Language:   req.Language,
			Identifier: "urn:scan2ebook:" + jobID,
		},
	}
	for i, t := range texts {
		doc, err := render.Page(i, t.polished, style)
		if err != nil {
			return "", fmt.Errorf("render page %d: %w", i, err)
		}
		book.Pages = append(book.Pages, epub.Page{Index: i, Content: doc})
	}
	if len(req.Cover) > 0 {
		book.Cover = &epub.Cover{Data: req.Cover}
	}

	path := filepath.Join(o.workDir, jobID+".epub")
	start := time.Now()
	if err := epub.WriteFile(path, book); err != nil {
		return "", fmt.Errorf("assemble container: %w", err)
	}
	o.metrics.AssembleSeconds.Observe(time.Since(start).Seconds())
	return path, nil
}

func (o *Orchestrator) fail(jobID string, err error) {
	msg := "conversion failed"
	if err != nil {
		msg = err.Error()
	}
	o.registry.update(jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Message = "failed"
		j.Error = msg
	})
	o.metrics.JobsFailed.Inc()
	o.log.Error("job failed",
		observability.String("job", jobID),
		observability.String("reason", msg))
}

// styleFor derives the correction style hint from the extraction script.
func styleFor(script ocr.Script) correct.Style {
	style := correct.Style{Direction: correct.LeftToRight, Language: "English"}
	if script.RightToLeft() {
		style.Direction = correct.RightToLeft
	}
	if script == ocr.ScriptArabic || script == ocr.ScriptMixed {
		style.Language = "Urdu"
	}
	return style
}
