package pipeline

import (
	"context"
	"fmt"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/imaging"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/render"
)

// Preview is the synchronous single-page result: raw OCR text, polished
// text, and the rendered body fragment. No job is created.
type Preview struct {
	Raw      string `json:"raw"`
	Polished string `json:"clean"`
	HTML     string `json:"html"`
}

// ProcessPage runs one image through normalize, extract, and correct without
// touching the registry. Unlike a job, an undecodable image is an error here:
// the caller is interactively checking a single page and wants to know.
func (o *Orchestrator) ProcessPage(ctx context.Context, data []byte, script ocr.Script) (Preview, error) {
	if script == "" {
		script = ocr.ScriptArabic
	}
	if !script.Valid() {
		return Preview{}, fmt.Errorf("unknown script hint %q", script)
	}
	img, err := imaging.Normalize(data, o.imaging)
	if err != nil {
		return Preview{}, fmt.Errorf("normalize page: %w", err)
	}
	raw, _ := o.extract.Text(ctx, 0, img, script)

	style := styleFor(script)
	polished, _ := o.polish.Polish(ctx, 0, raw, style)

	fragment, err := render.Fragment(polished)
	if err != nil {
		return Preview{}, fmt.Errorf("render preview: %w", err)
	}
	return Preview{Raw: raw, Polished: polished, HTML: fragment}, nil
}
