package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/imaging"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
)

// InputOption mutates an OCR input built from a normalized page.
type InputOption func(*Input)

// WithScript sets the writing-system hint on the OCR input.
func WithScript(script Script) InputOption {
	return func(in *Input) { in.Script = script }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets engine-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromImage converts a normalized page into an OCR input using PNG
// encoding. The generated ID is stable for the page index to simplify
// correlation with downstream results.
func InputFromImage(pageIndex int, img image.Image, opts ...InputOption) (Input, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return Input{}, fmt.Errorf("encode page image: %w", err)
	}
	in := Input{
		ID:        fmt.Sprintf("page-%d", pageIndex),
		Image:     data,
		Format:    ImageFormatPNG,
		PageIndex: pageIndex,
		Script:    ScriptArabic,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

// Adapter wraps an Engine with the pipeline's degradation policy: any engine
// failure becomes an empty-text result so one bad page never aborts a job.
type Adapter struct {
	engine Engine
	log    observability.Logger
}

// NewAdapter builds an extraction adapter around engine. A nil logger is
// replaced with a no-op one.
func NewAdapter(engine Engine, log observability.Logger) *Adapter {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Adapter{engine: engine, log: log}
}

// Text recognizes one normalized page and returns its plain text. Engine
// errors are logged and reported as empty text with ok=false; the adapter
// never retries beyond what the engine itself does.
func (a *Adapter) Text(ctx context.Context, pageIndex int, img image.Image, script Script, opts ...InputOption) (string, bool) {
	in, err := InputFromImage(pageIndex, img, append([]InputOption{WithScript(script)}, opts...)...)
	if err != nil {
		a.log.Warn("ocr input rejected",
			observability.Int("page", pageIndex),
			observability.Error("err", err))
		return "", false
	}
	res, err := a.engine.Recognize(ctx, in)
	if err != nil {
		a.log.Warn("ocr failed, substituting empty text",
			observability.Int("page", pageIndex),
			observability.String("engine", a.engine.Name()),
			observability.Error("err", err))
		return "", false
	}
	return strings.TrimSpace(res.PlainText), true
}
