// Package correct is the boundary to the external language-correction
// capability. A Corrector turns raw OCR text into polished text; the Adapter
// wraps one with the pipeline's fallback policy so a correction outage
// degrades a page to its raw text instead of failing the job.
package correct

import (
	"context"
	"strings"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/observability"
)

// Direction is the text directionality carried in a style hint.
type Direction string

const (
	LeftToRight Direction = "ltr"
	RightToLeft Direction = "rtl"
)

// Style describes the formatting conventions the corrected text should
// follow: paragraph wrapping and script directionality.
type Style struct {
	Direction Direction
	// Language names the dominant language for the editor prompt, e.g. "Urdu".
	Language string
}

// DefaultStyle matches the original scanned-book corpus: Urdu, right to left.
func DefaultStyle() Style {
	return Style{Direction: RightToLeft, Language: "Urdu"}
}

// Corrector is the external capability contract: text in, polished text out.
type Corrector interface {
	Name() string
	Correct(ctx context.Context, text string, style Style) (string, error)
}

// Adapter applies the degradation policy around a Corrector. It is stateless
// and safe for concurrent use.
type Adapter struct {
	corrector Corrector
	log       observability.Logger
}

// NewAdapter builds a correction adapter. A nil logger is replaced with a
// no-op one.
func NewAdapter(c Corrector, log observability.Logger) *Adapter {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Adapter{corrector: c, log: log}
}

// Polish returns the corrected form of text, or the deterministic fallback
// wrapping of the raw text when the capability fails or returns nothing.
// The boolean reports whether the remote correction was used.
func (a *Adapter) Polish(ctx context.Context, pageIndex int, text string, style Style) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	polished, err := a.corrector.Correct(ctx, text, style)
	if err != nil {
		a.log.Warn("correction failed, keeping raw text",
			observability.Int("page", pageIndex),
			observability.String("corrector", a.corrector.Name()),
			observability.Error("err", err))
		return Fallback(text), false
	}
	polished = strings.TrimSpace(polished)
	if polished == "" {
		a.log.Warn("correction returned empty text, keeping raw text",
			observability.Int("page", pageIndex))
		return Fallback(text), false
	}
	return polished, true
}

// Fallback wraps raw text in the minimal paragraph markup the renderer
// expects: trimmed lines, blank lines preserved as paragraph breaks. It is a
// pure function so the degraded path stays deterministic and testable.
func Fallback(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var paragraphs []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return strings.Join(paragraphs, "\n\n")
}
