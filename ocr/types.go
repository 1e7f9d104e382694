package ocr

import "context"

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Script is the closed set of writing-system hints a caller can attach to a
// page. Engines map a hint to whatever language models they ship; adding a
// script means adding a variant here and a mapping in the engine, not editing
// call sites.
type Script string

const (
	ScriptLatin  Script = "latin"
	ScriptArabic Script = "arabic-script"
	ScriptMixed  Script = "mixed"
)

// Valid reports whether s is one of the known script hints.
func (s Script) Valid() bool {
	switch s {
	case ScriptLatin, ScriptArabic, ScriptMixed:
		return true
	}
	return false
}

// RightToLeft reports whether text in this script reads right to left.
func (s Script) RightToLeft() bool { return s == ScriptArabic }

// Input encapsulates a single image submitted for recognition.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back in the
	// corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// PageIndex links the input back to the zero-based page it came from.
	PageIndex int
	// Script selects the writing-system hint used to pick trained data.
	Script Script
	// DPI carries the effective dots-per-inch for the image. Engines such as
	// Tesseract use this for scaling and layout heuristics; zero means unknown.
	DPI int
	// Metadata allows callers to pass through engine-specific knobs (e.g.,
	// "tessedit_pageseg_mode") without hard-coding them into the API surface.
	Metadata map[string]string
}

// Result captures recognition output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PlainText contains the linearized text extracted from the image.
	PlainText string
	// Confidence is the mean word confidence in [0,1]; zero means unknown.
	Confidence float64
}

// Engine is the recognition provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
