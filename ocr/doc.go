package ocr

// Package ocr defines the boundary between the conversion pipeline and
// third-party text-recognition engines (Tesseract by default). The interfaces
// are intentionally small and transport-agnostic so engines can be backed by
// native libraries or remote APIs without leaking provider-specific concerns
// into the pipeline.
