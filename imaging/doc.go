// Package imaging turns one raw scanned page into a recognition-ready image:
// orientation is fixed from EXIF metadata, oversized scans are downsampled
// with a quality-preserving filter, and the result is reduced to grayscale
// (optionally binarized) so the OCR stage sees consistent input with a small
// memory footprint.
package imaging
