package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// maxDecodeDimension caps width/height before decoding to avoid excessive
	// allocations when a corrupted upload lies about its size.
	maxDecodeDimension = 32768
	// maxDecodePixels bounds the total pixel count (roughly 64MP) which keeps
	// grayscale buffers small and prevents resource exhaustion.
	maxDecodePixels int64 = 64 * 1024 * 1024

	// DefaultMaxDimension is the resize cap applied when the caller passes
	// zero. Tesseract gains nothing above roughly 300 DPI of an A4 page.
	DefaultMaxDimension = 2400
)

// Options controls normalization of a single page.
type Options struct {
	// MaxDimension caps the larger image side; zero means DefaultMaxDimension.
	MaxDimension int
	// Binarize applies Otsu thresholding after grayscale conversion.
	Binarize bool
}

func (o Options) maxDimension() int {
	if o.MaxDimension <= 0 {
		return DefaultMaxDimension
	}
	return o.MaxDimension
}

// Normalize decodes raw image bytes and returns a grayscale image ready for
// recognition. The input slice is not retained or mutated.
func Normalize(data []byte, opts Options) (*image.Gray, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validateBounds(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = applyOrientation(img, readOrientation(data))
	img = capSize(img, opts.maxDimension())

	gray := toGray(img)
	if opts.Binarize {
		binarize(gray, otsuThreshold(gray))
	}
	return gray, nil
}

func validateBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if width > maxDecodeDimension || height > maxDecodeDimension {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	if int64(width)*int64(height) > maxDecodePixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", int64(width)*int64(height), maxDecodePixels)
	}
	return nil
}

// capSize downsamples img so its larger side is at most maxDim. CatmullRom
// keeps glyph edges sharp enough for recognition; nearest-neighbor does not.
func capSize(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dw, dh := int(float64(w)*scale), int(float64(h)*scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// readOrientation extracts the EXIF orientation tag; zero means none found.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	o, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return o
}

// applyOrientation undoes the capture rotation recorded in EXIF so the pixels
// end up upright. Mirrored orientations (2,4,5,7) also flip horizontally.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return flipH(img)
	case 3:
		return rotate180(img)
	case 4:
		return flipH(rotate180(img))
	case 5:
		return flipH(rotate90(img))
	case 6:
		return rotate90(img)
	case 7:
		return flipH(rotate270(img))
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.Y-1-y, x-b.Min.X, img.At(x, y))
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return dst
}

func rotate270(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(y-b.Min.Y, b.Max.X-1-x, img.At(x, y))
		}
	}
	return dst
}

func flipH(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, y-b.Min.Y, img.At(x, y))
		}
	}
	return dst
}
