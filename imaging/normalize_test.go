package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize([]byte("not an image"), Options{}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNormalizeConvertsToGray(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	out, err := Normalize(encodePNG(t, src), Options{})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := out.Bounds(); got.Dx() != 8 || got.Dy() != 4 {
		t.Fatalf("unexpected bounds: %v", got)
	}
}

func TestNormalizeCapsLargestDimension(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 40))
	out, err := Normalize(encodePNG(t, src), Options{MaxDimension: 50})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 20 {
		t.Fatalf("unexpected resized bounds: %v", out.Bounds())
	}
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 30, 20))
	out, err := Normalize(encodePNG(t, src), Options{MaxDimension: 50})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 20 {
		t.Fatalf("small image should not be resized: %v", out.Bounds())
	}
}

func TestNormalizeBinarizeProducesTwoLevels(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				src.SetGray(x, y, color.Gray{Y: 30})
			} else {
				src.SetGray(x, y, color.Gray{Y: 220})
			}
		}
	}
	out, err := Normalize(encodePNG(t, src), Options{Binarize: true})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	for _, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("binarized pixel %d is neither black nor white", v)
		}
	}
}

func TestOtsuSeparatesBimodalHistogram(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		if i%2 == 0 {
			img.Pix[i] = 40
		} else {
			img.Pix[i] = 200
		}
	}
	th := otsuThreshold(img)
	if th < 40 || th >= 200 {
		t.Fatalf("threshold %d outside expected band", th)
	}
}

func TestApplyOrientationRotates(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{B: 255, A: 255})

	// Orientation 6 is a 90° clockwise rotation; width and height swap.
	out := applyOrientation(src, 6)
	if out.Bounds().Dx() != 1 || out.Bounds().Dy() != 2 {
		t.Fatalf("unexpected rotated bounds: %v", out.Bounds())
	}
	r, _, _, _ := out.At(0, 0).RGBA()
	if r == 0 {
		t.Fatalf("expected red pixel at top after rotation")
	}
}

func TestEncodePNGRoundTrips(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("bounds mismatch: %v", decoded.Bounds())
	}
}
