package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return &buf
}

func TestProcess_AcceptsPNGAndReencodes(t *testing.T) {
	res, err := Process(encodePNG(t, 200, 100))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", res.MIME)
	}
	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("Output is not valid JPEG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("Small images should keep their size, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestProcess_DownscalesLargeImages(t *testing.T) {
	res, err := Process(encodePNG(t, MaxDimension*2, MaxDimension))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("Output is not valid JPEG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != MaxDimension {
		t.Errorf("Expected width capped at %d, got %d", MaxDimension, b.Dx())
	}
	if b.Dy() != MaxDimension/2 {
		t.Errorf("Expected aspect ratio preserved, got height %d", b.Dy())
	}
}

func TestProcess_RejectsNonImages(t *testing.T) {
	if _, err := Process(bytes.NewBufferString("PK\x03\x04 definitely a zip")); err == nil {
		t.Error("Non-image data should be rejected")
	}
	if _, err := Process(bytes.NewBufferString("<html>nope</html>")); err == nil {
		t.Error("HTML should be rejected")
	}
}
