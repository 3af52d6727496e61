package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestLooksLikeImage(t *testing.T) {
	cases := []struct {
		contentType string
		fileName    string
		want        bool
	}{
		{"image/jpeg", "whatever.bin", true},
		{"text/plain", "photo.jpg", true},
		{"text/plain", "PHOTO.JPEG", true},
		{"text/plain", "photo.png", true},
		{"text/plain", "notes.txt", false},
		{"application/octet-stream", "avatar.gif", false},
	}
	for _, c := range cases {
		if got := LooksLikeImage(c.contentType, c.fileName); got != c.want {
			t.Errorf("LooksLikeImage(%q, %q) = %v, want %v", c.contentType, c.fileName, got, c.want)
		}
	}
}

func TestRenderStretchesToFixedSize(t *testing.T) {
	out, err := Render(encodeJPEG(t, 300, 150))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	if img.Bounds().Dx() != Width || img.Bounds().Dy() != Height {
		t.Fatalf("expected %dx%d, got %dx%d", Width, Height, img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderAcceptsPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 40))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if _, err := Render(buf.Bytes()); err != nil {
		t.Fatalf("Render png: %v", err)
	}
}

func TestRenderRejectsGarbage(t *testing.T) {
	if _, err := Render([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()

	first, err := Render(encodeJPEG(t, 300, 150))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	name, err := Save(dir, "zenek", first)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "zenek-avatar.jpg" {
		t.Fatalf("unexpected file name: %s", name)
	}

	second, err := Render(encodeJPEG(t, 64, 64))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := Save(dir, "zenek", second); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one avatar file, got %d", len(entries))
	}

	stored, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read avatar: %v", err)
	}
	if !bytes.Equal(stored, second) {
		t.Fatalf("expected overwrite with newest upload")
	}
}
