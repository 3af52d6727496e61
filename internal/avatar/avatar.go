package avatar

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Thumbnails are a fixed square; sources are stretched to fit, never
// cropped, so the result is deterministic regardless of aspect ratio.
const (
	Width  = 100
	Height = 100
)

var extensions = []string{".jpg", ".jpeg", ".png"}

// LooksLikeImage is the upload acceptance test: declared content type
// contains "image", or the filename carries a known extension. A sniff,
// not a content validation; the decode step is the real gate.
func LooksLikeImage(contentType, fileName string) bool {
	if strings.Contains(contentType, "image") {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(fileName), ext) {
			return true
		}
	}
	return false
}

// Render decodes src (jpeg, png or gif) and returns the resized thumbnail
// encoded as JPEG.
func Render(src []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the per-user avatar file name; re-uploads overwrite it.
func FileName(username string) string {
	return username + "-avatar.jpg"
}

// Save writes the encoded thumbnail under dir atomically (temp file then
// rename), overwriting any previous avatar for the same username.
func Save(dir, username string, encoded []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create avatar dir: %w", err)
	}

	name := FileName(username)
	target := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "avatar-*")
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write avatar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close avatar: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store avatar: %w", err)
	}
	if err := os.Chmod(target, 0o644); err != nil {
		return "", fmt.Errorf("chmod avatar: %w", err)
	}
	return name, nil
}
