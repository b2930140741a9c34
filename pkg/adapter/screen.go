package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"

	"github.com/kbinani/screenshot"
	"github.com/m-mizutani/goerr/v2"
)

// Capturer produces one frame of the visual state.
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Screen captures a display with kbinani/screenshot.
type Screen struct {
	display int
}

// NewScreen captures the given display index; 0 is the primary display.
func NewScreen(display int) *Screen {
	return &Screen{display: display}
}

func (x *Screen) Capture(ctx context.Context) (image.Image, error) {
	if n := screenshot.NumActiveDisplays(); x.display >= n {
		return nil, goerr.New("display not found",
			goerr.V("display", x.display),
			goerr.V("active", n))
	}

	img, err := screenshot.CaptureDisplay(x.display)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to capture display", goerr.V("display", x.display))
	}
	return img, nil
}

// EncodeJPEG compresses img at quality (clamped by image/jpeg to 1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, goerr.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}

// EncodeBase64 returns the JPEG encoding of img as standard base64.
func EncodeBase64(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
