// Package clipboard copies rendered frames and contour point lists to the
// system clipboard and reads point lists back.
package clipboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/example/slicecontour/internal/contour"
)

var (
	// ErrUnsupported is returned on platforms without a clipboard backend.
	ErrUnsupported = errors.New("clipboard operations are not supported on this platform")
	// ErrEmpty means the clipboard holds nothing of the requested kind.
	ErrEmpty     = errors.New("clipboard is empty")
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
)

// WriteImage encodes the provided image as PNG and publishes it to the clipboard.
func WriteImage(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return writeImage(buf.Bytes())
}

// WriteText writes text data to the clipboard.
func WriteText(text string) error {
	return writeText(text)
}

// ReadText returns UTF-8 text data from the clipboard.
func ReadText() (string, error) {
	text, err := readText()
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// WritePoints puts the point list on the clipboard as a JSON array of
// [x, y] pairs.
func WritePoints(c *contour.Collection) error {
	text, err := FormatPoints(c)
	if err != nil {
		return err
	}
	return WriteText(text)
}

// ReadPoints parses a point list from the clipboard text.
func ReadPoints() (*contour.Collection, error) {
	text, err := ReadText()
	if err != nil {
		return nil, err
	}
	return ParsePoints(text)
}

// FormatPoints renders c the way WritePoints stores it.
func FormatPoints(c *contour.Collection) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode points: %w", err)
	}
	return string(data), nil
}

// ParsePoints accepts anything the contour service would return, so a
// payload copied from a browser pastes as well.
func ParsePoints(text string) (*contour.Collection, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmpty
	}
	c, err := contour.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("clipboard points: %w", err)
	}
	return c, nil
}
