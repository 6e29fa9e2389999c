package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"

	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"

	"github.com/example/slicecontour/internal/contour"
)

// Gateway is the part of the service client the editor needs.
type Gateway interface {
	FetchImage(ctx context.Context, volumeID string, slice int) ([]byte, error)
	FetchContour(ctx context.Context, volumeID string, slice int) ([]byte, error)
	SaveContour(ctx context.Context, volumeID string, slice int, pts *contour.Collection) error
}

// LoadResult is what a Loader hands back to the editor. On failure Bitmap is
// nil, Points is empty and Err is a *LoadError.
type LoadResult struct {
	Session Session
	Bitmap  *Bitmap
	Points  *contour.Collection
	Err     error
}

// Loader fetches and decodes everything a session needs. It holds no state
// and may be used from any goroutine.
type Loader struct {
	gw Gateway
}

// NewLoader returns a Loader reading from gw.
func NewLoader(gw Gateway) *Loader {
	return &Loader{gw: gw}
}

// Load fetches the raster and the contour concurrently, then decodes the
// raster. A missing or malformed contour gives an empty collection.
func (l *Loader) Load(ctx context.Context, s Session) LoadResult {
	fail := func(stage string, err error) LoadResult {
		return LoadResult{
			Session: s,
			Points:  contour.New(),
			Err:     &LoadError{Stage: stage, Session: s, Err: err},
		}
	}
	if err := s.Validate(); err != nil {
		return fail(StageImage, err)
	}

	var raw, payload []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.gw.FetchImage(gctx, s.VolumeID, s.Slice)
		if err != nil {
			return &LoadError{Stage: StageImage, Session: s, Err: err}
		}
		raw = data
		return nil
	})
	g.Go(func() error {
		data, err := l.gw.FetchContour(gctx, s.VolumeID, s.Slice)
		if err != nil {
			return &LoadError{Stage: StageContour, Session: s, Err: err}
		}
		payload = data
		return nil
	})
	if err := g.Wait(); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return LoadResult{Session: s, Points: contour.New(), Err: le}
		}
		return fail(StageImage, err)
	}

	img, err := decodeRaster(raw)
	if err != nil {
		return fail(StageDecode, err)
	}
	bm := NewBitmap(img)

	pts, err := contour.Parse(payload)
	if err != nil {
		log.Printf("load %s: %v", s, err)
		pts = contour.New()
	}
	if err := ctx.Err(); err != nil {
		bm.Release()
		return fail(StageImage, err)
	}
	return LoadResult{Session: s, Bitmap: bm, Points: pts}
}

func decodeRaster(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty raster")
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("sniff raster: %w", err)
	}
	switch kind.Extension {
	case "png":
		return png.Decode(bytes.NewReader(data))
	case "jpg":
		return jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported raster type %q", kind.MIME.Value)
	}
}
