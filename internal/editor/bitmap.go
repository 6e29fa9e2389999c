package editor

import "image"

// Bitmap is an exclusively owned decoded raster. Hosts that upload it to
// the GPU attach a release hook so the texture goes away with it.
type Bitmap struct {
	img      image.Image
	hooks    []func()
	released bool
}

// NewBitmap wraps img.
func NewBitmap(img image.Image) *Bitmap {
	return &Bitmap{img: img}
}

// Image returns the raster, or nil after Release.
func (b *Bitmap) Image() image.Image {
	if b == nil || b.released {
		return nil
	}
	return b.img
}

// Bounds returns the raster bounds.
func (b *Bitmap) Bounds() image.Rectangle {
	if img := b.Image(); img != nil {
		return img.Bounds()
	}
	return image.Rectangle{}
}

// OnRelease registers fn to run once when the bitmap is released. If the
// bitmap is already released fn runs immediately.
func (b *Bitmap) OnRelease(fn func()) {
	if b.released {
		fn()
		return
	}
	b.hooks = append(b.hooks, fn)
}

// Release drops the raster and runs the release hooks. It is safe to call
// more than once and on a nil Bitmap.
func (b *Bitmap) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.img = nil
	hooks := b.hooks
	b.hooks = nil
	for _, fn := range hooks {
		fn()
	}
}

// Released reports whether Release has been called.
func (b *Bitmap) Released() bool {
	return b == nil || b.released
}
