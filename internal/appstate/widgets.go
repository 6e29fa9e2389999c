package appstate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/slicecontour/internal/theme"
)

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
	StateDisabled

	numButtonStates
)

// Button represents an interactive UI element.
// Activate performs the button's action when clicked.
type Button interface {
	Draw(dst *image.RGBA, state ButtonState)
	Rect() image.Rectangle
	SetRect(r image.Rectangle)
	Activate()
}

// CacheButton wraps another Button and caches its rendered states.
// It delegates all interface methods to the wrapped Button while
// caching the result of Draw for each state.
type CacheButton struct {
	Button
	cache [numButtonStates]*image.RGBA
}

var _ Button = (*CacheButton)(nil)

func (cb *CacheButton) Draw(dst *image.RGBA, state ButtonState) {
	if cb.cache[state] == nil {
		rect := cb.Button.Rect()
		img := image.NewRGBA(rect)
		cb.Button.Draw(img, state)
		cb.cache[state] = img
	}
	draw.Draw(dst, cb.Button.Rect(), cb.cache[state], cb.Button.Rect().Min, draw.Src)
}

func (cb *CacheButton) Rect() image.Rectangle { return cb.Button.Rect() }

func (cb *CacheButton) SetRect(r image.Rectangle) {
	if r != cb.Button.Rect() {
		cb.Button.SetRect(r)
		cb.cache = [numButtonStates]*image.RGBA{}
	}
}

func (cb *CacheButton) Activate() { cb.Button.Activate() }

// ActionButton is a labelled toolbar button.
type ActionButton struct {
	label      string
	rect       image.Rectangle
	th         *theme.Theme
	onActivate func()
}

func (ab *ActionButton) Draw(dst *image.RGBA, state ButtonState) {
	th := ab.th
	if th == nil {
		th = theme.Default()
	}
	c, text := th.ButtonBackground, th.ButtonText
	switch state {
	case StateHover:
		c = th.ButtonBackgroundHover
	case StatePressed:
		c = th.ButtonBackgroundPress
	case StateDisabled:
		text = th.ButtonBackgroundPress
	}
	draw.Draw(dst, ab.rect, &image.Uniform{c}, image.Point{}, draw.Src)
	drawRect(dst, ab.rect, th.ButtonBorder, 1)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(text), Face: basicfont.Face7x13,
		Dot: fixed.P(ab.rect.Min.X+4, ab.rect.Min.Y+16)}
	d.DrawString(ab.label)
}

func (ab *ActionButton) Rect() image.Rectangle { return ab.rect }

func (ab *ActionButton) SetRect(r image.Rectangle) {
	if r != ab.rect {
		ab.rect = r
	}
}

func (ab *ActionButton) Activate() {
	if ab.onActivate != nil {
		ab.onActivate()
	}
}

// layoutButtons places buttons left to right inside bar, each as wide as
// its label.
func layoutButtons(buttons []Button, labels []string, bar image.Rectangle) {
	meas := &font.Drawer{Face: basicfont.Face7x13}
	x := bar.Min.X + 2
	for i, b := range buttons {
		w := meas.MeasureString(labels[i]).Ceil() + 8
		b.SetRect(image.Rect(x, bar.Min.Y+2, x+w, bar.Max.Y-2))
		x += w + 4
	}
}

// hitButton returns the index of the button containing p, or -1.
func hitButton(buttons []Button, p image.Point) int {
	for i, b := range buttons {
		if p.In(b.Rect()) {
			return i
		}
	}
	return -1
}

func drawRect(img *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	for i := 0; i < thick; i++ {
		r := rect.Inset(i)
		if r.Empty() {
			return
		}
		draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), image.NewUniform(col), image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), image.NewUniform(col), image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), image.NewUniform(col), image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), image.NewUniform(col), image.Point{}, draw.Src)
	}
}
