package appstate

import (
	"context"
	"image"
	"image/draw"
	"log"
	"time"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/example/slicecontour/internal/render"
	"github.com/example/slicecontour/internal/theme"
)

const (
	toolbarHeight = 24
	statusHeight  = 24
)

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

var statusFace font.Face

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	statusFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 13, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// layout splits the window into toolbar, canvas and status bar.
type layout struct {
	toolbar image.Rectangle
	canvas  image.Rectangle
	status  image.Rectangle
}

func computeLayout(width, height int) layout {
	if height < toolbarHeight+statusHeight {
		height = toolbarHeight + statusHeight
	}
	return layout{
		toolbar: image.Rect(0, 0, width, toolbarHeight),
		canvas:  image.Rect(0, toolbarHeight, width, height-statusHeight),
		status:  image.Rect(0, height-statusHeight, width, height),
	}
}

// status is the transient message shown in the status bar. Errors stay
// until replaced.
type status struct {
	message string
	isErr   bool
	until   time.Time
}

const messageDuration = 2 * time.Second

func (s *status) set(msg string, isErr bool, now time.Time) {
	s.message = msg
	s.isErr = isErr
	s.until = time.Time{}
	if !isErr {
		s.until = now.Add(messageDuration)
	}
}

func (s status) active(now time.Time) bool {
	if s.message == "" {
		return false
	}
	return s.until.IsZero() || now.Before(s.until)
}

type buttonView struct {
	label string
	rect  image.Rectangle
	state ButtonState
}

type paintState struct {
	width, height int
	frame         render.Frame
	buttons       []buttonView
	status        status
	// summary is shown when no message is active.
	summary string
	theme   *theme.Theme
}

// chrome caches the rendered toolbar buttons. It belongs to the paint
// goroutine.
type chrome struct {
	buttons map[string]*CacheButton
}

func (c *chrome) button(v buttonView, th *theme.Theme) *CacheButton {
	if c.buttons == nil {
		c.buttons = make(map[string]*CacheButton)
	}
	cb, ok := c.buttons[v.label]
	if !ok {
		cb = &CacheButton{Button: &ActionButton{label: v.label, th: th}}
		c.buttons[v.label] = cb
	}
	cb.SetRect(v.rect)
	return cb
}

// drawWindow renders the whole window for st into dst.
func (c *chrome) drawWindow(ctx context.Context, dst *image.RGBA, st paintState, now time.Time) {
	th := st.theme
	if th == nil {
		th = theme.Default()
	}
	l := computeLayout(st.width, st.height)

	draw.Draw(dst, dst.Bounds(), image.NewUniform(th.Background), image.Point{}, draw.Src)
	f := st.frame
	f.Canvas = l.canvas
	render.Render(dst, f)
	if ctx.Err() != nil {
		return
	}

	draw.Draw(dst, l.toolbar, image.NewUniform(th.ToolbarBackground), image.Point{}, draw.Src)
	for _, v := range st.buttons {
		c.button(v, th).Draw(dst, v.state)
	}
	if ctx.Err() != nil {
		return
	}

	draw.Draw(dst, l.status, image.NewUniform(th.StatusBackground), image.Point{}, draw.Src)
	msg, col := st.summary, th.StatusText
	if st.status.active(now) {
		msg = st.status.message
		if st.status.isErr {
			col = th.StatusError
		}
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: statusFace}
	ascent := statusFace.Metrics().Ascent.Ceil()
	d.Dot = fixed.P(l.status.Min.X+6, l.status.Min.Y+(statusHeight+ascent)/2-1)
	d.DrawString(msg)
}

func (c *chrome) drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	c.drawWindow(ctx, b.RGBA(), st, time.Now())
	if ctx.Err() != nil {
		return
	}

	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
