package appstate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"time"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/slicecontour/internal/clipboard"
	"github.com/example/slicecontour/internal/contour"
	"github.com/example/slicecontour/internal/editor"
	"github.com/example/slicecontour/internal/notify"
	"github.com/example/slicecontour/internal/render"
	"github.com/example/slicecontour/internal/theme"
)

// Clipboard is the subset of the system clipboard the window uses.
type Clipboard interface {
	WriteImage(img image.Image) error
	WritePoints(c *contour.Collection) error
	ReadPoints() (*contour.Collection, error)
}

type systemClipboard struct{}

func (systemClipboard) WriteImage(img image.Image) error         { return clipboard.WriteImage(img) }
func (systemClipboard) WritePoints(c *contour.Collection) error  { return clipboard.WritePoints(c) }
func (systemClipboard) ReadPoints() (*contour.Collection, error) { return clipboard.ReadPoints() }

const saveTimeout = 30 * time.Second

// loadedEvent carries a finished load back to the window goroutine.
type loadedEvent struct {
	ticket editor.Ticket
	result editor.LoadResult
}

// interruptEvent closes the window when the caller's context ends.
type interruptEvent struct{}

// controller maps window input onto the editor. Everything here runs on
// the window goroutine.
type controller struct {
	ctx      context.Context
	ed       *editor.Editor
	handler  *editor.Handler
	notifier *notify.Notifier
	clip     Clipboard
	th       *theme.Theme
	style    render.Style
	onSaved  func(editor.Session)
	now      func() time.Time

	// load starts fetching t in the background. The result must come back
	// through loaded.
	load func(t editor.Ticket)

	width, height int
	buttons       []Button
	labels        []string
	enabled       []func() bool
	hover         int
	pressed       int
	status        status

	// stage is the current raster converted once to RGBA. It is dropped by
	// the bitmap's release hook.
	stage   *image.RGBA
	preview image.Image
	quit    bool
}

func newController(ctx context.Context, gw editor.Gateway, cfg editor.Config, th *theme.Theme, style render.Style) *controller {
	c := &controller{
		ctx:     ctx,
		th:      th,
		style:   style,
		clip:    systemClipboard{},
		now:     time.Now,
		hover:   -1,
		pressed: -1,
	}
	c.ed = editor.New(gw,
		editor.WithConfig(cfg),
		editor.WithOnSaved(c.saved),
		editor.WithOnClose(func() { c.quit = true }),
	)
	c.handler = editor.NewHandler(c.ed)
	c.load = func(t editor.Ticket) {
		c.loaded(loadedEvent{ticket: t, result: c.ed.Loader().Load(c.ctx, t.Session)})
	}
	c.initButtons()
	return c
}

func (c *controller) initButtons() {
	add := func(label string, fn func()) {
		c.buttons = append(c.buttons, &ActionButton{label: label, th: c.th, onActivate: fn})
		c.labels = append(c.labels, label)
		c.enabled = append(c.enabled, nil)
	}
	add("+:zoom in", func() { c.ed.Viewport().ZoomIn() })
	add("-:zoom out", func() { c.ed.Viewport().ZoomOut() })
	add("0:reset", func() { c.ed.Viewport().Reset() })
	add("^Z:undo", func() {
		if !c.ed.CanUndo() {
			c.info("nothing to undo")
			return
		}
		c.ed.Undo()
	})
	c.enabled[len(c.enabled)-1] = c.ed.CanUndo
	add("^C:copy", func() { c.perform(editor.ActionCopyFrame) })
	add("^S:save", func() { c.perform(editor.ActionSave) })
	add("Esc:cancel", func() { c.perform(editor.ActionCancel) })
}

func (c *controller) resize(width, height int) {
	c.width, c.height = width, height
	layoutButtons(c.buttons, c.labels, computeLayout(width, height).toolbar)
}

// open starts the session and its first load.
func (c *controller) open(s editor.Session) error {
	t, err := c.ed.Open(s)
	if err != nil {
		return err
	}
	c.load(t)
	return nil
}

// loaded installs a load result. It reports whether the window must redraw.
func (c *controller) loaded(ev loadedEvent) bool {
	if !c.ed.Apply(ev.ticket, ev.result) {
		return false
	}
	c.stage = nil
	if bm := c.ed.Bitmap(); bm != nil {
		c.stage = toRGBA(bm.Image())
		bm.OnRelease(func() { c.stage = nil })
	}
	if err := ev.result.Err; err != nil {
		log.Printf("load: %v", err)
		c.fail(err)
		return true
	}
	c.info(fmt.Sprintf("loaded %s", ev.ticket.Session))
	return true
}

func toRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

func (c *controller) info(msg string) { c.status.set(msg, false, c.now()) }

func (c *controller) fail(err error) {
	c.status.set(err.Error(), true, c.now())
	c.notifier.Error(err)
}

// mouse routes a window-space event. The toolbar takes clicks; anything
// outside the canvas ends the current gesture.
func (c *controller) mouse(e mouse.Event) bool {
	l := computeLayout(c.width, c.height)
	p := image.Pt(int(e.X), int(e.Y))

	if p.In(l.toolbar) {
		redraw := c.handler.Leave()
		idx := hitButton(c.buttons, p)
		if idx != c.hover {
			c.hover = idx
			redraw = true
		}
		if e.Button == mouse.ButtonLeft {
			switch e.Direction {
			case mouse.DirPress:
				c.pressed = idx
				redraw = true
			case mouse.DirRelease:
				if idx >= 0 && idx == c.pressed && c.buttonEnabled(idx) {
					c.buttons[idx].Activate()
				}
				c.pressed = -1
				redraw = true
			}
		}
		return redraw
	}

	redraw := c.hover != -1 || c.pressed != -1
	c.hover, c.pressed = -1, -1
	if !p.In(l.canvas) {
		return c.handler.Leave() || redraw
	}
	local := e
	local.X -= float32(l.canvas.Min.X)
	local.Y -= float32(l.canvas.Min.Y)
	return c.handler.Mouse(local) || redraw
}

func (c *controller) key(e key.Event) bool {
	redraw, act := c.handler.Key(e)
	if act != editor.ActionNone {
		c.perform(act)
		return true
	}
	return redraw
}

func (c *controller) perform(a editor.Action) {
	switch a {
	case editor.ActionSave:
		c.save()
	case editor.ActionCancel:
		c.ed.Close()
	case editor.ActionCopyFrame:
		c.copyFrame()
	case editor.ActionCopyPoints:
		c.copyPoints()
	case editor.ActionPastePoints:
		c.pastePoints()
	case editor.ActionPrevSlice:
		c.changeSlice(-1)
	case editor.ActionNextSlice:
		c.changeSlice(1)
	}
}

func (c *controller) save() {
	if !c.ed.IsOpen() {
		return
	}
	if c.ed.Loading() {
		c.info("still loading")
		return
	}
	c.preview = c.snapshot()
	ctx, cancel := context.WithTimeout(c.ctx, saveTimeout)
	defer cancel()
	if err := c.ed.Save(ctx); err != nil {
		c.preview = nil
		log.Printf("save: %v", err)
		c.fail(err)
	}
}

// saved runs from the editor's hook once the save succeeded and the editor
// has closed.
func (c *controller) saved(s editor.Session) {
	log.Printf("saved contour for %s", s)
	c.notifier.Save(s.String(), c.preview)
	c.preview = nil
	if c.onSaved != nil {
		c.onSaved(s)
	}
}

func (c *controller) copyFrame() {
	img := c.snapshot()
	if img == nil {
		return
	}
	if err := c.clip.WriteImage(img); err != nil {
		log.Printf("copy: %v", err)
		c.fail(fmt.Errorf("copy frame: %w", err))
		return
	}
	c.info("frame copied to clipboard")
	c.notifier.Copy("frame")
}

func (c *controller) copyPoints() {
	pts := c.ed.Points()
	if err := c.clip.WritePoints(pts); err != nil {
		log.Printf("copy: %v", err)
		c.fail(fmt.Errorf("copy points: %w", err))
		return
	}
	detail := fmt.Sprintf("%d points", pts.Len())
	c.info(detail + " copied to clipboard")
	c.notifier.Copy(detail)
}

func (c *controller) pastePoints() {
	if !c.ed.IsOpen() {
		return
	}
	pts, err := c.clip.ReadPoints()
	if err != nil {
		log.Printf("paste: %v", err)
		if errors.Is(err, clipboard.ErrEmpty) {
			c.info("clipboard is empty")
			return
		}
		c.fail(fmt.Errorf("paste points: %w", err))
		return
	}
	c.ed.Replace(pts)
	c.info(fmt.Sprintf("pasted %d points", pts.Len()))
}

func (c *controller) changeSlice(delta int) {
	if !c.ed.IsOpen() {
		return
	}
	next := c.ed.Session().Slice + delta
	if next < 0 {
		return
	}
	t, err := c.ed.SetSlice(next)
	if err != nil {
		c.fail(err)
		return
	}
	c.handler.Detach()
	c.load(t)
}

// frame describes the canvas for the renderer.
func (c *controller) frame() render.Frame {
	cfg := c.ed.Config()
	f := render.Frame{
		Canvas:      computeLayout(c.width, c.height).canvas,
		View:        *c.ed.Viewport(),
		Calibration: cfg.Calibration,
		BaseSize:    cfg.BaseSize,
		Points:      c.ed.Points().Points(),
		Highlight:   c.handler.Highlight(),
		Loading:     c.ed.Loading(),
		Style:       c.style,
	}
	if c.stage != nil {
		f.Bitmap = c.stage
	}
	return f
}

// snapshot renders the canvas alone, as copied to the clipboard.
func (c *controller) snapshot() image.Image {
	f := c.frame()
	if f.Canvas.Empty() {
		return nil
	}
	f.Canvas = f.Canvas.Sub(f.Canvas.Min)
	f.Highlight = -1
	dst := image.NewRGBA(f.Canvas)
	render.Render(dst, f)
	return dst
}

func (c *controller) summary() string {
	if !c.ed.IsOpen() {
		return "closed"
	}
	s := fmt.Sprintf("%s  %d points  %.0f%%", c.ed.Session(), c.ed.Len(), c.ed.Viewport().Zoom*100)
	if c.ed.Loading() {
		s += "  loading..."
	}
	return s
}

func (c *controller) buttonEnabled(i int) bool {
	return c.enabled[i] == nil || c.enabled[i]()
}

func (c *controller) paintState() paintState {
	views := make([]buttonView, len(c.buttons))
	for i, b := range c.buttons {
		st := StateDefault
		switch {
		case !c.buttonEnabled(i):
			st = StateDisabled
		case i == c.pressed:
			st = StatePressed
		case i == c.hover:
			st = StateHover
		}
		views[i] = buttonView{label: c.labels[i], rect: b.Rect(), state: st}
	}
	return paintState{
		width:   c.width,
		height:  c.height,
		frame:   c.frame(),
		buttons: views,
		status:  c.status,
		summary: c.summary(),
		theme:   c.th,
	}
}
