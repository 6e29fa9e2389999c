package appstate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/slicecontour/internal/clipboard"
	"github.com/example/slicecontour/internal/contour"
	"github.com/example/slicecontour/internal/editor"
	"github.com/example/slicecontour/internal/theme"
)

type fakeGateway struct {
	image   []byte
	payload map[int][]byte
	saveErr error
	saved   *contour.Collection
}

func (f *fakeGateway) FetchImage(ctx context.Context, volumeID string, slice int) ([]byte, error) {
	return f.image, nil
}

func (f *fakeGateway) FetchContour(ctx context.Context, volumeID string, slice int) ([]byte, error) {
	return f.payload[slice], nil
}

func (f *fakeGateway) SaveContour(ctx context.Context, volumeID string, slice int, pts *contour.Collection) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = pts
	return nil
}

type fakeClipboard struct {
	img    image.Image
	points *contour.Collection
	err    error
}

func (f *fakeClipboard) WriteImage(img image.Image) error {
	f.img = img
	return f.err
}

func (f *fakeClipboard) WritePoints(c *contour.Collection) error {
	f.points = c
	return f.err
}

func (f *fakeClipboard) ReadPoints() (*contour.Collection, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.points == nil {
		return nil, clipboard.ErrEmpty
	}
	return f.points, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newTestController(t *testing.T, gw *fakeGateway) (*controller, *fakeClipboard) {
	t.Helper()
	c := newController(context.Background(), gw, editor.DefaultConfig(), theme.Default(), (&AppState{Config: editor.DefaultConfig()}).Style())
	clip := &fakeClipboard{}
	c.clip = clip
	c.resize(500, 500+toolbarHeight+statusHeight)
	if err := c.open(editor.Session{VolumeID: "abc", Slice: 3}); err != nil {
		t.Fatalf("open: %v", err)
	}
	return c, clip
}

func TestOpenLoadsSynchronouslyInTests(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[1,2]]`)}}
	c, _ := newTestController(t, gw)
	if c.ed.Loading() || c.ed.Len() != 1 {
		t.Fatalf("loading=%v len=%d", c.ed.Loading(), c.ed.Len())
	}
	if c.stage == nil {
		t.Fatalf("stage not converted")
	}
	if !c.status.active(c.now()) || c.status.isErr {
		t.Fatalf("status %+v", c.status)
	}
}

func TestStageDroppedWithBitmap(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t)}
	c, _ := newTestController(t, gw)
	c.ed.Close()
	if c.stage != nil {
		t.Fatalf("stage kept after close")
	}
	if !c.quit {
		t.Fatalf("close did not end the window")
	}
}

func TestMouseIsTranslatedToCanvas(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t)}
	c, _ := newTestController(t, gw)
	// Middle drag by (10, 5) in window space pans by the same amount.
	c.mouse(mouse.Event{X: 50, Y: 50, Button: mouse.ButtonMiddle, Direction: mouse.DirPress})
	c.mouse(mouse.Event{X: 60, Y: 55, Direction: mouse.DirNone})
	if got := c.ed.Viewport().Pan; got.X != 10 || got.Y != 5 {
		t.Fatalf("pan %+v", got)
	}
	c.mouse(mouse.Event{X: 60, Y: 55, Button: mouse.ButtonMiddle, Direction: mouse.DirRelease})
	c.mouse(mouse.Event{X: 100, Y: 100, Direction: mouse.DirNone})
	c.key(key.Event{Code: key.CodeSpacebar, Rune: ' ', Direction: key.DirPress})
	p, err := c.ed.Points().At(0)
	if err != nil {
		t.Fatalf("no point added: %v", err)
	}
	s := c.ed.ToScreen(p)
	if math.Abs(s.X-100) > 1e-9 || math.Abs(s.Y-(100-toolbarHeight)) > 1e-9 {
		t.Fatalf("point lands at canvas %+v", s)
	}
}

func TestLeavingCanvasEndsPan(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t)}
	c, _ := newTestController(t, gw)
	c.mouse(mouse.Event{X: 50, Y: 50, Button: mouse.ButtonMiddle, Direction: mouse.DirPress})
	c.mouse(mouse.Event{X: 50, Y: 5, Direction: mouse.DirNone})
	if c.handler.Panning() {
		t.Fatalf("pan survived leaving the canvas")
	}
}

func TestReleaseOverToolbarEndsDrag(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[50,50]]`)}}
	c, _ := newTestController(t, gw)
	before, _ := c.ed.Points().At(0)
	s := c.ed.ToScreen(before)
	x, y := float32(s.X), float32(s.Y+toolbarHeight)
	c.mouse(mouse.Event{X: x, Y: y, Direction: mouse.DirNone})
	c.mouse(mouse.Event{X: x, Y: y, Button: mouse.ButtonLeft, Direction: mouse.DirPress})
	if c.handler.Dragging() != 0 {
		t.Fatalf("drag did not start: %d", c.handler.Dragging())
	}
	c.mouse(mouse.Event{X: x, Y: 5, Direction: mouse.DirNone})
	c.mouse(mouse.Event{X: x, Y: 5, Button: mouse.ButtonLeft, Direction: mouse.DirRelease})
	c.mouse(mouse.Event{X: 300, Y: 300, Direction: mouse.DirNone})
	if c.handler.Dragging() != -1 {
		t.Fatalf("drag survived release over the toolbar")
	}
	after, _ := c.ed.Points().At(0)
	if after != before {
		t.Fatalf("point moved to %+v", after)
	}
}

func TestToolbarButtons(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t)}
	c, _ := newTestController(t, gw)
	r := c.buttons[0].Rect()
	mid := r.Min.Add(r.Size().Div(2))
	ev := mouse.Event{X: float32(mid.X), Y: float32(mid.Y), Button: mouse.ButtonLeft}
	ev.Direction = mouse.DirPress
	c.mouse(ev)
	if c.pressed != 0 {
		t.Fatalf("pressed %d", c.pressed)
	}
	ev.Direction = mouse.DirRelease
	c.mouse(ev)
	if c.ed.Viewport().Zoom != 1.2 {
		t.Fatalf("zoom %v", c.ed.Viewport().Zoom)
	}
	st := c.paintState()
	if len(st.buttons) != len(c.buttons) || st.buttons[0].state != StateHover {
		t.Fatalf("button views %+v", st.buttons)
	}
}

func TestUndoButtonFollowsHistory(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[1,2]]`)}}
	c, _ := newTestController(t, gw)
	const undo = 3
	if st := c.paintState(); st.buttons[undo].state != StateDisabled {
		t.Fatalf("undo state %v with empty history", st.buttons[undo].state)
	}
	if err := c.ed.Remove(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if st := c.paintState(); st.buttons[undo].state != StateDefault {
		t.Fatalf("undo state %v after edit", st.buttons[undo].state)
	}
	r := c.buttons[undo].Rect()
	mid := r.Min.Add(r.Size().Div(2))
	ev := mouse.Event{X: float32(mid.X), Y: float32(mid.Y), Button: mouse.ButtonLeft, Direction: mouse.DirPress}
	c.mouse(ev)
	ev.Direction = mouse.DirRelease
	c.mouse(ev)
	if c.ed.Len() != 1 {
		t.Fatalf("len %d after undo", c.ed.Len())
	}
	if st := c.paintState(); st.buttons[undo].state != StateDisabled {
		t.Fatalf("undo state %v after history drained", st.buttons[undo].state)
	}
}

func TestSaveClosesAndReports(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[1,2],[3,4]]`)}}
	c, _ := newTestController(t, gw)
	var saved editor.Session
	c.onSaved = func(s editor.Session) { saved = s }
	c.key(key.Event{Rune: 's', Code: key.CodeS, Modifiers: key.ModControl, Direction: key.DirPress})
	if gw.saved == nil || gw.saved.Len() != 2 {
		t.Fatalf("saved %v", gw.saved)
	}
	if saved.VolumeID != "abc" || saved.Slice != 3 {
		t.Fatalf("hook got %v", saved)
	}
	if !c.quit {
		t.Fatalf("window still open after save")
	}
}

func TestSaveFailureKeepsEdits(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[1,2]]`)}, saveErr: errors.New("boom")}
	c, _ := newTestController(t, gw)
	c.perform(editor.ActionSave)
	if c.quit || !c.ed.IsOpen() || c.ed.Len() != 1 {
		t.Fatalf("quit=%v open=%v len=%d", c.quit, c.ed.IsOpen(), c.ed.Len())
	}
	if !c.status.isErr || !c.status.active(c.now().Add(time.Hour)) {
		t.Fatalf("save error not shown: %+v", c.status)
	}
}

func TestCopyAndPastePoints(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[1,2]]`)}}
	c, clip := newTestController(t, gw)
	c.perform(editor.ActionPastePoints)
	if c.status.message != "clipboard is empty" {
		t.Fatalf("status %q", c.status.message)
	}
	c.perform(editor.ActionCopyPoints)
	if clip.points == nil || clip.points.Len() != 1 {
		t.Fatalf("copied %v", clip.points)
	}
	clip.points = contour.New(contour.Pt(5, 5), contour.Pt(6, 6))
	c.perform(editor.ActionPastePoints)
	if c.ed.Len() != 2 {
		t.Fatalf("len %d after paste", c.ed.Len())
	}
	if !c.ed.Undo() || c.ed.Len() != 1 {
		t.Fatalf("paste not undoable")
	}
}

func TestCopyFrame(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t)}
	c, clip := newTestController(t, gw)
	c.perform(editor.ActionCopyFrame)
	if clip.img == nil {
		t.Fatalf("nothing copied")
	}
	if got := clip.img.Bounds(); got != image.Rect(0, 0, 500, 500) {
		t.Fatalf("frame bounds %v", got)
	}
}

func TestSliceNavigationKeepsViewport(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{
		3: []byte(`[[1,2]]`),
		4: []byte(`[[1,2],[3,4],[5,6]]`),
	}}
	c, _ := newTestController(t, gw)
	c.ed.Viewport().ZoomIn()
	c.perform(editor.ActionNextSlice)
	if c.ed.Session().Slice != 4 || c.ed.Len() != 3 {
		t.Fatalf("session %v len %d", c.ed.Session(), c.ed.Len())
	}
	if c.ed.Viewport().Zoom != 1.2 {
		t.Fatalf("viewport reset on slice change")
	}
	c.perform(editor.ActionPrevSlice)
	c.perform(editor.ActionPrevSlice)
	c.perform(editor.ActionPrevSlice)
	c.perform(editor.ActionPrevSlice)
	if c.ed.Session().Slice != 0 {
		t.Fatalf("slice %d", c.ed.Session().Slice)
	}
}

func TestStatusExpiry(t *testing.T) {
	now := time.Unix(100, 0)
	var s status
	s.set("hello", false, now)
	if !s.active(now.Add(time.Second)) || s.active(now.Add(3*time.Second)) {
		t.Fatalf("info message lifetime wrong")
	}
	s.set("broken", true, now)
	if !s.active(now.Add(time.Hour)) {
		t.Fatalf("errors should persist")
	}
}

func TestDrawWindowPaintsChrome(t *testing.T) {
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[100,100]]`)}}
	c, _ := newTestController(t, gw)
	st := c.paintState()
	dst := image.NewRGBA(image.Rect(0, 0, st.width, st.height))
	var ch chrome
	ch.drawWindow(context.Background(), dst, st, time.Now())
	th := theme.Default()
	if got := dst.RGBAAt(st.width-1, 1); got != th.ToolbarBackground {
		t.Fatalf("toolbar colour %v", got)
	}
	if got := dst.RGBAAt(st.width-1, st.height-1); got != th.StatusBackground {
		t.Fatalf("status colour %v", got)
	}
	p := c.ed.ToScreen(contour.Pt(100, 100))
	if got := dst.RGBAAt(int(p.X+0.5), int(p.Y+0.5)+toolbarHeight); got != th.Marker {
		t.Fatalf("marker colour %v", got)
	}
	if len(ch.buttons) != len(c.buttons) {
		t.Fatalf("cached %d buttons", len(ch.buttons))
	}
}

func TestCancelledContextFailsLoads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gw := &fakeGateway{image: pngBytes(t), payload: map[int][]byte{3: []byte(`[[1,2]]`)}}
	a := New(gw, editor.Session{VolumeID: "abc", Slice: 3}, WithContext(ctx))
	c := a.newController(a.baseContext())
	c.resize(500, 500+toolbarHeight+statusHeight)
	if err := c.open(a.Session); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !c.status.isErr {
		t.Fatalf("load ignored the cancelled context: %+v", c.status)
	}
	if c.ed.Bitmap() != nil {
		t.Fatalf("bitmap kept after cancelled load")
	}
}

func TestBaseContextDefaultsToBackground(t *testing.T) {
	a := New(&fakeGateway{}, editor.Session{VolumeID: "abc", Slice: 3})
	if a.baseContext() != context.Background() {
		t.Fatalf("unexpected base context")
	}
}
