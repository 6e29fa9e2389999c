// Package editor holds the state of one contour editing session: the slice
// raster, the point collection and the viewport, plus the loader that fills
// them and the gesture handler that mutates them.
//
// An Editor is owned by a single goroutine. Loads may run elsewhere and are
// handed back through Apply, which discards results for a session that is
// no longer current.
package editor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/example/slicecontour/internal/contour"
	"github.com/example/slicecontour/internal/viewport"
)

// Session identifies the slice being edited.
type Session struct {
	VolumeID string
	Slice    int
}

// Validate checks the identifiers.
func (s Session) Validate() error {
	if s.VolumeID == "" {
		return errors.New("session: empty volume id")
	}
	if s.Slice < 0 {
		return fmt.Errorf("session: negative slice %d", s.Slice)
	}
	return nil
}

func (s Session) String() string {
	return fmt.Sprintf("%s/%d", s.VolumeID, s.Slice)
}

// Ticket ties a load to the generation it was started for.
type Ticket struct {
	Session Session
	gen     uint64
}

// Config holds the geometry constants.
type Config struct {
	BaseSize     int
	Calibration  viewport.Calibration
	Limits       viewport.Limits
	MarkerRadius float64
	// MinHitRadius is the smallest hit radius in screen pixels.
	MinHitRadius float64
	// UndoDepth bounds the undo history.
	UndoDepth int
}

// DefaultConfig returns the standard editor geometry.
func DefaultConfig() Config {
	return Config{
		BaseSize:     viewport.DefaultBaseSize,
		Calibration:  viewport.DefaultCalibration,
		Limits:       viewport.DefaultLimits(),
		MarkerRadius: 3,
		MinHitRadius: 4,
		UndoDepth:    100,
	}
}

// Option configures an Editor.
type Option func(*Editor)

// WithConfig replaces the geometry.
func WithConfig(c Config) Option {
	return func(e *Editor) { e.cfg = c }
}

// WithOnSaved sets the hook called after a successful save, once the editor
// has closed.
func WithOnSaved(fn func(Session)) Option {
	return func(e *Editor) { e.onSaved = fn }
}

// WithOnClose sets the hook called whenever the editor closes.
func WithOnClose(fn func()) Option {
	return func(e *Editor) { e.onClose = fn }
}

// Editor is the editing session state.
type Editor struct {
	cfg     Config
	gw      Gateway
	loader  *Loader
	onSaved func(Session)
	onClose func()

	session Session
	gen     uint64
	open    bool
	loading bool
	loadErr error

	bitmap *Bitmap
	points *contour.Collection
	view   *viewport.Viewport
	undo   []*contour.Collection
}

// New returns a closed editor backed by gw.
func New(gw Gateway, opts ...Option) *Editor {
	e := &Editor{
		cfg:    DefaultConfig(),
		gw:     gw,
		loader: NewLoader(gw),
		points: contour.New(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.cfg.BaseSize <= 0 {
		e.cfg.BaseSize = viewport.DefaultBaseSize
	}
	if e.cfg.Calibration.X == 0 || e.cfg.Calibration.Y == 0 {
		e.cfg.Calibration = viewport.DefaultCalibration
	}
	e.view = viewport.New(e.cfg.Limits)
	return e
}

// Loader returns the loader used by Reload.
func (e *Editor) Loader() *Loader { return e.loader }

// Config returns the geometry in use.
func (e *Editor) Config() Config { return e.cfg }

// Session returns the current session.
func (e *Editor) Session() Session { return e.session }

// IsOpen reports whether a session is open.
func (e *Editor) IsOpen() bool { return e.open }

// Loading reports whether a load is outstanding.
func (e *Editor) Loading() bool { return e.loading }

// LoadErr returns the error from the last applied load.
func (e *Editor) LoadErr() error { return e.loadErr }

// Bitmap returns the current raster, possibly nil.
func (e *Editor) Bitmap() *Bitmap { return e.bitmap }

// Points returns a copy of the points.
func (e *Editor) Points() *contour.Collection { return e.points.Clone() }

// Len reports the number of points.
func (e *Editor) Len() int { return e.points.Len() }

// Viewport returns the live viewport.
func (e *Editor) Viewport() *viewport.Viewport { return e.view }

// Open starts a new session with a fresh viewport. The returned ticket must
// be passed to Apply with the load result.
func (e *Editor) Open(s Session) (Ticket, error) {
	if err := s.Validate(); err != nil {
		return Ticket{}, err
	}
	e.view.Reset()
	return e.Begin(s), nil
}

// SetSlice switches to another slice of the open volume. The viewport is
// kept.
func (e *Editor) SetSlice(slice int) (Ticket, error) {
	if !e.open {
		return Ticket{}, ErrClosed
	}
	s := Session{VolumeID: e.session.VolumeID, Slice: slice}
	if err := s.Validate(); err != nil {
		return Ticket{}, err
	}
	return e.Begin(s), nil
}

// Begin makes s current and invalidates any load still in flight. The old
// raster is released and the points are cleared until Apply.
func (e *Editor) Begin(s Session) Ticket {
	e.gen++
	e.session = s
	e.open = true
	e.loading = true
	e.loadErr = nil
	e.dropBitmap()
	e.points = contour.New()
	e.undo = nil
	return Ticket{Session: s, gen: e.gen}
}

// Apply installs a load result. Results for an older generation or a closed
// editor are released and reported as false.
func (e *Editor) Apply(t Ticket, r LoadResult) bool {
	if !e.open || t.gen != e.gen {
		r.Bitmap.Release()
		return false
	}
	e.loading = false
	e.loadErr = r.Err
	e.dropBitmap()
	e.bitmap = r.Bitmap
	if r.Points != nil {
		e.points = r.Points
	} else {
		e.points = contour.New()
	}
	return true
}

// Reload loads the current session synchronously.
func (e *Editor) Reload(ctx context.Context) error {
	if !e.open {
		return ErrClosed
	}
	t := e.Begin(e.session)
	r := e.loader.Load(ctx, t.Session)
	e.Apply(t, r)
	return r.Err
}

// OpenAndLoad is Open followed by a synchronous load.
func (e *Editor) OpenAndLoad(ctx context.Context, s Session) error {
	if _, err := e.Open(s); err != nil {
		return err
	}
	return e.Reload(ctx)
}

// Save writes the points to the gateway. On success the editor closes and
// the OnSaved hook runs; on failure the edits are kept.
func (e *Editor) Save(ctx context.Context) error {
	if !e.open {
		return ErrClosed
	}
	s := e.session
	if err := e.gw.SaveContour(ctx, s.VolumeID, s.Slice, e.points.Clone()); err != nil {
		return &SaveError{Session: s, Err: err}
	}
	e.Close()
	if e.onSaved != nil {
		e.onSaved(s)
	}
	return nil
}

// Close discards the session. In-flight loads become stale.
func (e *Editor) Close() {
	wasOpen := e.open
	e.gen++
	e.open = false
	e.loading = false
	e.dropBitmap()
	e.points = contour.New()
	e.undo = nil
	if wasOpen && e.onClose != nil {
		e.onClose()
	}
}

func (e *Editor) dropBitmap() {
	e.bitmap.Release()
	e.bitmap = nil
}

// Checkpoint records the points so Undo can return to them.
func (e *Editor) Checkpoint() {
	e.undo = append(e.undo, e.points.Clone())
	if d := e.cfg.UndoDepth; d > 0 && len(e.undo) > d {
		e.undo = e.undo[len(e.undo)-d:]
	}
}

// Undo restores the last checkpoint.
func (e *Editor) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}
	e.points = e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	return true
}

// CanUndo reports whether a checkpoint exists.
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }

// ToContour maps a canvas position to contour space.
func (e *Editor) ToContour(s viewport.Vec) contour.Point {
	return e.view.ScreenToContour(s, e.cfg.Calibration)
}

// ToScreen maps a contour point to the canvas.
func (e *Editor) ToScreen(p contour.Point) viewport.Vec {
	return e.view.ContourToScreen(p, e.cfg.Calibration)
}

// AddAt appends the point under the canvas position s and returns its index.
func (e *Editor) AddAt(s viewport.Vec) int {
	e.Checkpoint()
	e.points.Append(e.ToContour(s))
	return e.points.Len() - 1
}

// MoveTo places point i under the canvas position s. It does not record a
// checkpoint; drags checkpoint once when they start.
func (e *Editor) MoveTo(i int, s viewport.Vec) error {
	return e.points.Update(i, e.ToContour(s))
}

// Remove deletes point i.
func (e *Editor) Remove(i int) error {
	if i < 0 || i >= e.points.Len() {
		return fmt.Errorf("remove %d: %w", i, contour.ErrIndex)
	}
	e.Checkpoint()
	return e.points.Remove(i)
}

// Replace swaps in a whole new collection.
func (e *Editor) Replace(c *contour.Collection) {
	e.Checkpoint()
	if c == nil {
		c = contour.New()
	}
	e.points = c.Clone()
}

// HitRadius is the screen distance within which a point counts as hit.
func (e *Editor) HitRadius() float64 {
	return math.Max(e.cfg.MarkerRadius*e.view.Zoom, e.cfg.MinHitRadius)
}

// HitTest returns the topmost point under s, or -1. Later points are drawn
// over earlier ones so the highest index wins.
func (e *Editor) HitTest(s viewport.Vec) int {
	r := e.HitRadius()
	pts := e.points.Points()
	for i := len(pts) - 1; i >= 0; i-- {
		p := e.ToScreen(pts[i])
		if math.Hypot(p.X-s.X, p.Y-s.Y) <= r {
			return i
		}
	}
	return -1
}
