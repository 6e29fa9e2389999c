// Package appstate hosts the contour editor in a shiny window.
package appstate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/slicecontour/internal/editor"
	"github.com/example/slicecontour/internal/notify"
	"github.com/example/slicecontour/internal/render"
	"github.com/example/slicecontour/internal/theme"
)

// AppState holds application configuration for the UI.
type AppState struct {
	Gateway editor.Gateway
	Session editor.Session
	Config  editor.Config
	Theme   *theme.Theme
	Outline bool

	ctx       context.Context
	notifier  *notify.Notifier
	clip      Clipboard
	onSaved   func(editor.Session)
	onClose   func()
	closeOnce sync.Once
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithContext bounds the window's loads and saves. Cancelling ctx closes the
// window.
func WithContext(ctx context.Context) Option { return func(a *AppState) { a.ctx = ctx } }

// WithConfig sets the editor geometry.
func WithConfig(c editor.Config) Option { return func(a *AppState) { a.Config = c } }

// WithTheme sets the window colours.
func WithTheme(t *theme.Theme) Option { return func(a *AppState) { a.Theme = t } }

// WithOutline draws the polygon through the points.
func WithOutline(on bool) Option { return func(a *AppState) { a.Outline = on } }

// WithNotifier sets the desktop notifier.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.notifier = n } }

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option { return func(a *AppState) { a.clip = c } }

// WithOnSaved registers a callback invoked after the contour is stored.
func WithOnSaved(fn func(editor.Session)) Option { return func(a *AppState) { a.onSaved = fn } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState editing s through gw.
func New(gw editor.Gateway, s editor.Session, opts ...Option) *AppState {
	a := &AppState{
		Gateway: gw,
		Session: s,
		Config:  editor.DefaultConfig(),
		Theme:   theme.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Style derives the canvas style from the theme.
func (a *AppState) Style() render.Style {
	st := render.DefaultStyle()
	if a.Theme != nil {
		st.Background = a.Theme.Stage
		st.Marker = a.Theme.Marker
		st.Highlight = a.Theme.MarkerHighlight
		st.Outline = a.Theme.Outline
		st.Text = a.Theme.Foreground
	}
	st.MarkerRadius = a.Config.MarkerRadius
	st.ShowOutline = a.Outline
	return st
}

func (a *AppState) baseContext() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

func (a *AppState) newController(ctx context.Context) *controller {
	c := newController(ctx, a.Gateway, a.Config, a.Theme, a.Style())
	c.notifier = a.notifier
	c.onSaved = a.onSaved
	if a.clip != nil {
		c.clip = a.clip
	}
	return c
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() error {
	if err := a.Session.Validate(); err != nil {
		return err
	}
	driver.Main(a.Main)
	return nil
}

func (a *AppState) Main(s screen.Screen) {
	parent := a.baseContext()
	ctx, cancelLoads := context.WithCancel(parent)
	defer cancelLoads()

	c := a.newController(ctx)
	width := a.Config.BaseSize
	if width < 480 {
		width = 480
	}
	height := a.Config.BaseSize + toolbarHeight + statusHeight
	w, err := s.NewWindow(&screen.NewWindowOptions{
		Width:  width,
		Height: height,
		Title:  fmt.Sprintf("slicecontour - %s", a.Session),
	})
	if err != nil {
		log.Printf("new window: %v", err)
		return
	}
	defer w.Release()
	defer a.notifyClose()
	defer c.handler.Detach()

	stopWatch := context.AfterFunc(parent, func() { w.Send(interruptEvent{}) })
	defer stopWatch()

	c.resize(width, height)
	c.load = func(t editor.Ticket) {
		loader := c.ed.Loader()
		go func() {
			w.Send(loadedEvent{ticket: t, result: loader.Load(ctx, t.Session)})
		}()
	}
	if err := c.open(a.Session); err != nil {
		log.Printf("open: %v", err)
		return
	}

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	defer close(paintCh)
	go func() {
		var ch chrome
		for st := range paintCh {
			pctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			ch.drawFrame(pctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if pctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			cancel()
		}
	}()
	stopPaint := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	var expiry time.Time
	for {
		if c.quit {
			stopPaint()
			return
		}
		redraw := false
		switch e := w.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				stopPaint()
				c.ed.Close()
				return
			}
			if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
				redraw = c.handler.Focus(false)
			}
		case interruptEvent:
			stopPaint()
			c.ed.Close()
			return
		case size.Event:
			c.resize(e.WidthPx, e.HeightPx)
			redraw = true
		case loadedEvent:
			redraw = c.loaded(e)
		case mouse.Event:
			redraw = c.mouse(e)
		case key.Event:
			redraw = c.key(e)
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil {
				if dropCount < frameDropThreshold {
					paintCancel()
					dropCount++
				}
			}
			paintMu.Unlock()
			st := c.paintState()
			select {
			case paintCh <- st:
			default:
				select {
				case <-paintCh:
				default:
				}
				paintCh <- st
			}
		case error:
			log.Printf("window: %v", e)
		}
		if u := c.status.until; !u.IsZero() && u != expiry {
			expiry = u
			time.AfterFunc(time.Until(u), func() { w.Send(paint.Event{}) })
		}
		if redraw {
			w.Send(paint.Event{})
		}
	}
}
