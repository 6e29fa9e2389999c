package editor

import (
	"unicode"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/slicecontour/internal/viewport"
)

// Action is a request the handler cannot fulfil itself and passes to the
// host.
type Action int

const (
	ActionNone Action = iota
	ActionSave
	ActionCancel
	ActionCopyFrame
	ActionCopyPoints
	ActionPastePoints
	ActionPrevSlice
	ActionNextSlice
)

func (a Action) String() string {
	switch a {
	case ActionSave:
		return "save"
	case ActionCancel:
		return "cancel"
	case ActionCopyFrame:
		return "copy"
	case ActionCopyPoints:
		return "copypoints"
	case ActionPastePoints:
		return "paste"
	case ActionPrevSlice:
		return "prevslice"
	case ActionNextSlice:
		return "nextslice"
	}
	return "none"
}

// KeyShortcut describes a keyboard combination.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

type keyCommand int

const (
	cmdAdd keyCommand = iota + 1
	cmdZoomIn
	cmdZoomOut
	cmdResetView
	cmdUndo
	cmdAction
)

type binding struct {
	cmd    keyCommand
	action Action
}

// defaultShortcuts maps keys to editor commands. Control combinations are
// bound by rune and by code since platforms differ in which they report.
func defaultShortcuts() map[KeyShortcut]binding {
	return map[KeyShortcut]binding{
		{Code: key.CodeSpacebar}:                              {cmd: cmdAdd},
		{Rune: '+'}:                                           {cmd: cmdZoomIn},
		{Rune: '+', Modifiers: key.ModShift}:                  {cmd: cmdZoomIn},
		{Rune: '='}:                                           {cmd: cmdZoomIn},
		{Code: key.CodeKeypadPlusSign}:                        {cmd: cmdZoomIn},
		{Rune: '-'}:                                           {cmd: cmdZoomOut},
		{Code: key.CodeKeypadHyphenMinus}:                     {cmd: cmdZoomOut},
		{Rune: '0'}:                                           {cmd: cmdResetView},
		{Rune: 'z', Modifiers: key.ModControl}:                {cmd: cmdUndo},
		{Rune: 's', Modifiers: key.ModControl}:                {cmd: cmdAction, action: ActionSave},
		{Code: key.CodeEscape}:                                {cmd: cmdAction, action: ActionCancel},
		{Rune: 'c', Modifiers: key.ModControl}:                {cmd: cmdAction, action: ActionCopyFrame},
		{Rune: 'c', Modifiers: key.ModControl | key.ModShift}: {cmd: cmdAction, action: ActionCopyPoints},
		{Rune: 'v', Modifiers: key.ModControl}:                {cmd: cmdAction, action: ActionPastePoints},
		{Code: key.CodePageUp}:                                {cmd: cmdAction, action: ActionPrevSlice},
		{Code: key.CodePageDown}:                              {cmd: cmdAction, action: ActionNextSlice},

		{Code: key.CodeZ, Modifiers: key.ModControl}:                {cmd: cmdUndo},
		{Code: key.CodeS, Modifiers: key.ModControl}:                {cmd: cmdAction, action: ActionSave},
		{Code: key.CodeC, Modifiers: key.ModControl}:                {cmd: cmdAction, action: ActionCopyFrame},
		{Code: key.CodeC, Modifiers: key.ModControl | key.ModShift}: {cmd: cmdAction, action: ActionCopyPoints},
		{Code: key.CodeV, Modifiers: key.ModControl}:                {cmd: cmdAction, action: ActionPastePoints},
	}
}

// Handler turns pointer and keyboard events, in canvas coordinates, into
// editor mutations. Gesture state lives here and is cleared by Detach.
type Handler struct {
	ed   *Editor
	keys map[KeyShortcut]binding

	pointer     viewport.Vec
	havePointer bool

	panning bool
	panLast viewport.Vec

	dragging int
	grab     viewport.Vec

	hover int
}

// NewHandler attaches a handler to ed.
func NewHandler(ed *Editor) *Handler {
	return &Handler{ed: ed, keys: defaultShortcuts(), dragging: -1, hover: -1}
}

// Hover returns the index under the pointer or -1.
func (h *Handler) Hover() int { return h.hover }

// Dragging returns the index being dragged or -1.
func (h *Handler) Dragging() int { return h.dragging }

// Panning reports whether a pan is in progress.
func (h *Handler) Panning() bool { return h.panning }

// Highlight is the point the renderer should emphasise.
func (h *Handler) Highlight() int {
	if h.dragging >= 0 {
		return h.dragging
	}
	return h.hover
}

// Pointer returns the last known pointer position.
func (h *Handler) Pointer() (viewport.Vec, bool) { return h.pointer, h.havePointer }

// Mouse handles one pointer event and reports whether a redraw is needed.
func (h *Handler) Mouse(e mouse.Event) bool {
	if !h.ed.IsOpen() {
		return false
	}
	pos := viewport.Vec{X: float64(e.X), Y: float64(e.Y)}
	h.pointer = pos
	h.havePointer = true

	switch e.Direction {
	case mouse.DirStep:
		switch e.Button {
		case mouse.ButtonWheelUp:
			h.ed.Viewport().ZoomIn()
			return true
		case mouse.ButtonWheelDown:
			h.ed.Viewport().ZoomOut()
			return true
		}
		return false

	case mouse.DirPress:
		switch e.Button {
		case mouse.ButtonMiddle:
			h.panning = true
			h.panLast = pos
			return false
		case mouse.ButtonLeft:
			idx := h.ed.HitTest(pos)
			if idx < 0 {
				return false
			}
			p, _ := h.ed.points.At(idx)
			h.ed.Checkpoint()
			h.dragging = idx
			h.grab = pos.Sub(h.ed.ToScreen(p))
			return true
		case mouse.ButtonRight:
			idx := h.ed.HitTest(pos)
			if idx < 0 {
				return false
			}
			if err := h.ed.Remove(idx); err != nil {
				return false
			}
			h.hover = -1
			if h.dragging >= 0 {
				h.dragging = -1
			}
			return true
		}
		return false

	case mouse.DirRelease:
		switch e.Button {
		case mouse.ButtonMiddle:
			h.panning = false
		case mouse.ButtonLeft:
			if h.dragging >= 0 {
				h.dragging = -1
				return true
			}
		}
		return false

	case mouse.DirNone:
		if h.panning {
			h.ed.Viewport().PanBy(pos.Sub(h.panLast))
			h.panLast = pos
			return true
		}
		if h.dragging >= 0 {
			_ = h.ed.MoveTo(h.dragging, pos.Sub(h.grab))
			return true
		}
		hover := h.ed.HitTest(pos)
		if hover != h.hover {
			h.hover = hover
			return true
		}
	}
	return false
}

// Key handles one key event. It reports whether a redraw is needed and any
// action the host must perform.
func (h *Handler) Key(e key.Event) (bool, Action) {
	if !h.ed.IsOpen() || e.Direction == key.DirRelease {
		return false, ActionNone
	}
	b, ok := h.keys[KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: e.Modifiers}]
	if !ok || e.Rune <= 0 {
		b, ok = h.keys[KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}]
	}
	if !ok {
		return false, ActionNone
	}
	switch b.cmd {
	case cmdAdd:
		if !h.havePointer {
			return false, ActionNone
		}
		h.ed.AddAt(h.pointer)
		return true, ActionNone
	case cmdZoomIn:
		h.ed.Viewport().ZoomIn()
		return true, ActionNone
	case cmdZoomOut:
		h.ed.Viewport().ZoomOut()
		return true, ActionNone
	case cmdResetView:
		h.ed.Viewport().Reset()
		return true, ActionNone
	case cmdUndo:
		h.dragging = -1
		return h.ed.Undo(), ActionNone
	case cmdAction:
		return false, b.action
	}
	return false, ActionNone
}

// Leave ends any pan or drag when the pointer leaves the canvas. A release
// outside the canvas is never delivered here, so the drag cannot wait for it.
func (h *Handler) Leave() bool {
	changed := h.hover >= 0 || h.dragging >= 0
	h.panning = false
	h.dragging = -1
	h.hover = -1
	return changed
}

// Focus handles focus changes. Losing focus ends any gesture.
func (h *Handler) Focus(focused bool) bool {
	if focused {
		return false
	}
	dragging := h.dragging >= 0
	h.Detach()
	return dragging
}

// Detach clears all gesture state. Hosts call it on every exit path.
func (h *Handler) Detach() {
	h.panning = false
	h.dragging = -1
	h.hover = -1
	h.havePointer = false
}
