//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"errors"
	"os"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Without cgo the clipboard is an X11 selection owned by a hidden window.
// Writing replaces the offer; reading asks the current owner through a
// short-lived second connection so the owner's event loop is never blocked.

var (
	initOnce sync.Once
	initErr  error
	owner    *selectionOwner
)

var errTargetRefused = errors.New("clipboard owner refused the target")

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		owner, initErr = newSelectionOwner()
	})
	return initErr
}

func writeImage(png []byte) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return owner.publish(offer{owner.atoms[atomPNG]: png})
}

func writeText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	data := []byte(text)
	return owner.publish(offer{
		owner.atoms[atomUTF8]:      data,
		owner.atoms[atomTextPlain]: data,
		xproto.AtomString:          data,
	})
}

func readText() (string, error) {
	if err := ensureInit(); err != nil {
		return "", err
	}
	var data []byte
	var err error
	for _, target := range []xproto.Atom{owner.atoms[atomUTF8], xproto.AtomString} {
		if data, err = owner.request(target); err == nil {
			break
		}
	}
	if err != nil {
		return "", err
	}
	// STRING replies from some owners end in NUL.
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}
	return string(data), nil
}

const (
	atomClipboard = iota
	atomTargets
	atomUTF8
	atomTextPlain
	atomPNG
	atomProperty
	numAtoms
)

var atomNames = [numAtoms]string{
	atomClipboard: "CLIPBOARD",
	atomTargets:   "TARGETS",
	atomUTF8:      "UTF8_STRING",
	atomTextPlain: "text/plain;charset=utf-8",
	atomPNG:       "image/png",
	atomProperty:  "SLICECONTOUR_CLIPBOARD",
}

// offer maps each target atom to the bytes served for it.
type offer map[xproto.Atom][]byte

type selectionOwner struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  [numAtoms]xproto.Atom

	mu      sync.RWMutex
	current offer
}

func newSelectionOwner() (*selectionOwner, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	o := &selectionOwner{conn: conn}
	for i, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, err
		}
		o.atoms[i] = reply.Atom
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	if o.window, err = xproto.NewWindowId(conn); err != nil {
		conn.Close()
		return nil, err
	}
	mask := []uint32{xproto.EventMaskPropertyChange}
	err = xproto.CreateWindowChecked(conn, screen.RootDepth, o.window, screen.Root,
		0, 0, 1, 1, 0, xproto.WindowClassInputOutput, screen.RootVisual, xproto.CwEventMask, mask).Check()
	if err != nil {
		conn.Close()
		return nil, err
	}
	go o.serve()
	return o, nil
}

func (o *selectionOwner) publish(of offer) error {
	o.mu.Lock()
	o.current = of
	o.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(o.conn, o.window, o.atoms[atomClipboard], xproto.TimeCurrentTime).Check()
}

func (o *selectionOwner) serve() {
	for {
		ev, err := o.conn.WaitForEvent()
		if err != nil {
			return
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			o.answer(e)
		case xproto.SelectionClearEvent:
			o.mu.Lock()
			o.current = nil
			o.mu.Unlock()
		}
	}
}

// reply returns the property type, format and data for target, or ok=false
// when nothing is offered under it.
func (o *selectionOwner) reply(target xproto.Atom) (typ xproto.Atom, format byte, data []byte, ok bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if target == o.atoms[atomTargets] {
		list := make([]byte, 0, 4*(len(o.current)+1))
		list = appendAtom(list, target)
		for a := range o.current {
			list = appendAtom(list, a)
		}
		return xproto.AtomAtom, 32, list, true
	}
	data, ok = o.current[target]
	if !ok {
		return 0, 0, nil, false
	}
	if target == xproto.AtomString || target == o.atoms[atomTextPlain] {
		target = o.atoms[atomUTF8]
	}
	return target, 8, data, true
}

func (o *selectionOwner) answer(e xproto.SelectionRequestEvent) {
	prop := e.Property
	if prop == xproto.AtomNone {
		prop = e.Target
	}
	if typ, format, data, ok := o.reply(e.Target); ok {
		units := uint32(len(data)) / uint32(format/8)
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, prop, typ, format, units, data)
	} else {
		prop = xproto.AtomNone
	}
	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  prop,
	}
	xproto.SendEvent(o.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

// request converts the clipboard selection to target and returns the bytes
// the owner stored.
func (o *selectionOwner) request(target xproto.Atom) ([]byte, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	screen := xproto.Setup(conn).DefaultScreen(conn)
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}
	err = xproto.CreateWindowChecked(conn, 0, win, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		return nil, err
	}
	defer xproto.DestroyWindow(conn, win)

	prop := o.atoms[atomProperty]
	if err := xproto.ConvertSelectionChecked(conn, win, o.atoms[atomClipboard], target, prop, xproto.TimeCurrentTime).Check(); err != nil {
		return nil, err
	}
	for {
		ev, xerr := conn.WaitForEvent()
		if xerr != nil {
			return nil, xerr
		}
		n, ok := ev.(xproto.SelectionNotifyEvent)
		if !ok {
			continue
		}
		if n.Property == xproto.AtomNone {
			return nil, errTargetRefused
		}
		if n.Property != prop {
			continue
		}
		got, err := xproto.GetProperty(conn, true, win, prop, xproto.GetPropertyTypeAny, 0, 1<<30).Reply()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), got.Value...), nil
	}
}

func appendAtom(b []byte, a xproto.Atom) []byte {
	var w [4]byte
	xgb.Put32(w[:], uint32(a))
	return append(b, w[:]...)
}
