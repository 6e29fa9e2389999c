// Package notify raises desktop notifications for editor events.
package notify

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/example/slicecontour/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave fires after a contour is stored by the service.
	EventSave Event = "save"
	// EventCopy fires when a frame or the point list reaches the clipboard.
	EventCopy Event = "copy"
	// EventError fires when loading or saving fails.
	EventError Event = "error"
)

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "slicecontour",
		Events: map[Event]EventPreference{
			EventSave:  {Template: "Saved contour for %s"},
			EventCopy:  {Template: "Copied %s to clipboard"},
			EventError: {Template: "%s"},
		},
	}
}

// LoadPreferences reads overrides from the environment.
func LoadPreferences(getenv func(string) string) Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(getenv("SLICECONTOUR_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			eventPrefs := prefs.Events[event]
			eventPrefs.Template = v
			prefs.Events[event] = eventPrefs
		}
	}
	apply("SLICECONTOUR_NOTIFY_SAVE_TEXT", EventSave)
	apply("SLICECONTOUR_NOTIFY_COPY_TEXT", EventCopy)
	apply("SLICECONTOUR_NOTIFY_ERROR_TEXT", EventError)
	return prefs
}

// SendFunc delivers one notification.
type SendFunc func(title, body string, opts platform.Options) error

// Notifier sends OS-level notifications based on the configured preferences.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    SendFunc
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool), send: platform.Notify}
}

// WithSender replaces the platform backend.
func (n *Notifier) WithSender(send SendFunc) *Notifier {
	n.send = send
	return n
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Save reports a stored contour. preview may be nil.
func (n *Notifier) Save(session string, preview image.Image) {
	if !n.enabledFor(EventSave) {
		return
	}
	opts := platform.Options{}
	if preview != nil {
		if path, cleanup, err := createPreview(preview); err != nil {
			log.Printf("notification preview: %v", err)
		} else {
			defer cleanup()
			opts.IconPath = path
		}
	}
	n.dispatch(EventSave, session, opts)
}

// Copy sends a clipboard notification.
func (n *Notifier) Copy(detail string) {
	if !n.enabledFor(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	n.dispatch(EventCopy, detail, platform.Options{})
}

// Error reports a failure. Only the outermost message is shown.
func (n *Notifier) Error(err error) {
	if err == nil || !n.enabledFor(EventError) {
		return
	}
	msg := err.Error()
	if u := errors.Unwrap(err); u != nil {
		msg = strings.TrimSuffix(strings.TrimSuffix(msg, u.Error()), ": ")
	}
	if msg == "" {
		msg = err.Error()
	}
	n.dispatch(EventError, msg, platform.Options{Urgency: platform.UrgencyCritical})
}

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil {
		return false
	}
	if n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	template := strings.TrimSpace(n.template(event))
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	send := n.send
	if send == nil {
		send = platform.Notify
	}
	if err := send(n.prefs.Title, body, opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}

func (n *Notifier) template(event Event) string {
	if pref, ok := n.prefs.Events[event]; ok {
		return pref.Template
	}
	return ""
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "slicecontour-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove preview: %v", err)
		}
	}
	return path, cleanup, nil
}
