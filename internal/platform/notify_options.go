package platform

import "time"

// Urgency mirrors the freedesktop urgency levels.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// AppName identifies the sender. Empty means "slicecontour".
	AppName string
	// IconPath, when non-empty, points to an image file the notification center
	// should display with the notification if supported by the platform.
	IconPath string
	Urgency  Urgency
	// Timeout of zero lets the server decide.
	Timeout time.Duration
}

func (o Options) appName() string {
	if o.AppName == "" {
		return "slicecontour"
	}
	return o.AppName
}
