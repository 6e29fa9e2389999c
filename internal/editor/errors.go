package editor

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations that need an open session.
var ErrClosed = errors.New("editor is closed")

// Load stages.
const (
	StageImage   = "image"
	StageContour = "contour"
	StageDecode  = "decode"
)

// LoadError reports which part of opening a session failed.
type LoadError struct {
	Stage   string
	Session Session
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s %s: %v", e.Session, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError reports a failed save. The editor keeps its edits.
type SaveError struct {
	Session Session
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Session, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
