package theme

import (
	"image/color"
)

// Theme defines the colours of the editor window and the contour overlay.
type Theme struct {
	Name string

	// Window
	Background color.RGBA // Behind the stage
	Foreground color.RGBA // Main text colour

	// Toolbar & status bar
	ToolbarBackground color.RGBA
	StatusBackground  color.RGBA
	StatusText        color.RGBA
	StatusError       color.RGBA

	// Toolbar buttons
	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA
	ButtonText            color.RGBA
	ButtonBorder          color.RGBA

	// Stage & contour
	Stage           color.RGBA
	Marker          color.RGBA
	MarkerHighlight color.RGBA
	Outline         color.RGBA
}

// Default returns the hardcoded default light theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:                  "Default",
		Background:            color.RGBA{220, 220, 220, 255},
		Foreground:            color.RGBA{0, 0, 0, 255},
		ToolbarBackground:     color.RGBA{220, 220, 220, 255},
		StatusBackground:      color.RGBA{200, 200, 200, 255},
		StatusText:            color.RGBA{0, 0, 0, 255},
		StatusError:           color.RGBA{176, 0, 32, 255},
		ButtonBackground:      color.RGBA{200, 200, 200, 255},
		ButtonBackgroundHover: color.RGBA{180, 180, 180, 255},
		ButtonBackgroundPress: color.RGBA{150, 150, 150, 255},
		ButtonText:            color.RGBA{0, 0, 0, 255},
		ButtonBorder:          color.RGBA{0, 0, 0, 255},
		Stage:                 color.RGBA{255, 255, 255, 255},
		Marker:                color.RGBA{255, 0, 0, 255},
		MarkerHighlight:       color.RGBA{255, 200, 0, 255},
		Outline:               color.RGBA{255, 0, 0, 160},
	}
}
