package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/slicecontour/internal/theme"
)

// Environment variables that override the file.
const (
	EnvAPIURL = "SLICECONTOUR_API_URL"
	EnvTheme  = "SLICECONTOUR_THEME"
)

// DefaultAPIURL is used when nothing else names the service.
const DefaultAPIURL = "http://localhost:8000/api/v1"

// Notify holds notification settings.
type Notify struct {
	Save  bool
	Copy  bool
	Error bool
}

// Editor holds the canvas geometry.
type Editor struct {
	BaseSize     int
	MinZoom      float64
	MaxZoom      float64
	ZoomStep     float64
	CalibrationX float64
	CalibrationY float64
	MarkerRadius float64
	ShowOutline  bool
}

// Cache holds the local raster cache settings.
type Cache struct {
	Enabled    bool
	Path       string
	TTL        time.Duration
	MaxEntries int
}

// Config holds the application configuration.
type Config struct {
	APIURL  string
	Theme   string
	SaveDir string
	Editor  Editor
	Cache   Cache
	Notify  Notify
	Themes  map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme: "", // Default to empty to allow fallback to Env/Default
		Editor: Editor{
			BaseSize:     500,
			MinZoom:      0.5,
			MaxZoom:      5,
			ZoomStep:     1.2,
			CalibrationX: 1.97,
			CalibrationY: 1.94,
			MarkerRadius: 3,
		},
		Cache: Cache{
			Enabled:    true,
			TTL:        24 * time.Hour,
			MaxEntries: 512,
		},
		Notify: Notify{
			Save:  false,
			Copy:  false,
			Error: true,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// ResolveAPIURL applies flag > env > file > default precedence.
func (c *Config) ResolveAPIURL(flagValue string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := getenv(EnvAPIURL); v != "" {
		return v
	}
	if c.APIURL != "" {
		return c.APIURL
	}
	return DefaultAPIURL
}

// ResolveTheme applies flag > env > file precedence. An empty result means
// the built-in default.
func (c *Config) ResolveTheme(flagValue string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := getenv(EnvTheme); v != "" {
		return v
	}
	return c.Theme
}

// LookupTheme returns a theme defined inline in the config file.
func (c *Config) LookupTheme(name string) (*theme.Theme, bool) {
	t, ok := c.Themes[name]
	return t, ok
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.APIURL != "" {
		fmt.Fprintf(&sb, "api_url = %s\n", c.APIURL)
	}
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "base_size = %d\n", c.Editor.BaseSize)
	fmt.Fprintf(&sb, "min_zoom = %g\n", c.Editor.MinZoom)
	fmt.Fprintf(&sb, "max_zoom = %g\n", c.Editor.MaxZoom)
	fmt.Fprintf(&sb, "zoom_step = %g\n", c.Editor.ZoomStep)
	fmt.Fprintf(&sb, "calibration_x = %g\n", c.Editor.CalibrationX)
	fmt.Fprintf(&sb, "calibration_y = %g\n", c.Editor.CalibrationY)
	fmt.Fprintf(&sb, "marker_radius = %g\n", c.Editor.MarkerRadius)
	fmt.Fprintf(&sb, "show_outline = %v\n", c.Editor.ShowOutline)
	sb.WriteString("\n")

	sb.WriteString("[cache]\n")
	fmt.Fprintf(&sb, "enabled = %v\n", c.Cache.Enabled)
	if c.Cache.Path != "" {
		fmt.Fprintf(&sb, "path = %s\n", c.Cache.Path)
	}
	fmt.Fprintf(&sb, "ttl = %s\n", c.Cache.TTL)
	fmt.Fprintf(&sb, "max_entries = %d\n", c.Cache.MaxEntries)
	sb.WriteString("\n")

	// Notify section
	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	fmt.Fprintf(&sb, "error = %v\n", c.Notify.Error)
	sb.WriteString("\n")

	// Themes sections
	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range theme.Fields(t) {
			fmt.Fprintf(&sb, "%s: %s\n", f.Name, theme.Hex(f.Color))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
