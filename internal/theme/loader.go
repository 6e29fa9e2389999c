package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no source holds the requested theme.
var ErrNotFound = errors.New("theme not found")

const themeExt = ".theme"

// Loader resolves a theme name against the embedded themes and then Dirs,
// first match wins. A name that points at an existing file is read as is.
type Loader struct {
	Dirs []string
}

// NewLoader searches the user's config directory and then the system share.
func NewLoader() *Loader {
	var dirs []string
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "slicecontour", "themes"))
	}
	dirs = append(dirs, "/usr/share/slicecontour/themes")
	return &Loader{Dirs: dirs}
}

// Load returns the named theme. An empty name or "default" is the built-in
// theme.
func (l *Loader) Load(name string) (*Theme, error) {
	if name == "" || strings.EqualFold(name, "default") {
		return Default(), nil
	}
	if st, err := os.Stat(name); err == nil && st.Mode().IsRegular() {
		return parseFrom(os.DirFS(filepath.Dir(name)), filepath.Base(name))
	}
	file := name
	if filepath.Ext(file) != themeExt {
		file += themeExt
	}
	for _, src := range l.sources() {
		t, err := parseFrom(src, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return t, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (l *Loader) sources() []fs.FS {
	out := make([]fs.FS, 0, len(l.Dirs)+1)
	if sub, err := fs.Sub(EmbeddedThemes, "defaults"); err == nil {
		out = append(out, sub)
	}
	for _, d := range l.Dirs {
		if d != "" {
			out = append(out, os.DirFS(d))
		}
	}
	return out
}

func parseFrom(fsys fs.FS, file string) (*Theme, error) {
	f, err := fsys.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", file, err)
	}
	return t, nil
}
