package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/example/slicecontour/internal/appstate"
	"github.com/example/slicecontour/internal/clipboard"
	"github.com/example/slicecontour/internal/editor"
	"github.com/example/slicecontour/internal/render"
)

type renderCmd struct {
	*root
	fs          *flag.FlagSet
	target      sessionFlags
	output      string
	zoom        float64
	outline     bool
	toClipboard bool
}

func (c *renderCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	c := &renderCmd{root: r, fs: fs}
	c.target.register(fs)
	fs.StringVar(&c.output, "output", "", "PNG file to write (default <volume>-<slice>.png in save_dir)")
	fs.Float64Var(&c.zoom, "zoom", 1, "zoom factor, stepped and clamped like the editor")
	fs.BoolVar(&c.outline, "outline", r.config.Editor.ShowOutline, "draw the polygon through the points")
	fs.BoolVar(&c.toClipboard, "to-clipboard", false, "copy the frame to the clipboard instead of writing a file")
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if err := c.target.session().Validate(); err != nil {
		return nil, usageErrorf(c, "%v", err)
	}
	if c.zoom <= 0 {
		return nil, usageErrorf(c, "zoom must be positive")
	}
	return c, nil
}

func (c *renderCmd) Run() error {
	ctx, cancel := c.context()
	defer cancel()
	ed, err := c.openEditor(ctx, c.target.session())
	if err != nil {
		return err
	}
	defer ed.Close()

	ed.Viewport().StepTowards(c.zoom)

	img := c.renderEditor(ed, c.outline)
	if c.toClipboard {
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("copy frame: %w", err)
		}
		c.notifier.Copy("frame")
		fmt.Fprintln(c.stdout, "frame copied to clipboard")
		return nil
	}

	path := c.output
	if path == "" {
		path = c.defaultOutput(ed.Session(), "png")
	}
	if err := writePNG(path, img); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, path)
	return nil
}

// renderEditor draws the editor's stage at its base size.
func (r *root) renderEditor(ed *editor.Editor, outline bool) *image.RGBA {
	cfg := ed.Config()
	st := (&appstate.AppState{Theme: r.activeTheme, Config: cfg, Outline: outline}).Style()
	canvas := image.Rect(0, 0, cfg.BaseSize, cfg.BaseSize)
	dst := image.NewRGBA(canvas)
	var bm image.Image
	if b := ed.Bitmap(); b != nil {
		bm = b.Image()
	}
	render.Render(dst, render.Frame{
		Canvas:      canvas,
		Bitmap:      bm,
		View:        *ed.Viewport(),
		Calibration: cfg.Calibration,
		BaseSize:    cfg.BaseSize,
		Points:      ed.Points().Points(),
		Highlight:   -1,
		Style:       st,
	})
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("save: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save: closing file: %w", err)
	}
	return nil
}
