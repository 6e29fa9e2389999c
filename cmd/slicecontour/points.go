package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/slicecontour/internal/clipboard"
	"github.com/example/slicecontour/internal/contour"
	"github.com/example/slicecontour/internal/editor"
)

type pointsCmd struct {
	*root
	fs     *flag.FlagSet
	action string
	target sessionFlags
	format string
	file   string

	in io.Reader
}

func (c *pointsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

var pointsActions = map[string]bool{
	"get":   true,
	"save":  true,
	"stats": true,
	"copy":  true,
	"paste": true,
}

func parsePointsCmd(args []string, r *root) (*pointsCmd, error) {
	fs := flag.NewFlagSet("points", flag.ContinueOnError)
	c := &pointsCmd{root: r, fs: fs, in: os.Stdin}
	c.target.register(fs)
	fs.StringVar(&c.format, "format", "json", "point list format: json or yaml")
	fs.StringVar(&c.file, "file", "", "read from or write to this file instead of stdin/stdout")
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		if err := parseFlags(fs, c, args); err != nil {
			return nil, err
		}
		return nil, usageErrorf(c, "points needs an action: get, save, stats, copy or paste")
	}
	c.action = args[0]
	if !pointsActions[c.action] {
		return nil, usageErrorf(c, "unknown points action %q", c.action)
	}
	if err := parseFlags(fs, c, args[1:]); err != nil {
		return nil, err
	}
	if err := c.target.session().Validate(); err != nil {
		return nil, usageErrorf(c, "%v", err)
	}
	switch c.format {
	case "json", "yaml":
	default:
		return nil, usageErrorf(c, "unknown format %q", c.format)
	}
	return c, nil
}

func (c *pointsCmd) Run() error {
	ctx, cancel := c.context()
	defer cancel()
	ed, err := c.openEditor(ctx, c.target.session())
	if err != nil {
		return err
	}
	defer ed.Close()

	switch c.action {
	case "get":
		data, err := encodePoints(ed.Points(), c.format)
		if err != nil {
			return err
		}
		return c.write(data)
	case "stats":
		return printStats(c.stdout, contour.Summarize(ed.Points()))
	case "copy":
		if err := clipboard.WritePoints(ed.Points()); err != nil {
			return fmt.Errorf("copy points: %w", err)
		}
		c.notifier.Copy(fmt.Sprintf("%d points", ed.Len()))
		fmt.Fprintf(c.stdout, "copied %d points\n", ed.Len())
		return nil
	case "paste":
		pts, err := clipboard.ReadPoints()
		if err != nil {
			return fmt.Errorf("paste points: %w", err)
		}
		return c.save(ctx, ed, pts)
	case "save":
		data, err := c.read()
		if err != nil {
			return err
		}
		pts, err := decodePoints(data, c.format)
		if err != nil {
			return err
		}
		return c.save(ctx, ed, pts)
	}
	return nil
}

func (c *pointsCmd) save(ctx context.Context, ed *editor.Editor, pts *contour.Collection) error {
	ed.Replace(pts)
	s := ed.Session()
	if err := ed.Save(ctx); err != nil {
		c.notifier.Error(err)
		return err
	}
	fmt.Fprintf(c.stdout, "saved %d points for %s\n", pts.Len(), s)
	return nil
}

func (c *pointsCmd) read() ([]byte, error) {
	if c.file == "" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return nil, fmt.Errorf("read points: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(c.file)
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	return data, nil
}

func (c *pointsCmd) write(data []byte) error {
	if c.file == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.file, data, 0o644); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

func encodePoints(pts *contour.Collection, format string) ([]byte, error) {
	if format == "yaml" {
		data, err := yaml.Marshal(pts)
		if err != nil {
			return nil, fmt.Errorf("encode points: %w", err)
		}
		return data, nil
	}
	text, err := clipboard.FormatPoints(pts)
	if err != nil {
		return nil, err
	}
	return []byte(text + "\n"), nil
}

var errBadPair = errors.New("each point needs exactly two coordinates")

func decodePoints(data []byte, format string) (*contour.Collection, error) {
	if format != "yaml" {
		return clipboard.ParsePoints(string(data))
	}
	var pairs [][]float64
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&pairs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode points: %w", err)
	}
	pts := contour.New()
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("decode points: point %d: %w", i, errBadPair)
		}
		pts.Append(contour.Pt(p[0], p[1]))
	}
	return pts, nil
}

func printStats(w io.Writer, st contour.Stats) error {
	out := map[string]any{
		"count":     st.Count,
		"min":       []float64{st.MinX, st.MinY},
		"max":       []float64{st.MaxX, st.MaxY},
		"perimeter": st.Perimeter,
		"area":      st.Area,
		"centroid":  []float64{st.Centroid.X, st.Centroid.Y},
	}
	return printJSON(w, out)
}
