package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/example/slicecontour/internal/appstate"
	"github.com/example/slicecontour/internal/editor"
)

type editCmd struct {
	*root
	fs      *flag.FlagSet
	target  sessionFlags
	outline bool
}

func (c *editCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	c := &editCmd{root: r, fs: fs}
	c.target.register(fs)
	fs.BoolVar(&c.outline, "outline", r.config.Editor.ShowOutline, "draw the polygon through the points")
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if err := c.target.session().Validate(); err != nil {
		return nil, usageErrorf(c, "%v", err)
	}
	return c, nil
}

func (c *editCmd) Run() error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	st := appstate.New(client, c.target.session(),
		appstate.WithContext(ctx),
		appstate.WithConfig(c.editorConfig()),
		appstate.WithTheme(c.activeTheme),
		appstate.WithOutline(c.outline),
		appstate.WithNotifier(c.notifier),
		appstate.WithOnSaved(func(s editor.Session) {
			if err := client.InvalidatePrediction(ctx, s.VolumeID, s.Slice); err != nil {
				log.Printf("cache: %v", err)
			}
			fmt.Fprintf(c.stdout, "saved contour for %s\n", s)
		}),
	)
	return st.Run()
}
