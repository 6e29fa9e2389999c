package main

import (
	"flag"
	"fmt"

	"github.com/example/slicecontour/internal/config"
)

type configCmd struct {
	*root
	fs *flag.FlagSet
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	c := &configCmd{root: r, fs: fs}
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}
	switch args[0] {
	case "print":
		fmt.Fprint(c.stdout, c.config.String())
		return nil
	case "save":
		path, err := config.NewLoader(version, configPathOverride).Save(c.config)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stderr, "Configuration saved to %s\n", path)
		return nil
	default:
		return usageErrorf(c, "unknown config command: %s", args[0])
	}
}
