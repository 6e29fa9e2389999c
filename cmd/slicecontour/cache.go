package main

import (
	"flag"
	"fmt"

	"github.com/example/slicecontour/internal/cache"
)

type cacheCmd struct {
	*root
	fs *flag.FlagSet
}

func (c *cacheCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseCacheCmd(args []string, r *root) (*cacheCmd, error) {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	c := &cacheCmd{root: r, fs: fs}
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{of: c}
	}
	switch fs.Arg(0) {
	case "prune", "clear":
	default:
		return nil, usageErrorf(c, "unknown cache command: %s", fs.Arg(0))
	}
	return c, nil
}

func (c *cacheCmd) Run() error {
	path := c.config.Cache.Path
	if path == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	s, err := cache.Open(path, cache.Options{TTL: c.config.Cache.TTL, MaxEntries: c.config.Cache.MaxEntries})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := c.context()
	defer cancel()
	switch c.fs.Arg(0) {
	case "prune":
		n, err := s.Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "removed %d expired entries\n", n)
	case "clear":
		if err := s.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "cleared %s\n", path)
	}
	return nil
}
