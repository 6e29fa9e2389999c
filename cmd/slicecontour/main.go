package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/example/slicecontour/internal/cache"
	"github.com/example/slicecontour/internal/config"
	"github.com/example/slicecontour/internal/editor"
	"github.com/example/slicecontour/internal/gateway"
	"github.com/example/slicecontour/internal/notify"
	"github.com/example/slicecontour/internal/theme"
	"github.com/example/slicecontour/internal/viewport"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs          *flag.FlagSet
	program     string
	config      *config.Config
	notifier    *notify.Notifier
	apiURL      string
	themeName   string
	noCache     bool
	saveAlerts  bool
	copyAlerts  bool
	errorAlerts bool
	activeTheme *theme.Theme

	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// newTokenStore is swapped in tests.
	newTokenStore func(account string) gateway.TokenStore
	store         *cache.Store
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}
	return newRootWith(cfg, os.Stdout, os.Stderr, os.Getenv)
}

func newRootWith(cfg *config.Config, stdout, stderr io.Writer, getenv func(string) string) *root {
	r := &root{
		fs:       flag.NewFlagSet("slicecontour", flag.ContinueOnError),
		program:  "slicecontour",
		config:   cfg,
		notifier: notify.New(notify.LoadPreferences(getenv)),
		stdout:   stdout,
		stderr:   stderr,
		getenv:   getenv,
		newTokenStore: func(account string) gateway.TokenStore {
			return gateway.NewKeyringStore(account)
		},
	}
	r.fs.SetOutput(stderr)
	r.fs.StringVar(&r.apiURL, "api", "", "contour service base URL (overrides "+config.EnvAPIURL+")")
	r.fs.StringVar(&r.themeName, "theme", "", "colour theme to use (light, dark or a [theme.name] from the config)")
	r.fs.BoolVar(&r.noCache, "no-cache", !cfg.Cache.Enabled, "bypass the local raster cache")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving a contour")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.errorAlerts, "notify-error", cfg.Notify.Error, "show a desktop notification when loading or saving fails")
	return r
}

func (r *root) Run(args []string) error {
	if err := parseFlags(r.fs, r, args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	r.notifier.Enable(notify.EventSave, r.saveAlerts)
	r.notifier.Enable(notify.EventCopy, r.copyAlerts)
	r.notifier.Enable(notify.EventError, r.errorAlerts)
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "render":
		cmd, err = parseRenderCmd(subArgs, r)
	case "points":
		cmd, err = parsePointsCmd(subArgs, r)
	case "upload":
		cmd, err = parseUploadCmd(subArgs, r)
	case "predict":
		cmd, err = parsePredictCmd(subArgs, r)
	case "profile":
		cmd, err = parseProfileCmd(subArgs, r)
	case "login":
		cmd, err = parseLoginCmd(subArgs, r)
	case "register":
		cmd, err = parseRegisterCmd(subArgs, r)
	case "logout":
		cmd, err = parseLogoutCmd(subArgs, r)
	case "cache":
		cmd, err = parseCacheCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "interactive":
		cmd = &interactiveCmd{r: r, in: os.Stdin}
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	defer r.closeCache()
	return cmd.Run()
}

func (r *root) resolveTheme() *theme.Theme {
	name := r.config.ResolveTheme(r.themeName, r.getenv)
	if t, ok := r.config.LookupTheme(name); ok {
		return t
	}
	t, err := theme.NewLoader().Load(name)
	if err != nil {
		if name != "" && name != "default" {
			fmt.Fprintf(r.stderr, "warning: failed to load theme '%s': %v. using default.\n", name, err)
		}
		return theme.Default()
	}
	return t
}

// editorConfig maps the [editor] section onto the editor geometry.
func (r *root) editorConfig() editor.Config {
	e := r.config.Editor
	cfg := editor.DefaultConfig()
	cfg.BaseSize = e.BaseSize
	cfg.Calibration = viewport.Calibration{X: e.CalibrationX, Y: e.CalibrationY}
	cfg.Limits = viewport.Limits{Min: e.MinZoom, Max: e.MaxZoom, Step: e.ZoomStep}
	cfg.MarkerRadius = e.MarkerRadius
	return cfg
}

func (r *root) openCache() cache.Cache {
	if r.noCache {
		return cache.Nop{}
	}
	if r.store != nil {
		return r.store
	}
	path := r.config.Cache.Path
	if path == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			log.Printf("cache: %v", err)
			return cache.Nop{}
		}
		path = p
	}
	s, err := cache.Open(path, cache.Options{TTL: r.config.Cache.TTL, MaxEntries: r.config.Cache.MaxEntries})
	if err != nil {
		log.Printf("cache: %v", err)
		return cache.Nop{}
	}
	r.store = s
	return s
}

func (r *root) closeCache() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		log.Printf("cache: %v", err)
	}
	r.store = nil
}

// client builds the service client from flags, env and config.
func (r *root) client() (*gateway.Client, error) {
	base := r.config.ResolveAPIURL(r.apiURL, r.getenv)
	return gateway.New(base,
		gateway.WithTokenStore(r.newTokenStore(strings.TrimRight(base, "/"))),
		gateway.WithCache(r.openCache()),
	)
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// context is cancelled by an interrupt.
func (r *root) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
