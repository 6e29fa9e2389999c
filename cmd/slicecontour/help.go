package main

import (
	"bytes"
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"text/template"
)

//go:embed templates/*.txt
var helpFS embed.FS

var (
	helpOnce sync.Once
	helpTmpl *template.Template
)

func parseHelpTemplates() {
	helpTmpl = template.Must(template.New("").Funcs(map[string]any{
		"flags": func(fs *flag.FlagSet) []flagInfo {
			result := []flagInfo{}
			if fs == nil {
				return result
			}
			fs.VisitAll(func(f *flag.Flag) {
				result = append(result, flagInfo{f.Name, f.DefValue, f.Usage})
			})
			return result
		},
	}).ParseFS(helpFS, "templates/*.txt"))
}

type flagInfo struct {
	Name     string
	DefValue string
	Usage    string
}

type HelpData interface {
	Program() string
	Template() string
	FlagSet() *flag.FlagSet
}

type UsageError struct {
	of  HelpData
	msg string
}

func (e *UsageError) Error() string {
	help, err := e.renderHelp()
	if err != nil {
		return err.Error()
	}
	if e.msg != "" {
		return e.msg + "\n\n" + help
	}
	return help
}

func (e *UsageError) renderHelp() (string, error) {
	helpOnce.Do(parseHelpTemplates)
	var buf bytes.Buffer
	err := helpTmpl.ExecuteTemplate(&buf, e.of.Template(), e.of)
	if err != nil {
		log.Printf("error rendering help template: %v", err)
		return "", err
	}
	return buf.String(), nil
}

// usageErrorf is a UsageError that leads with a reason.
func usageErrorf(of HelpData, format string, args ...any) *UsageError {
	return &UsageError{of: of, msg: fmt.Sprintf(format, args...)}
}

// parseFlags parses args into fs. -h yields the command's help as a
// UsageError.
func parseFlags(fs *flag.FlagSet, h HelpData, args []string) error {
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return &UsageError{of: h}
		}
		return usageErrorf(h, "%v", err)
	}
	return nil
}

func (r *root) Template() string {
	return "root.txt"
}

func (c *editCmd) Template() string {
	return "edit.txt"
}

func (c *renderCmd) Template() string {
	return "render.txt"
}

func (c *pointsCmd) Template() string {
	return "points.txt"
}

func (c *uploadCmd) Template() string {
	return "upload.txt"
}

func (c *predictCmd) Template() string {
	return "predict.txt"
}

func (c *profileCmd) Template() string {
	return "profile.txt"
}

func (c *loginCmd) Template() string {
	return "login.txt"
}

func (c *registerCmd) Template() string {
	return "register.txt"
}

func (c *logoutCmd) Template() string {
	return "logout.txt"
}

func (c *cacheCmd) Template() string {
	return "cache.txt"
}

func (c *configCmd) Template() string {
	return "config.txt"
}

func (i *interactiveCmd) Template() string {
	return "interactive.txt"
}

func (v *versionCmd) Template() string {
	return "version.txt"
}
