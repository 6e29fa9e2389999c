package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/example/slicecontour/internal/editor"
)

// sessionFlags are the -volume and -slice flags shared by the per-slice
// commands.
type sessionFlags struct {
	volume string
	slice  int
}

func (s *sessionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.volume, "volume", "", "volume UUID as returned by upload")
	fs.IntVar(&s.slice, "slice", 0, "slice index within the volume")
}

func (s sessionFlags) session() editor.Session {
	return editor.Session{VolumeID: s.volume, Slice: s.slice}
}

// openEditor loads s into a headless editor.
func (r *root) openEditor(ctx context.Context, s editor.Session) (*editor.Editor, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	ed := editor.New(client,
		editor.WithConfig(r.editorConfig()),
		editor.WithOnSaved(func(s editor.Session) {
			if err := client.InvalidatePrediction(ctx, s.VolumeID, s.Slice); err != nil {
				log.Printf("cache: %v", err)
			}
			r.notifier.Save(s.String(), nil)
		}),
	)
	if err := ed.OpenAndLoad(ctx, s); err != nil {
		ed.Close()
		return nil, err
	}
	return ed, nil
}

// defaultOutput names a file after the session inside save_dir.
func (r *root) defaultOutput(s editor.Session, ext string) string {
	name := fmt.Sprintf("%s-%d.%s", s.VolumeID, s.Slice, ext)
	if r.config.SaveDir == "" {
		return name
	}
	return filepath.Join(r.config.SaveDir, name)
}
