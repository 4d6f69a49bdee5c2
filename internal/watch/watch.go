// Package watch re-runs the pipeline when the export files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Napageneral/sigmd/internal/importer"
	"github.com/Napageneral/sigmd/internal/logging"
)

// Options configures a watch session.
type Options struct {
	Folder   string
	Debounce time.Duration
	Log      logging.Logger
}

// sourceFiles are the export files worth reacting to. Everything else in the
// folder (attachment blobs, temp files) is noise.
var sourceFiles = map[string]bool{
	importer.ConversationsFilename: true,
	importer.MessagesFilename:      true,
	importer.AttachmentsFilename:   true,
}

// Watch runs fn once, then again (debounced) every time one of the export
// CSVs in the folder changes. It blocks until ctx is canceled.
func Watch(ctx context.Context, opts Options, fn func()) error {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(opts.Folder); err != nil {
		return fmt.Errorf("watch %s: %w", opts.Folder, err)
	}

	opts.Log.Info("watching export folder", "folder", opts.Folder, "debounce", opts.Debounce.String())

	fn()

	var debounceTimer *time.Timer
	trigger := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(opts.Debounce, fn)
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if sourceFiles[filepath.Base(event.Name)] {
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Log.Warn("watch error", "error", err)
		}
	}
}
