package fixture

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads snapshot documents when their files change in dir until
// ctx is cancelled. The replay document is ignored. dir must be the
// directory the store reads from.
func (s *Store) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fixture watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch fixture dir %s: %w", dir, err)
	}
	s.logger.Info("fixture watcher started", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("fixture watcher stopping", "reason", ctx.Err())
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			doc, known := DocumentForFile(filepath.Base(event.Name))
			if !known || !doc.Reloadable() {
				continue
			}
			if err := s.Reload(doc); err != nil {
				// Editors often write files in several steps; the next
				// event retries with the complete file.
				s.logger.Warn("fixture reload failed, keeping previous contents", "document", doc, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("fixture watcher error", "error", err)
		}
	}
}
