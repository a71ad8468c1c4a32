// internal/countries/watcher.go
//
// Watcher reloads a Catalog when its dataset file changes on disk.
//
// Notes:
//   - The parent directory is watched, not the file, so editors that
//     save by rename-and-replace are still noticed.
//   - Bursts of events are collapsed with a debounce timer before reloading.
//   - A dataset that fails to load is logged and the previous graph stays.

package countries

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is used when NewWatcher is given a zero debounce.
const DefaultDebounce = 250 * time.Millisecond

// Watcher is bound to one Catalog.
type Watcher struct {
	catalog  *Catalog
	debounce time.Duration
	fs       *fsnotify.Watcher

	// OnReload, if set, runs after every reload attempt.
	OnReload func(err error)
}

// NewWatcher starts watching the catalog's file. The catalog must be file-backed.
func NewWatcher(c *Catalog, debounce time.Duration) (*Watcher, error) {
	if c.Path() == "" {
		return nil, errors.New("countries: embedded dataset cannot be watched")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(c.Path())); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{catalog: c, debounce: debounce, fs: fw}, nil
}

// Run blocks until ctx is cancelled, reloading after each debounced burst
// of changes to the dataset file.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	target := filepath.Clean(w.catalog.Path())
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("dataset watcher error")

		case <-timer.C:
			err := w.catalog.Reload()
			if err != nil {
				log.Error().Err(err).Str("file", target).Msg("dataset reload failed, keeping previous graph")
			} else {
				log.Info().Str("file", target).Int64("generation", w.catalog.Generation()).Msg("dataset reloaded")
			}
			if w.OnReload != nil {
				w.OnReload(err)
			}
		}
	}
}
