package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// ChangedPayload is the payload of KindConfigChanged events.
type ChangedPayload struct {
	Path string `json:"path"`
}

// Watcher publishes a config.changed bus event whenever the configuration
// file is rewritten. It watches the containing directory, not the file
// itself, so editors that replace the file atomically are still seen.
type Watcher struct {
	path     string
	bus      *eventbus.Bus
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, bus *eventbus.Bus, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, ErrWatchPathEmpty
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		bus:      bus,
		logger:   logger,
		debounce: 250 * time.Millisecond,
	}, nil
}

// Run watches until the context is cancelled. Rapid successive writes are
// coalesced into one event.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watch error", "error", err)
		case <-fire:
			timer = nil
			fire = nil
			w.logger.Info("config file changed", "path", w.path)
			if err := w.bus.Publish(ctx, eventbus.Event{
				Kind:    eventbus.KindConfigChanged,
				Payload: ChangedPayload{Path: w.path},
				Source:  "config",
			}); err != nil {
				w.logger.Error("failed to publish config change", "error", err)
			}
		}
	}
}
