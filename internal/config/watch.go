package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Watch watches the configuration file at path and emits a freshly loaded
// Config each time the file is written or recreated. The current contents
// are emitted first. Files that fail to parse or validate are logged and
// skipped, so the channel only carries usable configurations.
//
// The containing directory is watched rather than the file, so editors that
// save by renaming a temporary file are picked up too.
func Watch(ctx context.Context, path string, logger *slog.Logger) (<-chan *Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New("E123").Wrap(err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, errors.New("E123").WithDetail("Failed to watch " + path).Wrap(err)
	}

	out := make(chan *Config)

	go func() {
		defer close(out)
		defer watcher.Close()

		emit := func() bool {
			cfg, err := LoadFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				logger.Warn("config reload skipped", "path", path, "error", err)
				return true
			}
			select {
			case out <- cfg:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !emit() {
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "path", path, "error", err)
			}
		}
	}()

	return out, nil
}

// NewSignal loads the configuration at path into a signal and keeps it
// current. Reloads are written on loop's goroutine, the goroutine that owns
// the graph reading the signal, and reloads with identical settings are
// dropped by the signal's equality check. The watcher stops with ctx.
func NewSignal(ctx context.Context, path string, loop *reactive.Loop, logger *slog.Logger) (*reactive.Signal[*Config], error) {
	initial, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	sig := reactive.NewSignal(initial,
		reactive.WithName("config"),
		reactive.WithEquals(func(a, b *Config) bool { return a.Equal(b) }),
	)

	watchCtx, cancel := context.WithCancel(ctx)
	updates, err := Watch(watchCtx, path, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	go forward(watchCtx, cancel, updates, loop, sig)

	return sig, nil
}

// forward writes each update into sig on loop's goroutine. It cancels the
// watch when the loop stops accepting work, then drains updates until the
// watcher closes the channel.
func forward(ctx context.Context, cancel context.CancelFunc, updates <-chan *Config, loop *reactive.Loop, sig *reactive.Signal[*Config]) {
	defer cancel()
	for cfg := range updates {
		next := cfg
		if err := loop.Do(ctx, func() { sig.Set(next) }); err != nil {
			cancel()
			for range updates {
			}
			return
		}
	}
}
