package serverapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"graphql-preload/internal/logging"
)

// cleanupStack releases resources in reverse order of acquisition.
type cleanupStack struct {
	items []cleanupItem
}

type cleanupItem struct {
	name string
	fn   func(context.Context) error
}

func (s *cleanupStack) push(name string, fn func(context.Context) error) {
	s.items = append(s.items, cleanupItem{name: name, fn: fn})
}

// run calls every cleanup function, even after failures, and returns the
// joined errors.
func (s *cleanupStack) run(ctx context.Context, logger *logging.Logger) error {
	var errs []error
	for i := len(s.items) - 1; i >= 0; i-- {
		item := s.items[i]
		if logger != nil {
			logger.Info("shutting down " + item.name)
		}
		if err := item.fn(ctx); err != nil {
			if logger != nil {
				logger.Warn("cleanup error",
					slog.String("component", item.name),
					slog.String("error", err.Error()),
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", item.name, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown gracefully releases all acquired resources. Only the first call
// does any work; later calls return nil.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		cleanup := a.cleanup
		a.started = false
		a.stateMu.Unlock()

		err = cleanup.run(ctx, a.logger)
	})
	return err
}
