package cli

import (
	"context"
	"fmt"
)

// WatchCorpus reloads the engine every time the corpus changes, until ctx is
// done. A failed reload keeps the previous templates and is only logged.
// onReload, when set, runs after each successful reload.
func (a *App) WatchCorpus(ctx context.Context, onReload func(name string)) error {
	changes, err := a.Engine.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch corpus: %w", err)
	}
	a.Logger.Info("watching corpus for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-changes:
			if !ok {
				return nil
			}
			if err := a.Engine.Reload(ctx); err != nil {
				a.Logger.Error("reload failed", "changed", name, "err", err)
				continue
			}
			a.Logger.Info("corpus reloaded", "changed", name)
			if onReload != nil {
				onReload(name)
			}
		}
	}
}
