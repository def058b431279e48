package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/reroll/pkg/domain"
)

// LogHooks logs every lifecycle event at debug level, and unresolved lists
// and rejected overrides at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnParse: func(ctx context.Context, e *domain.ParseEvent) {
			if len(e.Unresolved) > 0 {
				logger.WarnContext(ctx, "template_parsed", "template", e.Source, "unresolved", e.Unresolved)
				return
			}
			logger.DebugContext(ctx, "template_parsed", "template", e.Source, "alternations", e.Alternations)
		},
		OnGenerate: func(ctx context.Context, e *domain.GenerateEvent) {
			logger.DebugContext(ctx, "prompt_generated", "action", e.Action, "template", e.Source)
		},
		OnOverride: func(ctx context.Context, e *domain.OverrideEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "override_rejected", "fragment_id", e.FragmentID, "option", e.Option, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "fragment_overridden", "fragment_id", e.FragmentID, "option", e.Option)
		},
	}
}

// Combine fans every event out to each set of hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnParse: func(ctx context.Context, e *domain.ParseEvent) {
			for _, h := range all {
				if h.OnParse != nil {
					h.OnParse(ctx, e)
				}
			}
		},
		OnGenerate: func(ctx context.Context, e *domain.GenerateEvent) {
			for _, h := range all {
				if h.OnGenerate != nil {
					h.OnGenerate(ctx, e)
				}
			}
		},
		OnOverride: func(ctx context.Context, e *domain.OverrideEvent) {
			for _, h := range all {
				if h.OnOverride != nil {
					h.OnOverride(ctx, e)
				}
			}
		},
	}
}
