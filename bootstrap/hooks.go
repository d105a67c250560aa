package bootstrap

import (
	"context"

	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/registry"
	"github.com/rs/zerolog"
)

// registerAppHooks attaches application-wide callbacks that outlive every
// module. They only observe events and always return a nil result.
func registerAppHooks(reg *registry.Registry, logger zerolog.Logger) {
	reg.RegisterHook(hooks.AfterSave, "", auditHook(logger, "record saved"))
	reg.RegisterHook(hooks.AfterDelete, "", auditHook(logger, "record deleted"))
}

// auditHook logs module record events.
func auditHook(logger zerolog.Logger, msg string) hooks.Callback {
	return func(ctx context.Context, args ...any) (any, error) {
		event, ok := hooks.EventFrom(args)
		if !ok {
			return nil, nil
		}
		logger.Info().
			Str("module", event.Module).
			Str("record", event.RecordID).
			Msg(msg)
		return nil, nil
	}
}
