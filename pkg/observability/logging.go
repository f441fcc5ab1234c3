package observability

import (
	"context"
	"log/slog"

	"github.com/manas360/stepwise/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Step movement logs at Debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start",
				"protocol", e.ProtocolID,
				"patient", e.Patient,
				"steps", e.Steps,
			)
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter",
				"protocol", e.ProtocolID,
				"step", e.StepIndex,
				"step_id", e.StepID,
				"direction", e.Direction,
			)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave",
				"protocol", e.ProtocolID,
				"step", e.StepIndex,
				"step_id", e.StepID,
			)
		},
		OnSessionFinish: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_finish",
				"protocol", e.ProtocolID,
				"record_id", e.RecordID,
				"duration", e.Duration,
			)
		},
	}
}
