package action

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/metrics"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// Dispatch kinds used in metrics and logs.
const (
	kindMailto  = "mailto"
	kindCommand = "cmd"
	kindInfoPV  = "infopv"
	kindUnknown = "unknown"
)

// Mailer sends an alarm notification for item to recipients.
type Mailer interface {
	Notify(ctx context.Context, item *tree.Item, recipients []string) error
}

// CommandRunner starts an external command for an action.
type CommandRunner interface {
	Run(ctx context.Context, key, commandLine string) error
}

// InfoPVPublisher queues the alarm summary of item for the named PV.
type InfoPVPublisher interface {
	Publish(item *tree.Item, pvName string)
}

// Executor dispatches actions by the prefix of their detail.
// A nil capability skips its kind of action.
type Executor struct {
	mailer   Mailer
	commands CommandRunner
	infoPV   InfoPVPublisher

	notifyDisabled atomic.Bool
}

// NewExecutor creates an executor over the given capabilities.
func NewExecutor(mailer Mailer, commands CommandRunner, infoPV InfoPVPublisher) *Executor {
	return &Executor{
		mailer:   mailer,
		commands: commands,
		infoPV:   infoPV,
	}
}

// SetNotifyDisabled suppresses or resumes mailto actions.
func (e *Executor) SetNotifyDisabled(disabled bool) {
	e.notifyDisabled.Store(disabled)
}

// NotifyDisabled reports whether mailto actions are suppressed.
func (e *Executor) NotifyDisabled() bool {
	return e.notifyDisabled.Load()
}

// Dispatch performs action for item. Failures are logged, never returned.
func (e *Executor) Dispatch(ctx context.Context, item *tree.Item, action alarm.TitleDetailDelay) {
	ctx = logger.WithKV(ctx, "action", action.Title, "detail", action.Detail)

	var (
		kind string
		err  error
	)

	switch {
	case strings.HasPrefix(action.Detail, MailtoPrefix):
		kind = kindMailto
		if e.notifyDisabled.Load() || e.mailer == nil {
			logger.DebugKV(ctx, "email notification suppressed")
			metrics.RecordDispatch(kind, metrics.ResultSkipped)

			return
		}

		err = e.mailer.Notify(ctx, item, Recipients(strings.TrimPrefix(action.Detail, MailtoPrefix)))
	case strings.HasPrefix(action.Detail, CommandPrefix):
		kind = kindCommand
		if e.commands == nil {
			metrics.RecordDispatch(kind, metrics.ResultSkipped)

			return
		}

		err = e.commands.Run(ctx, item.PathName()+"|"+action.Title,
			strings.TrimSpace(strings.TrimPrefix(action.Detail, CommandPrefix)))
	case strings.HasPrefix(action.Detail, InfoPVPrefix):
		kind = kindInfoPV
		if e.infoPV == nil {
			metrics.RecordDispatch(kind, metrics.ResultSkipped)

			return
		}

		e.infoPV.Publish(item, strings.TrimSpace(strings.TrimPrefix(action.Detail, InfoPVPrefix)))
	default:
		logger.WarnKV(ctx, "unknown automated action, skipped")
		metrics.RecordDispatch(kindUnknown, metrics.ResultSkipped)

		return
	}

	if err != nil {
		logger.WarnKV(ctx, "automated action failed", "error", err)
		metrics.RecordDispatch(kind, metrics.ResultFailed)

		return
	}

	logger.InfoKV(ctx, "automated action performed")
	metrics.RecordDispatch(kind, metrics.ResultOK)
}

// Recipients splits a comma or space separated address list.
func Recipients(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
