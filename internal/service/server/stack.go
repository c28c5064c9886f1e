package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/oshokin/alarm-engine/internal/action"
	"github.com/oshokin/alarm-engine/internal/command"
	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/engine"
	"github.com/oshokin/alarm-engine/internal/infopv"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/notify"
	repository "github.com/oshokin/alarm-engine/internal/repository/state"
)

// stack is the engine and the action backends it owns.
type stack struct {
	engine *engine.Engine
	infoPV *infopv.Updater
}

// newStack builds the engine and its action backends from settings.
func newStack(ctx context.Context, settings *config.Config) (*stack, error) {
	mailer, err := newMailer(ctx, &settings.SMTP, settings.InfoPV.MaxAlarms)
	if err != nil {
		return nil, err
	}

	writer, err := newInfoPVWriter(settings.InfoPV.GatewayURL, settings.Timeout)
	if err != nil {
		return nil, err
	}

	updater := infopv.NewUpdater(ctx, writer, infopv.Options{
		GracePeriod:   settings.InfoPV.GracePeriod,
		RetryInterval: settings.InfoPV.RetryInterval,
		WriteTimeout:  settings.Timeout,
		MaxAlarms:     settings.InfoPV.MaxAlarms,
		Writers:       settings.InfoPV.Writers,
	})

	runner := command.NewRunner(settings.Actions.CommandDirectory, settings.Actions.CommandTimeout)
	executor := action.NewExecutor(mailer, runner, updater)

	eng := engine.New(ctx, engine.Options{
		Repository: repository.NewFileRepository(settings.StateFile),
		SaveDelay:  settings.StateSaveDelay,
		Executor:   executor,
		Workers:    settings.Actions.Workers,
		Followup:   settings.Actions.Followup,
	})

	if settings.Actions.NotifyDisabled {
		eng.SetNotifyDisabled(true)
	}

	return &stack{
		engine: eng,
		infoPV: updater,
	}, nil
}

// Close stops action processing, then flushes info PV writes.
func (s *stack) Close() {
	s.engine.Close()
	s.infoPV.Close()
}

// newMailer returns nil when no SMTP host is configured, which skips
// mailto actions.
//
//nolint:ireturn // A nil interface disables email.
func newMailer(ctx context.Context, smtp *config.SMTPConfig, maxAlarms int) (action.Mailer, error) {
	if smtp.Host == "" {
		logger.Info(ctx, "No SMTP host configured, email actions are skipped")

		return nil, nil
	}

	tpl, err := notify.NewTemplate(smtp.Subject, smtp.Body)
	if err != nil {
		return nil, fmt.Errorf("email template: %w", err)
	}

	sender := &notify.SMTPSender{
		Host:     smtp.Host,
		Port:     smtp.Port,
		From:     smtp.From,
		Username: smtp.Username,
		Password: smtp.Password,
	}

	notifier, err := notify.NewNotifier(tpl, sender, maxAlarms)
	if err != nil {
		return nil, err
	}

	return notifier, nil
}

//nolint:ireturn // The writer depends on configuration.
func newInfoPVWriter(gatewayURL string, timeout time.Duration) (infopv.Writer, error) {
	if gatewayURL == "" {
		return infopv.LogWriter{}, nil
	}

	return infopv.NewHTTPWriter(gatewayURL, infopv.WithHTTPClient(&http.Client{Timeout: timeout}))
}
