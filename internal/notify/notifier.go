package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/tree"
)

// DefaultMaxAlarms limits the active alarms listed in a message.
const DefaultMaxAlarms = 20

// Notifier renders an item into an email and hands it to a Sender.
type Notifier struct {
	template  *Template
	sender    Sender
	maxAlarms int
}

// NewNotifier creates a notifier. A nil template uses the defaults.
func NewNotifier(tpl *Template, sender Sender, maxAlarms int) (*Notifier, error) {
	if tpl == nil {
		var err error

		tpl, err = NewTemplate("", "")
		if err != nil {
			return nil, err
		}
	}

	if maxAlarms <= 0 {
		maxAlarms = DefaultMaxAlarms
	}

	return &Notifier{
		template:  tpl,
		sender:    sender,
		maxAlarms: maxAlarms,
	}, nil
}

// Notify emails the state of item to recipients.
func (n *Notifier) Notify(ctx context.Context, item *tree.Item, recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	subject, body, err := n.template.Render(n.data(item))
	if err != nil {
		return err
	}

	if err = n.sender.Send(ctx, recipients, subject, body); err != nil {
		return fmt.Errorf("notify %s: %w", item.PathName(), err)
	}

	return nil
}

// data describes item. An item that is no longer in alarm is reported as OK,
// which is what a follow-up message sees.
func (n *Notifier) data(item *tree.Item) Data {
	state := item.State()

	severity := state.Severity.String()
	if !state.Severity.IsActive() {
		severity = alarm.OK.String()
	}

	data := Data{
		Path:        item.PathName(),
		Description: item.Description(),
		Severity:    severity,
		Message:     state.Message,
		Value:       state.Value,
		Time:        state.Time.Format(time.RFC3339),
		Guidance:    item.Guidance(),
	}

	for _, leaf := range item.ActiveLeaves() {
		if len(data.Alarms) == n.maxAlarms {
			data.Alarms = append(data.Alarms, "...")

			break
		}

		leafState := leaf.State()
		data.Alarms = append(data.Alarms,
			fmt.Sprintf("%s - %s: %s", leafState.Severity, leaf.Description(), leafState.Message))
	}

	return data
}
