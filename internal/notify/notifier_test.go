package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/tree"
)

type sentMail struct {
	to            []string
	subject, body string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to []string, subject, body string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})

	return f.err
}

func pumpItem(t *testing.T, state alarm.State) *tree.Item {
	t.Helper()

	root := tree.New(nil, "Vacuum")
	item := tree.New(root, "Pump", tree.AsLeaf(), tree.WithState(state))
	require.NoError(t, item.AddToParent(root))
	item.SetDescription("Ion pump pressure")
	item.SetGuidance([]alarm.TitleDetail{{Title: "Call", Detail: "vacuum expert"}})

	return item
}

// TestNotifier_ActiveAlarm renders the alarm into subject and body.
func TestNotifier_ActiveAlarm(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	item := pumpItem(t, alarm.NewState(alarm.Major, "HIHI", "1e-3", at))

	sender := &fakeSender{}
	notifier, err := NewNotifier(nil, sender, 0)
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), item, []string{"ops@site"}))
	require.Len(t, sender.sent, 1)

	mail := sender.sent[0]
	require.Equal(t, []string{"ops@site"}, mail.to)
	require.Equal(t, "MAJOR alarm: Ion pump pressure", mail.subject)
	require.Contains(t, mail.body, "Alarm: /Vacuum/Pump\n")
	require.Contains(t, mail.body, "Message: HIHI\n")
	require.Contains(t, mail.body, "Value: 1e-3\n")
	require.Contains(t, mail.body, "Time: 2024-05-06T07:08:09Z\n")
	require.Contains(t, mail.body, "Call: vacuum expert\n")
	require.Contains(t, mail.body, "MAJOR - Ion pump pressure: HIHI\n")
}

// TestNotifier_FollowUpReportsOK words a cleared item as OK.
func TestNotifier_FollowUpReportsOK(t *testing.T) {
	t.Parallel()

	item := pumpItem(t, alarm.NewState(alarm.MajorAck, "HIHI", "", time.Now()))

	sender := &fakeSender{}
	notifier, err := NewNotifier(nil, sender, 0)
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), item, []string{"ops@site"}))
	require.Equal(t, "OK alarm: Ion pump pressure", sender.sent[0].subject)
	require.NotContains(t, sender.sent[0].body, "Active alarms")
}

// TestNotifier_Errors covers missing recipients and sender failures.
func TestNotifier_Errors(t *testing.T) {
	t.Parallel()

	item := pumpItem(t, alarm.NewState(alarm.Minor, "HIGH", "", time.Now()))

	sender := &fakeSender{err: errors.New("relay refused")}
	notifier, err := NewNotifier(nil, sender, 0)
	require.NoError(t, err)

	require.ErrorIs(t, notifier.Notify(context.Background(), item, nil), ErrNoRecipients)

	err = notifier.Notify(context.Background(), item, []string{"ops@site"})
	require.ErrorContains(t, err, "relay refused")
	require.ErrorContains(t, err, "/Vacuum/Pump")
}

// TestNotifier_MaxAlarms truncates the listing of active leaves.
func TestNotifier_MaxAlarms(t *testing.T) {
	t.Parallel()

	root := tree.New(nil, "Area")
	for _, name := range []string{"a", "b", "c"} {
		leaf := tree.New(root, name, tree.AsLeaf(),
			tree.WithState(alarm.NewState(alarm.Minor, "LOW", "", time.Now())))
		require.NoError(t, leaf.AddToParent(root))
	}

	sender := &fakeSender{}
	notifier, err := NewNotifier(nil, sender, 2)
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), root, []string{"ops@site"}))

	body := sender.sent[0].body
	require.Contains(t, body, "MINOR - a: LOW")
	require.Contains(t, body, "MINOR - b: LOW")
	require.NotContains(t, body, "MINOR - c: LOW")
	require.True(t, strings.HasSuffix(body, "...\n"))
}

// TestTemplate_Custom uses configured templates and rejects bad ones.
func TestTemplate_Custom(t *testing.T) {
	t.Parallel()

	tpl, err := NewTemplate("[{{.Severity}}]\n{{.Path}}", "{{.Message}}")
	require.NoError(t, err)

	subject, body, err := tpl.Render(Data{Severity: "MINOR", Path: "/a/b", Message: "LOW"})
	require.NoError(t, err)
	require.Equal(t, "[MINOR] /a/b", subject)
	require.Equal(t, "LOW", body)

	_, err = NewTemplate("{{.Severity", "")
	require.Error(t, err)

	var empty *Template
	_, _, err = empty.Render(Data{})
	require.Error(t, err)
}

// TestSMTPSender_Validation rejects unusable configuration before dialing.
func TestSMTPSender_Validation(t *testing.T) {
	t.Parallel()

	sender := &SMTPSender{From: "alarms@site"}
	require.ErrorIs(t, sender.Send(context.Background(), nil, "s", "b"), ErrNoRecipients)
	require.ErrorIs(t, sender.Send(context.Background(), []string{"ops@site"}, "s", "b"), ErrNoSMTPHost)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender.Host = "localhost"
	require.ErrorIs(t, sender.Send(ctx, []string{"ops@site"}, "s", "b"), context.Canceled)
}

// TestSMTPSender_Message builds CRLF separated headers and body.
func TestSMTPSender_Message(t *testing.T) {
	t.Parallel()

	sender := &SMTPSender{From: "alarms@site"}
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	msg := string(sender.message([]string{"a@x", "b@x"}, "MAJOR alarm", "line1\nline2", at))
	require.Contains(t, msg, "From: alarms@site\r\n")
	require.Contains(t, msg, "To: a@x, b@x\r\n")
	require.Contains(t, msg, "Subject: MAJOR alarm\r\n")
	require.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2"))
}
