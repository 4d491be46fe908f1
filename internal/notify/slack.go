package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	slacklib "github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of the Slack client used by SlackDispatcher.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackDispatcher posts notifications to a single configured Slack channel.
// Per-user routing (DMs, mentions) belongs to the external tracker; this is a
// team-visible event feed.
type SlackDispatcher struct {
	api     SlackAPI
	channel string
}

// Compile-time interface check.
var _ Dispatcher = (*SlackDispatcher)(nil) //nolint:gochecknoglobals // compile-time check

func NewSlackDispatcher(api SlackAPI, channel string) *SlackDispatcher {
	return &SlackDispatcher{api: api, channel: channel}
}

func (d *SlackDispatcher) Name() string { return "slack" }

func (d *SlackDispatcher) Dispatch(_ context.Context, recipients []uuid.UUID, kind EventKind, payload map[string]any) error {
	text := renderText(kind, payload, len(recipients))
	if _, _, err := d.api.PostMessage(d.channel, slacklib.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("notify.SlackDispatcher.Dispatch: %w", err)
	}
	return nil
}

func renderText(kind EventKind, payload map[string]any, recipients int) string {
	switch kind {
	case EventDependencyCreated:
		return fmt.Sprintf("New %v dependency: %q must precede %q (lag %v %v)",
			payload["type_description"], payload["predecessor_title"], payload["successor_title"],
			payload["lag_amount"], payload["lag_unit"])
	case EventDependencyRetired:
		return fmt.Sprintf("Dependency removed: %q no longer gates %q",
			payload["predecessor_title"], payload["successor_title"])
	case EventTaskTransitioned:
		return fmt.Sprintf("Task %q moved from %v to %v (%v). %d dependent watcher(s) may be unblocked.",
			payload["title"], payload["from"], payload["to"], payload["action"], recipients)
	default:
		return fmt.Sprintf("%s: %v", kind, payload)
	}
}
