// Package notify computes nothing and decides nothing: it delivers fan-out
// descriptions produced by the workflow coordinator to whatever channels are
// registered. Delivery is fire-and-forget from the coordinator's perspective;
// failures are logged, never retried here.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventKind names a notification event.
type EventKind string

const (
	EventDependencyCreated EventKind = "dependency_created"
	EventDependencyRetired EventKind = "dependency_retired"
	EventTaskTransitioned  EventKind = "task_transitioned"
)

// Dispatcher delivers one notification to a set of recipients over a single
// channel (log, Slack, ...).
type Dispatcher interface {
	// Dispatch sends the event to the recipients. Implementations decide how
	// to render the payload.
	Dispatch(ctx context.Context, recipients []uuid.UUID, kind EventKind, payload map[string]any) error

	// Name returns the channel identifier used in logs.
	Name() string
}

// Notifier fans a notification out to every registered dispatcher.
type Notifier struct {
	dispatchers []Dispatcher
}

func New(dispatchers ...Dispatcher) *Notifier {
	return &Notifier{dispatchers: dispatchers}
}

// Register adds a dispatcher.
func (n *Notifier) Register(d Dispatcher) {
	n.dispatchers = append(n.dispatchers, d)
}

// Dispatch sends the event through every dispatcher. Individual failures are
// logged and collected; callers treat the returned error as non-fatal.
func (n *Notifier) Dispatch(ctx context.Context, recipients []uuid.UUID, kind EventKind, payload map[string]any) error {
	if len(recipients) == 0 {
		return nil
	}

	var errs []error
	for _, d := range n.dispatchers {
		if err := d.Dispatch(ctx, recipients, kind, payload); err != nil {
			log.Warn().Err(err).Str("dispatcher", d.Name()).Str("kind", string(kind)).Msg("notification dispatch failed")
			errs = append(errs, fmt.Errorf("notify.Notifier.Dispatch: %s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher writes notifications to the structured log. It is always
// registered so fan-out is observable even with no external channel
// configured.
type LogDispatcher struct{}

func (LogDispatcher) Name() string { return "log" }

func (LogDispatcher) Dispatch(_ context.Context, recipients []uuid.UUID, kind EventKind, payload map[string]any) error {
	ids := make([]string, len(recipients))
	for i, id := range recipients {
		ids[i] = id.String()
	}
	log.Info().
		Str("kind", string(kind)).
		Strs("recipients", ids).
		Interface("payload", payload).
		Msg("notification")
	return nil
}
