package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Topic is the single pub/sub topic all runtime events flow over.
const Topic = "parley.events"

// Bus is an in-process event bus backed by a watermill gochannel pub/sub.
type Bus struct {
	ch *gochannel.GoChannel
}

var _ Publisher = &Bus{}

// NewBus creates the bus. Subscribers registered after a publish do not see
// earlier events; the runtime republishes current state on restore instead.
func NewBus(logger zerolog.Logger) *Bus {
	ch := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		newWatermillLogger(logger),
	)
	return &Bus{ch: ch}
}

// Publish sends one event to all subscribers. Failures are logged, never
// propagated: a dead UI must not stall the state machine.
func (b *Bus) Publish(ev Event) {
	if b == nil || b.ch == nil {
		return
	}
	payload, err := Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("events: marshal failed")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.ch.Publish(Topic, msg); err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("events: publish failed")
	}
}

// Subscribe returns the raw watermill message channel for Topic.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if b == nil || b.ch == nil {
		return nil, nil
	}
	return b.ch.Subscribe(ctx, Topic)
}

// Close shuts down the pub/sub and closes subscriber channels.
func (b *Bus) Close() error {
	if b == nil || b.ch == nil {
		return nil
	}
	return b.ch.Close()
}

// watermillLogger adapts zerolog to watermill's LoggerAdapter.
type watermillLogger struct {
	l zerolog.Logger
}

var _ watermill.LoggerAdapter = watermillLogger{}

func newWatermillLogger(l zerolog.Logger) watermillLogger {
	return watermillLogger{l: l}
}

func (w watermillLogger) fieldsEvent(ev *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.fieldsEvent(w.l.Error().Err(err), fields).Msg(msg)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.fieldsEvent(w.l.Debug(), fields).Msg(msg)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.fieldsEvent(w.l.Debug(), fields).Msg(msg)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.fieldsEvent(w.l.Trace(), fields).Msg(msg)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	l := w.l
	for k, v := range fields {
		l = l.With().Interface(k, v).Logger()
	}
	return watermillLogger{l: l}
}
