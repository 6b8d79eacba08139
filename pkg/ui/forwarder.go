// Package ui renders the interview client: a bubbletea program with lobby,
// meet and summary screens, fed by the runtime's event stream.
package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/events"
)

// EventMsg wraps a runtime event as a bubbletea message.
type EventMsg struct {
	Event events.Event
}

// Forward pumps runtime events from an already-subscribed bus channel into
// the program. The caller subscribes before the runtime publishes anything
// it cares about — the gochannel pub/sub drops events that have no
// subscriber, so a restored session's replay would be lost otherwise.
// Forward returns when the channel closes.
func Forward(msgs <-chan *message.Message, p *tea.Program) error {
	for msg := range msgs {
		msg.Ack()
		ev, err := events.Unmarshal(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload)).Msg("dropping undecodable event")
			continue
		}
		p.Send(EventMsg{Event: ev})
	}
	return nil
}
