// Package voicecmd matches finalized speech fragments against a fixed table
// of control phrases before they are treated as answer text.
package voicecmd

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Command binds a trigger phrase to an action. Phrases are stored
// lower-cased; matching is containment, not equality, so "please open chat
// now" still triggers "open chat".
type Command struct {
	Phrase string
	Action func()
}

// Dispatcher holds the ordered command table. Table order is significant:
// the first phrase contained in a fragment wins and only one command fires
// per fragment.
type Dispatcher struct {
	commands []Command
}

// NewDispatcher builds a dispatcher from the given table.
func NewDispatcher(commands []Command) *Dispatcher {
	normalized := make([]Command, 0, len(commands))
	for _, c := range commands {
		phrase := strings.ToLower(strings.TrimSpace(c.Phrase))
		if phrase == "" || c.Action == nil {
			continue
		}
		normalized = append(normalized, Command{Phrase: phrase, Action: c.Action})
	}
	return &Dispatcher{commands: normalized}
}

// Dispatch runs the first command whose phrase the fragment contains and
// reports whether one matched. A matched fragment is consumed: the caller
// must not append it to the answer buffer.
func (d *Dispatcher) Dispatch(fragment string) bool {
	if d == nil {
		return false
	}
	text := strings.ToLower(strings.TrimSpace(fragment))
	if text == "" {
		return false
	}
	for _, c := range d.commands {
		if strings.Contains(text, c.Phrase) {
			log.Debug().Str("phrase", c.Phrase).Msg("voice command matched")
			c.Action()
			return true
		}
	}
	return false
}
