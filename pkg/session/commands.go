package session

import (
	"context"

	"github.com/go-go-golems/parley/pkg/voicecmd"
)

// Commands is the spoken command table for the meet screen. Order matters:
// the dispatcher takes the first phrase contained in an utterance.
// stopListening is invoked for "stop listening"; a nil func makes that
// phrase a no-op.
func (r *Runtime) Commands(stopListening func()) []voicecmd.Command {
	submit := func() { r.SubmitVoiceAnswer() }
	// End errors surface as notice events; nothing more to do here.
	end := func() { _ = r.EndInterview(context.Background()) }
	stop := func() {
		if stopListening != nil {
			stopListening()
		}
	}
	return []voicecmd.Command{
		{Phrase: "send answer", Action: submit},
		{Phrase: "submit answer", Action: submit},
		{Phrase: "stop listening", Action: stop},
		{Phrase: "open chat", Action: r.OpenChat},
		{Phrase: "close chat", Action: r.CloseChat},
		{Phrase: "open settings", Action: r.OpenSettings},
		{Phrase: "close settings", Action: r.CloseSettings},
		{Phrase: "end interview", Action: end},
		{Phrase: "hang up", Action: end},
	}
}
