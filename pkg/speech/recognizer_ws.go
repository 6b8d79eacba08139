package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// wsFrame is one message from the recognition gateway. Text frames carry
// interim or final transcript fragments; error frames carry a reason code.
type wsFrame struct {
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`
	Error string `json:"error,omitempty"`
}

// WSRecognizer streams recognition results from a websocket speech gateway.
// The gateway owns the microphone; this client only consumes transcript
// frames, which keeps the runtime testable against a scripted server.
type WSRecognizer struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ Recognizer = &WSRecognizer{}

// NewWSRecognizer creates a recognizer for the given ws:// or wss:// URL.
func NewWSRecognizer(url string) (*WSRecognizer, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("ws recognizer: empty url")
	}
	return &WSRecognizer{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// Start dials the gateway and spawns the read loop. Frames arrive on the
// callbacks until the connection closes or Stop is called.
func (r *WSRecognizer) Start(ctx context.Context, cb Callbacks) error {
	if r == nil {
		return errors.New("ws recognizer: nil recognizer")
	}
	r.mu.Lock()
	if r.conn != nil {
		r.mu.Unlock()
		return errors.New("ws recognizer: already listening")
	}
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	conn, resp, err := r.dialer.DialContext(ctx, r.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return errors.Wrapf(err, "ws recognizer: dial %s", r.url)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	go r.readLoop(conn, cb)
	return nil
}

// Stop closes the connection; the read loop then fires OnEnd.
func (r *WSRecognizer) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = conn.Close()
}

func (r *WSRecognizer) readLoop(conn *websocket.Conn, cb Callbacks) {
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	}()

	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("speech gateway connection lost")
			}
			return
		}
		if frame.Error != "" {
			if cb.OnError != nil {
				cb.OnError(frameError(frame.Error))
			}
			continue
		}
		if frame.Text != "" && cb.OnResult != nil {
			cb.OnResult(Result{Text: frame.Text, Final: frame.Final})
		}
	}
}

// frameError maps gateway error codes onto package errors. The browser's
// recognizer reports permission failures as "not-allowed"; the gateway
// forwards that code verbatim.
func frameError(code string) error {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "not-allowed", "access-denied", "permission-denied":
		return ErrAccessDenied
	default:
		return errors.Errorf("ws recognizer: gateway error: %s", code)
	}
}
