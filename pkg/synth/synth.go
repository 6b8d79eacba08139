// Package synth turns interviewer text into playable audio via a remote
// text-to-speech service. Synthesis and playback are best-effort: failures
// are reported and the interview continues without audio.
package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultVoice matches the web client's default interviewer voice.
const DefaultVoice = "en-US-Standard-B"

// Voices is the selectable interviewer voice table.
var Voices = []string{
	"en-US-Standard-B",
	"en-US-Standard-C",
	"en-GB-Standard-B",
	"en-GB-Standard-C",
	"en-AU-Standard-B",
	"en-AU-Standard-C",
	"en-IN-Standard-B",
	"en-IN-Standard-A",
}

// Synthesizer produces and plays audio for a piece of interviewer text.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Player consumes synthesized audio.
type Player interface {
	Play(audio []byte, format string) error
}

// NopPlayer discards audio. Used when no playback sink is configured.
type NopPlayer struct{}

func (NopPlayer) Play([]byte, string) error { return nil }

// FilePlayer writes each clip to a directory for an external player to pick
// up. Playback success is explicitly not guaranteed by the runtime.
type FilePlayer struct {
	Dir string
}

func (p FilePlayer) Play(audio []byte, format string) error {
	if p.Dir == "" {
		return errors.New("file player: empty directory")
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return errors.Wrap(err, "file player: create directory")
	}
	name := fmt.Sprintf("clip-%s.%s", uuid.NewString(), strings.ToLower(format))
	if err := os.WriteFile(filepath.Join(p.Dir, name), audio, 0o644); err != nil {
		return errors.Wrap(err, "file player: write clip")
	}
	return nil
}

// Client calls a Google-style `text:synthesize` endpoint: the request names
// the voice and encoding, the response carries base64 MP3 audio.
type Client struct {
	baseURL string
	apiKey  string
	voice   string
	player  Player
	httpc   *http.Client
}

var _ Synthesizer = &Client{}

// Option configures a Client.
type Option func(*Client)

// WithVoice selects the interviewer voice (see Voices).
func WithVoice(voice string) Option {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithPlayer sets the playback sink.
func WithPlayer(p Player) Option {
	return func(c *Client) {
		if p != nil {
			c.player = p
		}
	}
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// NewClient creates a synthesis client. An empty apiKey disables synthesis:
// Speak becomes a no-op, mirroring the web client's behavior when no key is
// configured.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("synth client: empty base URL")
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		voice:   DefaultVoice,
		player:  NopPlayer{},
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Speak synthesizes text and hands the audio to the player.
func (c *Client) Speak(ctx context.Context, text string) error {
	if c == nil {
		return errors.New("synth client: nil client")
	}
	if c.apiKey == "" || strings.TrimSpace(text) == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var req synthesizeRequest
	req.Input.Text = text
	req.Voice.Name = c.voice
	if len(c.voice) >= 5 {
		req.Voice.LanguageCode = c.voice[:5]
	}
	req.AudioConfig.AudioEncoding = "MP3"

	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "synth client: marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/text:synthesize?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "synth client: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "synth client: synthesize")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.Errorf("synth client: synthesize returned HTTP %d", resp.StatusCode)
	}

	var body synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "synth client: decode response")
	}
	if body.AudioContent == "" {
		return errors.New("synth client: empty audio content")
	}
	audio, err := base64.StdEncoding.DecodeString(body.AudioContent)
	if err != nil {
		return errors.Wrap(err, "synth client: decode audio")
	}
	if err := c.player.Play(audio, "mp3"); err != nil {
		log.Warn().Err(err).Msg("audio playback failed")
		return errors.Wrap(err, "synth client: play audio")
	}
	return nil
}
