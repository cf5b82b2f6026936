// Package elevenlabs provides an ElevenLabs-backed TTS provider. It
// implements the tts.Provider interface.
//
// Two transports are supported. The default REST transport performs a
// single streaming POST per synthesis and suits the one-shot render
// pattern of character turns. The WebSocket transport uses the
// stream-input API and trades connection setup cost for lower first-byte
// latency on long texts.
//
// Both transports request raw PCM and decode it into an audio.Buffer.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/bottega-vr/bottega/pkg/audio"
	"github.com/bottega-vr/bottega/pkg/provider/apierr"
	"github.com/bottega-vr/bottega/pkg/provider/tts"
	"github.com/bottega-vr/bottega/pkg/types"
)

// Transport selects how synthesis requests reach the ElevenLabs API.
type Transport string

const (
	// TransportREST performs one streaming POST per synthesis. Default.
	TransportREST Transport = "rest"

	// TransportWebSocket uses the stream-input WebSocket API.
	TransportWebSocket Transport = "websocket"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io"
	defaultWSBaseURL = "wss://api.elevenlabs.io"
	defaultModel     = "eleven_flash_v2_5"
	defaultTimeout   = 30 * time.Second

	// streamLatencyMode 4 asks ElevenLabs for maximum latency optimization.
	streamLatencyMode = 4

	// outputFormat requests raw 16-bit PCM at 44.1 kHz mono.
	outputFormat = "pcm_44100"
	sampleRate   = 44100
	channels     = 1
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithTransport selects the synthesis transport.
func WithTransport(t Transport) Option {
	return func(p *Provider) {
		p.transport = t
	}
}

// WithBaseURL overrides the REST endpoint. Used in tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = u
	}
}

// WithWSBaseURL overrides the WebSocket endpoint. Used in tests.
func WithWSBaseURL(u string) Option {
	return func(p *Provider) {
		p.wsBaseURL = u
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the ElevenLabs API.
type Provider struct {
	apiKey     string
	model      string
	transport  Transport
	baseURL    string
	wsBaseURL  string
	httpClient *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		transport:  TransportREST,
		baseURL:    defaultBaseURL,
		wsBaseURL:  defaultWSBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	switch p.transport {
	case TransportREST, TransportWebSocket:
	default:
		return nil, fmt.Errorf("elevenlabs: unknown transport %q", p.transport)
	}
	return p, nil
}

// Name implements tts.Provider.
func (p *Provider) Name() string { return "elevenlabs" }

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func settingsFor(voice types.VoiceProfile) *voiceSettings {
	vs := &voiceSettings{
		Stability:       voice.Stability,
		SimilarityBoost: voice.SimilarityBoost,
		Style:           voice.Style,
		UseSpeakerBoost: voice.SpeakerBoost,
	}
	if vs.Stability == 0 && vs.SimilarityBoost == 0 {
		vs.Stability = 0.5
		vs.SimilarityBoost = 0.75
	}
	return vs
}

// Synthesize implements tts.Provider. It renders text with the configured
// transport and returns the decoded PCM audio.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (*audio.Buffer, error) {
	if text == "" {
		return nil, apierr.Newf(apierr.KindInvalidInput, p.Name(), "empty text")
	}
	if voice.ID == "" {
		return nil, apierr.Newf(apierr.KindInvalidInput, p.Name(), "voice.ID must not be empty")
	}

	var pcm []byte
	var err error
	switch p.transport {
	case TransportWebSocket:
		pcm, err = p.synthesizeWS(ctx, text, voice)
	default:
		pcm, err = p.synthesizeREST(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}

	buf, err := audio.DecodePCM16(pcm, sampleRate, channels)
	if err != nil {
		return nil, apierr.New(apierr.KindDecodeFailure, p.Name(), err)
	}
	return buf, nil
}

// ---- REST transport ----

// restRequest is the JSON body for POST /v1/text-to-speech/{voice}/stream.
type restRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

func (p *Provider) synthesizeREST(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	body := restRequest{
		Text:          text,
		ModelID:       p.model,
		VoiceSettings: settingsFor(voice),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?optimize_streaming_latency=%d&output_format=%s",
		p.baseURL, voice.ID, streamLatencyMode, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apierr.New(apierr.KindTimeout, p.Name(), err)
		}
		return nil, apierr.New(apierr.KindUpstreamRejected, p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apierr.Rejected(p.Name(), resp.StatusCode, fmt.Errorf("synthesis rejected: %s", msg))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.New(apierr.KindDecodeFailure, p.Name(), err)
	}
	return pcm, nil
}

// ---- WebSocket transport ----

// boiMessage is the initial "begin of input" handshake payload.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// textMessage is the JSON payload sent for the text to synthesize. An
// empty Text flushes and ends the input stream.
type textMessage struct {
	Text string `json:"text"`
}

// audioResponse is a single message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

func (p *Provider) synthesizeWS(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	wsURL := fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s",
		p.wsBaseURL, voice.ID, p.model, outputFormat)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apierr.New(apierr.KindTimeout, p.Name(), err)
		}
		return nil, apierr.Newf(apierr.KindUpstreamRejected, p.Name(), "dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// ElevenLabs requires a non-empty first text value.
	boi := boiMessage{Text: " ", VoiceSettings: settingsFor(voice), XiAPIKey: p.apiKey}
	if err := writeJSON(ctx, conn, boi); err != nil {
		return nil, apierr.Newf(apierr.KindUpstreamRejected, p.Name(), "send BOI: %v", err)
	}
	if err := writeJSON(ctx, conn, textMessage{Text: text + " "}); err != nil {
		return nil, apierr.Newf(apierr.KindUpstreamRejected, p.Name(), "send text: %v", err)
	}
	// Empty text flushes the input and asks for the final audio.
	if err := writeJSON(ctx, conn, textMessage{Text: ""}); err != nil {
		return nil, apierr.Newf(apierr.KindUpstreamRejected, p.Name(), "send flush: %v", err)
	}

	var pcm []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, apierr.New(apierr.KindTimeout, p.Name(), err)
			}
			// Normal closure after the final frame ends the stream.
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && len(pcm) > 0 {
				return pcm, nil
			}
			return nil, apierr.Newf(apierr.KindMalformedResponse, p.Name(), "read: %v", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return nil, apierr.New(apierr.KindMalformedResponse, p.Name(), err)
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, apierr.New(apierr.KindDecodeFailure, p.Name(), err)
			}
			pcm = append(pcm, chunk...)
		}
		if resp.IsFinal {
			return pcm, nil
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ListVoices returns all voices available for the configured API key. A
// 401 response here means the key is invalid, which makes this call the
// provider's readiness probe.
func (p *Provider) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apierr.New(apierr.KindTimeout, p.Name(), err)
		}
		return nil, apierr.New(apierr.KindUpstreamRejected, p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Rejected(p.Name(), resp.StatusCode, errors.New("list voices rejected"))
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, apierr.New(apierr.KindMalformedResponse, p.Name(), err)
	}

	profiles := make([]types.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		profiles = append(profiles, types.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: p.Name(),
		})
	}
	return profiles, nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
