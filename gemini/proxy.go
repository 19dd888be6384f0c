// Package gemini wraps the Gemini Live API behind the small surface
// the relay needs: connect once per session, push text or PCM, pull
// tagged response events.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const defaultModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"

const (
	// InputMIMEType tags client PCM pushed upstream (16 kHz mono).
	InputMIMEType = "audio/pcm;rate=16000"

	// OutputSampleRate is the PCM rate of Live API audio parts.
	OutputSampleRate = 24000
)

// PartKind discriminates the content of one response part.
type PartKind int

const (
	PartText PartKind = iota
	PartAudio
)

// Part is one piece of upstream output: either a text fragment or an
// inline raw-PCM audio fragment, never both.
type Part struct {
	Kind PartKind
	Text string
	PCM  []byte
}

// Event is one upstream response: zero or more parts plus the
// turn-complete flag.
type Event struct {
	Parts        []Part
	TurnComplete bool
}

// ConnectOptions carries the per-session setup: the merged system
// instruction plus whatever the client's opaque config selected.
type ConnectOptions struct {
	SystemInstruction string
	// Config is the client's raw provider config. Recognized keys
	// (voice, response modalities) are honored, the rest is ignored.
	Config map[string]json.RawMessage
}

// Proxy is one session's connection to the Live API. Each Session
// owns exactly one Proxy for its lifetime; there is no shared client.
type Proxy struct {
	client *genai.Client
	model  string

	mu      sync.RWMutex
	session *genai.Session
	closed  bool
}

// NewProxy creates a client for one session. The Live connection is
// not opened until Connect.
func NewProxy(ctx context.Context, apiKey, model string) (*Proxy, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	if model == "" {
		model = defaultModel
	}
	return &Proxy{client: client, model: model}, nil
}

// Connect opens the Live session with the merged configuration. It is
// called at most once, after a valid setup frame.
func (gp *Proxy) Connect(ctx context.Context, opts ConnectOptions) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return fmt.Errorf("proxy is closed")
	}
	if gp.session != nil {
		return fmt.Errorf("already connected")
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities: responseModalities(opts.Config),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: opts.SystemInstruction},
			},
		},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voiceName(opts.Config),
				},
			},
		},
	}

	session, err := gp.client.Live.Connect(ctx, gp.model, config)
	if err != nil {
		return fmt.Errorf("failed to connect to Live API: %w", err)
	}

	gp.session = session
	return nil
}

// Receive blocks until the next upstream event or an error. The
// returned event uses the closed Part variant; callers switch on Kind
// exhaustively.
func (gp *Proxy) Receive() (*Event, error) {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return nil, fmt.Errorf("proxy is closed or not connected")
	}

	resp, err := session.Receive()
	if err != nil {
		return nil, err
	}
	return translate(resp), nil
}

// translate maps the SDK message onto the closed event model.
func translate(resp *genai.LiveServerMessage) *Event {
	ev := &Event{}
	if resp.ServerContent == nil {
		return ev
	}

	if resp.ServerContent.ModelTurn != nil {
		for _, part := range resp.ServerContent.ModelTurn.Parts {
			if part.Text != "" {
				ev.Parts = append(ev.Parts, Part{Kind: PartText, Text: part.Text})
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				ev.Parts = append(ev.Parts, Part{Kind: PartAudio, PCM: part.InlineData.Data})
			}
		}
	}

	ev.TurnComplete = resp.ServerContent.TurnComplete
	return ev
}

// SendPCM pushes one raw PCM blob as realtime input.
func (gp *Proxy) SendPCM(pcm []byte) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	err := session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			MIMEType: InputMIMEType,
			Data:     pcm,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// SendText pushes one utterance as a complete conversational turn.
func (gp *Proxy) SendText(text string) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	turnComplete := true
	err := session.SendClientContent(genai.LiveSendClientContentParameters{
		Turns: []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: text}},
			},
		},
		TurnComplete: &turnComplete,
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

// Close terminates the Live connection. Safe to call more than once.
func (gp *Proxy) Close() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return nil
	}
	gp.closed = true

	if gp.session != nil {
		return gp.session.Close()
	}
	return nil
}

// voiceName pulls an optional "voice" selection out of the client's
// opaque config.
func voiceName(config map[string]json.RawMessage) string {
	if raw, ok := config["voice"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err == nil && v != "" {
			return v
		}
	}
	return "Zephyr"
}

// responseModalities honors an optional modality selection from the
// client config; the default is audio-only output.
func responseModalities(config map[string]json.RawMessage) []genai.Modality {
	raw, ok := config["response_modalities"]
	if !ok {
		// The legacy client nests it under generation_config.
		if gc, found := config["generation_config"]; found {
			var nested struct {
				ResponseModalities []string `json:"response_modalities"`
			}
			if err := json.Unmarshal(gc, &nested); err == nil && len(nested.ResponseModalities) > 0 {
				return toModalities(nested.ResponseModalities)
			}
		}
		return []genai.Modality{"AUDIO"}
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil || len(names) == 0 {
		return []genai.Modality{"AUDIO"}
	}
	return toModalities(names)
}

func toModalities(names []string) []genai.Modality {
	out := make([]genai.Modality, 0, len(names))
	for _, n := range names {
		switch n {
		case "audio", "AUDIO":
			out = append(out, "AUDIO")
		case "text", "TEXT":
			out = append(out, "TEXT")
		}
	}
	if len(out) == 0 {
		return []genai.Modality{"AUDIO"}
	}
	return out
}
