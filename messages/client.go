package messages

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// FrameKind discriminates inbound client frames.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameSetup
	FrameAudio
	FrameText
)

// SetupFrame is the first frame of every connection: opaque provider
// configuration plus an optional user id for personalization.
type SetupFrame struct {
	Config map[string]json.RawMessage
	UserID string
}

// ClientFrame is a parsed inbound frame. Exactly one of the payload
// fields is meaningful, selected by Kind.
type ClientFrame struct {
	Kind  FrameKind
	Setup *SetupFrame
	Audio string   // base64-encoded container bytes
	Texts []string // one or more utterances, each its own turn
}

// clientEnvelope is the loose wire shape. The typed scheme uses
// "type"/"data"; the legacy mobile client sends bare "setup" and
// "text" keys, which we keep accepting.
type clientEnvelope struct {
	Type   string                     `json:"type"`
	Config map[string]json.RawMessage `json:"config"`
	UserID string                     `json:"userId"`
	Data   json.RawMessage            `json:"data"`
	Setup  map[string]json.RawMessage `json:"setup"`
	Text   json.RawMessage            `json:"text"`
}

// ParseClientFrame decodes one inbound frame into its tagged form.
func ParseClientFrame(raw []byte) (*ClientFrame, error) {
	var env clientEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	switch env.Type {
	case "setup":
		return &ClientFrame{
			Kind:  FrameSetup,
			Setup: &SetupFrame{Config: env.Config, UserID: env.UserID},
		}, nil

	case "audio":
		var data string
		if err := sonic.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("audio frame: data must be a base64 string: %w", err)
		}
		return &ClientFrame{Kind: FrameAudio, Audio: data}, nil

	case "text":
		texts, err := decodeTexts(env.Data)
		if err != nil {
			return nil, fmt.Errorf("text frame: %w", err)
		}
		return &ClientFrame{Kind: FrameText, Texts: texts}, nil
	}

	// Legacy shapes.
	if env.Setup != nil {
		setup := &SetupFrame{Config: env.Setup, UserID: env.UserID}
		if raw, ok := env.Setup["userId"]; ok {
			var uid string
			if err := sonic.Unmarshal(raw, &uid); err == nil {
				setup.UserID = uid
			}
			delete(setup.Config, "userId")
		}
		return &ClientFrame{Kind: FrameSetup, Setup: setup}, nil
	}
	if len(env.Text) > 0 {
		texts, err := decodeTexts(env.Text)
		if err != nil {
			return nil, fmt.Errorf("text frame: %w", err)
		}
		return &ClientFrame{Kind: FrameText, Texts: texts}, nil
	}

	return nil, fmt.Errorf("unknown frame type %q", env.Type)
}

// decodeTexts accepts a single string or an array of strings; a single
// string is a one-element sequence.
func decodeTexts(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing text payload")
	}
	var one string
	if err := sonic.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := sonic.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("text payload must be a string or string array")
	}
	return many, nil
}
