package messages

import "github.com/bytedance/sonic"

// Outbound frame types. One scheme, held fixed: text goes out as
// "response", audio as "audio_wav", failures as "error".
const (
	TypeResponse = "response"
	TypeAudioWAV = "audio_wav"
	TypeError    = "error"
)

// ServerFrame is a message sent to the client.
type ServerFrame struct {
	Type    string `json:"type"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewResponseFrame carries one turn's joined text.
func NewResponseFrame(text string) *ServerFrame {
	return &ServerFrame{Type: TypeResponse, Data: text}
}

// NewAudioWAVFrame carries one turn's audio as a base64 WAV container.
func NewAudioWAVFrame(b64WAV string) *ServerFrame {
	return &ServerFrame{Type: TypeAudioWAV, Data: b64WAV}
}

// NewErrorFrame is a best-effort failure notice; delivery is not
// guaranteed when the session is already tearing down.
func NewErrorFrame(message string) *ServerFrame {
	return &ServerFrame{Type: TypeError, Message: message}
}

// Encode marshals a server frame for the wire.
func Encode(frame *ServerFrame) ([]byte, error) {
	return sonic.Marshal(frame)
}
