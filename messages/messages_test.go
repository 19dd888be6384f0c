package messages

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetupFrame(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"type":"setup","config":{"voice":"Zephyr"},"userId":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, FrameSetup, frame.Kind)
	require.NotNil(t, frame.Setup)
	assert.Equal(t, "u1", frame.Setup.UserID)
	assert.Contains(t, frame.Setup.Config, "voice")
}

func TestParseSetupFrameLegacy(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"setup":{"generation_config":{"response_modalities":["audio"]}}}`))
	require.NoError(t, err)
	assert.Equal(t, FrameSetup, frame.Kind)
	require.NotNil(t, frame.Setup)
	assert.Empty(t, frame.Setup.UserID)
	assert.Contains(t, frame.Setup.Config, "generation_config")
}

func TestParseSetupFrameLegacyUserID(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"setup":{"userId":"u2","voice":"Puck"}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Setup)
	assert.Equal(t, "u2", frame.Setup.UserID)
	assert.NotContains(t, frame.Setup.Config, "userId")
	assert.Contains(t, frame.Setup.Config, "voice")
}

func TestParseAudioFrame(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"type":"audio","data":"UklGRg=="}`))
	require.NoError(t, err)
	assert.Equal(t, FrameAudio, frame.Kind)
	assert.Equal(t, "UklGRg==", frame.Audio)
}

func TestParseAudioFrameBadPayload(t *testing.T) {
	_, err := ParseClientFrame([]byte(`{"type":"audio","data":42}`))
	assert.Error(t, err)

	_, err = ParseClientFrame([]byte(`{"type":"audio"}`))
	assert.Error(t, err)
}

func TestParseTextFrame(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"type":"text","data":"I feel anxious"}`))
	require.NoError(t, err)
	assert.Equal(t, FrameText, frame.Kind)
	assert.Equal(t, []string{"I feel anxious"}, frame.Texts)
}

func TestParseTextFrameLegacy(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"text":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, FrameText, frame.Kind)
	assert.Equal(t, []string{"hello"}, frame.Texts)
}

func TestParseTextFrameLegacyArray(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"text":["one","two"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, frame.Texts)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := ParseClientFrame([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseClientFrame([]byte(`{"type":"bogus"}`))
	assert.Error(t, err)

	_, err = ParseClientFrame([]byte(`{}`))
	assert.Error(t, err)
}

func TestEncodeServerFrames(t *testing.T) {
	raw, err := Encode(NewResponseFrame("take a slow breath"))
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeResponse, decoded["type"])
	assert.Equal(t, "take a slow breath", decoded["data"])
	assert.NotContains(t, decoded, "message")

	raw, err = Encode(NewAudioWAVFrame("UklGRg=="))
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeAudioWAV, decoded["type"])
	assert.Equal(t, "UklGRg==", decoded["data"])

	raw, err = Encode(NewErrorFrame("upstream unavailable"))
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeError, decoded["type"])
	assert.Equal(t, "upstream unavailable", decoded["message"])
}
