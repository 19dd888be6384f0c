package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"wav", append([]byte("RIFF\x24\x00\x00\x00WAVE"), make([]byte, 8)...), FormatWAV},
		{"mp3 id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"), FormatMP3},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3},
		{"mp4 ftyp", []byte("\x00\x00\x00\x20ftypisom\x00\x00\x02\x00"), FormatMP4},
		{"ogg", []byte("OggS\x00\x02\x00\x00"), FormatOGG},
		{"webm ebml", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01, 0x00}, FormatWebM},
		{"empty", nil, FormatUnknown},
		{"garbage", []byte("hello world"), FormatUnknown},
		{"riff but not wave", []byte("RIFF\x24\x00\x00\x00AVI LIST"), FormatUnknown},
		{"truncated riff", []byte("RIFF"), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestStripWAVRejectsNonWAV(t *testing.T) {
	_, err := StripWAV([]byte("OggS\x00\x02\x00\x00"))
	assert.Error(t, err)

	_, err = StripWAV([]byte("not audio at all"))
	assert.Error(t, err)
}

func TestStripWAVRejectsTruncatedHeader(t *testing.T) {
	// Valid magic but shorter than the canonical header
	_, err := StripWAV([]byte("RIFF\x24\x00\x00\x00WAVEfmt "))
	assert.Error(t, err)
}

func TestWrapPCMHeaderFields(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	wav := WrapPCM(pcm, 24000, 1, 16)

	require.Len(t, wav, WAVHeaderSize+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]), "PCM format tag")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]), "channels")
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]), "sample rate")
	assert.Equal(t, uint32(24000*2), binary.LittleEndian.Uint32(wav[28:32]), "byte rate")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]), "block align")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]), "bit depth")
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]), "data size")

	assert.Equal(t, pcm, wav[WAVHeaderSize:])
}

func TestWrapThenStripRoundTrips(t *testing.T) {
	pcm := make([]byte, 320)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav := WrapPCM(pcm, 16000, 1, 16)
	require.Equal(t, FormatWAV, DetectFormat(wav))

	got, err := StripWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, pcm, got)

	// Wrapping the stripped payload again reproduces the container
	assert.Equal(t, wav, WrapPCM(got, 16000, 1, 16))
}

func TestWrapPCMEmptyPayload(t *testing.T) {
	wav := WrapPCM(nil, 16000, 1, 16)
	require.Len(t, wav, WAVHeaderSize)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(wav[40:44]))
}
