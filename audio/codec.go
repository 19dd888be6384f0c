// Package audio classifies audio containers by magic number and
// converts between raw PCM and the minimal WAV container the relay
// speaks on its client edge.
package audio

import (
	"encoding/binary"
	"fmt"
)

// Format identifies an audio container recognized by DetectFormat.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatMP4
	FormatOGG
	FormatWebM
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatMP4:
		return "mp4"
	case FormatOGG:
		return "ogg"
	case FormatWebM:
		return "webm"
	default:
		return "unknown"
	}
}

// WAVHeaderSize is the length of the canonical PCM WAV header.
const WAVHeaderSize = 44

// DetectFormat inspects the leading bytes of data against known
// container magic numbers. Unknown is a valid classification, not an
// error: the buffer simply isn't a container we recognize.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0:
		// MPEG frame sync without an ID3 tag
		return FormatMP3
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		return FormatMP4
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatOGG
	case len(data) >= 4 && data[0] == 0x1A && data[1] == 0x45 && data[2] == 0xDF && data[3] == 0xA3:
		// EBML header (WebM/Matroska)
		return FormatWebM
	default:
		return FormatUnknown
	}
}

// StripWAV returns the PCM payload after the canonical 44-byte WAV
// header. Callers must have classified data as FormatWAV first; any
// other container is unsupported and rejected.
func StripWAV(data []byte) ([]byte, error) {
	if DetectFormat(data) != FormatWAV {
		return nil, fmt.Errorf("not a WAV container")
	}
	if len(data) < WAVHeaderSize {
		return nil, fmt.Errorf("WAV data truncated: %d bytes", len(data))
	}
	return data[WAVHeaderSize:], nil
}

// WrapPCM wraps raw little-endian PCM samples with a canonical 44-byte
// WAV header. The single allocation is the output buffer.
//
// Gemini Live output is 24000 Hz, 16-bit, mono.
func WrapPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, WAVHeaderSize+dataLen)

	// RIFF chunk descriptor
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen)) // File size - 8
	copy(out[8:12], "WAVE")

	// fmt sub-chunk
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)                    // Sub-chunk size (16 for PCM)
	binary.LittleEndian.PutUint16(out[20:22], 1)                     // Audio format (1 = PCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))      // Number of channels
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))    // Sample rate
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))      // Byte rate
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))    // Block align
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitsPerSample)) // Bits per sample

	// data sub-chunk
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	copy(out[WAVHeaderSize:], pcm)
	return out
}
