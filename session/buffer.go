package session

import (
	"errors"
	"strings"
)

// ErrBufferFull is returned when a chunk would push the turn's audio
// accumulation past its cap.
var ErrBufferFull = errors.New("turn audio buffer full")

// TurnBuffer accumulates one turn of upstream output: PCM fragments
// and text fragments, each flushed independently on the turn-complete
// signal. It is owned by the upstream→client direction alone; the
// writer and the flush run sequentially in the same goroutine, so no
// lock is needed.
type TurnBuffer struct {
	pcmChunks  [][]byte
	pcmSize    int
	maxPCMSize int
	textChunks []string
}

// NewTurnBuffer creates a buffer capping PCM accumulation at
// maxPCMSize bytes per turn.
func NewTurnBuffer(maxPCMSize int) *TurnBuffer {
	return &TurnBuffer{maxPCMSize: maxPCMSize}
}

// MaxPCMSize returns the per-turn audio cap.
func (tb *TurnBuffer) MaxPCMSize() int {
	return tb.maxPCMSize
}

// AppendPCM adds an audio fragment in arrival order. The fragment is
// rejected with ErrBufferFull if it would exceed the cap; earlier
// fragments stay buffered.
func (tb *TurnBuffer) AppendPCM(chunk []byte) error {
	if tb.pcmSize+len(chunk) > tb.maxPCMSize {
		return ErrBufferFull
	}
	tb.pcmChunks = append(tb.pcmChunks, chunk)
	tb.pcmSize += len(chunk)
	return nil
}

// AppendText adds a text fragment in arrival order.
func (tb *TurnBuffer) AppendText(text string) {
	tb.textChunks = append(tb.textChunks, text)
}

// FlushPCM concatenates the buffered audio in order and clears the
// audio accumulator. Returns nil when nothing was buffered.
func (tb *TurnBuffer) FlushPCM() []byte {
	if len(tb.pcmChunks) == 0 {
		return nil
	}

	out := make([]byte, 0, tb.pcmSize)
	for _, chunk := range tb.pcmChunks {
		out = append(out, chunk...)
	}

	tb.pcmChunks = nil
	tb.pcmSize = 0
	return out
}

// FlushText joins the buffered text in order and clears the text
// accumulator. Returns "" when nothing was buffered.
func (tb *TurnBuffer) FlushText() string {
	if len(tb.textChunks) == 0 {
		return ""
	}

	out := strings.Join(tb.textChunks, "")
	tb.textChunks = nil
	return out
}

// PCMSize returns the bytes currently accumulated for this turn.
func (tb *TurnBuffer) PCMSize() int {
	return tb.pcmSize
}

// Reset discards both accumulators without flushing.
func (tb *TurnBuffer) Reset() {
	tb.pcmChunks = nil
	tb.pcmSize = 0
	tb.textChunks = nil
}
