package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnBufferPCMOrderAndClear(t *testing.T) {
	tb := NewTurnBuffer(1024)

	require.NoError(t, tb.AppendPCM([]byte{1, 2}))
	require.NoError(t, tb.AppendPCM([]byte{3}))
	require.NoError(t, tb.AppendPCM([]byte{4, 5}))
	assert.Equal(t, 5, tb.PCMSize())

	assert.Equal(t, []byte{1, 2, 3, 4, 5}, tb.FlushPCM())
	assert.Equal(t, 0, tb.PCMSize())
	assert.Nil(t, tb.FlushPCM(), "second flush has nothing")
}

func TestTurnBufferPCMCap(t *testing.T) {
	tb := NewTurnBuffer(4)

	require.NoError(t, tb.AppendPCM([]byte{1, 2, 3}))
	err := tb.AppendPCM([]byte{4, 5})
	assert.ErrorIs(t, err, ErrBufferFull)

	// Earlier fragments survive the rejected append
	assert.Equal(t, []byte{1, 2, 3}, tb.FlushPCM())
}

func TestTurnBufferTextJoin(t *testing.T) {
	tb := NewTurnBuffer(1024)

	tb.AppendText("take a ")
	tb.AppendText("slow breath")

	assert.Equal(t, "take a slow breath", tb.FlushText())
	assert.Equal(t, "", tb.FlushText())
}

func TestTurnBufferIndependentAccumulators(t *testing.T) {
	tb := NewTurnBuffer(1024)

	tb.AppendText("hello")
	require.NoError(t, tb.AppendPCM([]byte{9}))

	// Flushing one kind leaves the other untouched
	assert.Equal(t, []byte{9}, tb.FlushPCM())
	assert.Equal(t, "hello", tb.FlushText())
}

func TestTurnBufferReset(t *testing.T) {
	tb := NewTurnBuffer(1024)
	tb.AppendText("discard me")
	require.NoError(t, tb.AppendPCM([]byte{1}))

	tb.Reset()
	assert.Nil(t, tb.FlushPCM())
	assert.Equal(t, "", tb.FlushText())
}
