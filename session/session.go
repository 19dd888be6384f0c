package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/moodbuddy/relay/audio"
	"github.com/moodbuddy/relay/gemini"
	"github.com/moodbuddy/relay/messages"
	"github.com/moodbuddy/relay/persona"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// Lifecycle states. Closed is terminal and reachable from any state.
const (
	StateAwaitingSetup int32 = iota
	StateConnecting
	StateStreaming
	StateClosed
)

// Close reasons, following the error taxonomy: per-frame problems are
// contained, per-direction problems end the session under one of
// these labels.
const (
	ReasonSetupError      = "setup_error"
	ReasonUpstreamConnect = "upstream_connect_error"
	ReasonUpstreamStream  = "upstream_stream_error"
	ReasonClientClosed    = "client_closed"
	ReasonIdleTimeout     = "idle_timeout"
	ReasonShutdown        = "shutdown"
)

// Upstream is the streaming collaborator surface one session needs.
// *gemini.Proxy implements it; tests substitute fakes.
type Upstream interface {
	SendPCM(pcm []byte) error
	SendText(text string) error
	Receive() (*gemini.Event, error)
	Close() error
}

// UpstreamFactory opens a fresh, exclusively-owned upstream connection
// for one session. There is no client shared across sessions.
type UpstreamFactory func(ctx context.Context, opts gemini.ConnectOptions) (Upstream, error)

// ClientSession relays one client connection: it parses the setup
// frame, opens its own upstream connection with the personalization
// instruction merged in, then runs the two forwarding directions until
// either side terminates.
type ClientSession struct {
	ID           string
	ClientConn   *websocket.Conn
	CreatedAt    time.Time
	LastActivity time.Time

	factory   UpstreamFactory
	builder   *persona.Builder
	upstream  Upstream
	buffer    *TurnBuffer
	keepAlive time.Duration
	log       *logrus.Entry

	state     atomic.Int32
	writeChan chan *messages.ServerFrame

	mu        sync.RWMutex
	closed    bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession wires a session around an accepted client
// connection. The upstream connection is not opened until a valid
// setup frame arrives.
func NewClientSession(id string, clientConn *websocket.Conn, factory UpstreamFactory, builder *persona.Builder, maxBufferSize int, keepAlive time.Duration, log *logrus.Logger) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(512 * 1024) // 512KB max message
	clientConn.EnableWriteCompression(true)

	return &ClientSession{
		ID:           id,
		ClientConn:   clientConn,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		factory:      factory,
		builder:      builder,
		buffer:       NewTurnBuffer(maxBufferSize),
		keepAlive:    keepAlive,
		log:          log.WithField("session", shortID(id)),
		writeChan:    make(chan *messages.ServerFrame, writeBufferSize),
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// State returns the current lifecycle state.
func (cs *ClientSession) State() int32 {
	return cs.state.Load()
}

// Run drives the session through its lifecycle and blocks until it is
// closed. Cleanup runs exactly once, on every exit path.
func (cs *ClientSession) Run() {
	defer cs.Close()

	go cs.writePump()

	setup, err := cs.awaitSetup()
	if err != nil {
		cs.log.WithError(err).Warnf("⚠️ closing session: %s", ReasonSetupError)
		cs.queueFrame(messages.NewErrorFrame("invalid setup frame"))
		return
	}

	cs.state.Store(StateConnecting)

	instruction := cs.builder.Build(cs.ctx, setup.UserID)
	up, err := cs.factory(cs.ctx, gemini.ConnectOptions{
		SystemInstruction: instruction,
		Config:            setup.Config,
	})
	if err != nil {
		cs.log.WithError(err).Errorf("❌ closing session: %s", ReasonUpstreamConnect)
		cs.queueFrame(messages.NewErrorFrame("upstream connection failed"))
		return
	}
	cs.upstream = up

	cs.state.Store(StateStreaming)
	cs.log.Info("✅ session streaming")

	type directionResult struct {
		direction string
		err       error
	}
	results := make(chan directionResult, 2)

	go func() {
		results <- directionResult{"client→upstream", cs.forwardClientToUpstream()}
	}()
	go func() {
		results <- directionResult{"upstream→client", cs.forwardUpstreamToClient()}
	}()

	// First direction to terminate ends the session; Close cancels
	// the sibling.
	select {
	case res := <-results:
		reason := ReasonClientClosed
		if res.direction == "upstream→client" {
			reason = ReasonUpstreamStream
		}
		if res.err != nil {
			cs.log.WithError(res.err).Infof("🔌 %s terminated: %s", res.direction, reason)
		} else {
			cs.log.Infof("🔌 %s terminated: %s", res.direction, reason)
		}
	case <-cs.CloseChan:
	}
}

// awaitSetup blocks on the first inbound frame, which must be a valid
// setup frame. Anything else is a SetupError: the session ends with no
// retry.
func (cs *ClientSession) awaitSetup() (*messages.SetupFrame, error) {
	_, data, err := cs.ClientConn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading setup frame: %w", err)
	}
	cs.touch()

	frame, err := messages.ParseClientFrame(data)
	if err != nil {
		return nil, err
	}
	if frame.Kind != messages.FrameSetup {
		return nil, fmt.Errorf("first frame must be setup")
	}
	return frame.Setup, nil
}

// forwardClientToUpstream consumes client frames in arrival order
// until the connection closes or an upstream send fails. Malformed
// frames and unsupported audio are contained to the frame.
func (cs *ClientSession) forwardClientToUpstream() error {
	for {
		select {
		case <-cs.CloseChan:
			return nil
		default:
		}

		messageType, data, err := cs.ClientConn.ReadMessage()
		if err != nil {
			return err
		}
		cs.touch()

		// Binary frames carry the container bytes directly.
		if messageType == websocket.BinaryMessage {
			if err := cs.forwardAudio(data); err != nil {
				return err
			}
			continue
		}

		if err := cs.handleClientFrame(data); err != nil {
			return err
		}
	}
}

// handleClientFrame processes one inbound JSON frame. A malformed or
// unsupported frame is dropped; only an upstream send failure is
// returned, which ends the direction.
func (cs *ClientSession) handleClientFrame(data []byte) error {
	frame, err := messages.ParseClientFrame(data)
	if err != nil {
		cs.log.WithError(err).Debug("skipping malformed frame")
		return nil
	}

	switch frame.Kind {
	case messages.FrameSetup:
		// Setup is immutable once the upstream session opened.
		cs.log.Debug("dropping duplicate setup frame")

	case messages.FrameAudio:
		decoded, err := base64.StdEncoding.DecodeString(frame.Audio)
		if err != nil {
			cs.log.WithError(err).Debug("skipping audio frame: bad base64")
			return nil
		}
		return cs.forwardAudio(decoded)

	case messages.FrameText:
		for _, text := range frame.Texts {
			if strings.TrimSpace(text) == "" {
				continue
			}
			if err := cs.upstream.SendText(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// forwardAudio classifies one audio payload; WAV is stripped to raw
// PCM and pushed upstream, every other classification is dropped.
// Only an upstream send failure is returned.
func (cs *ClientSession) forwardAudio(data []byte) error {
	format := audio.DetectFormat(data)
	if format != audio.FormatWAV {
		cs.log.WithField("format", format.String()).Debug("dropping unsupported audio container")
		return nil
	}

	pcm, err := audio.StripWAV(data)
	if err != nil {
		cs.log.WithError(err).Debug("dropping audio frame")
		return nil
	}
	return cs.upstream.SendPCM(pcm)
}

// forwardUpstreamToClient consumes upstream events in arrival order,
// accumulating parts in the turn buffer and flushing on each
// turn-complete signal.
func (cs *ClientSession) forwardUpstreamToClient() error {
	for {
		select {
		case <-cs.CloseChan:
			return nil
		default:
		}

		ev, err := cs.upstream.Receive()
		if err != nil {
			return err
		}
		cs.handleUpstreamEvent(ev)
	}
}

// handleUpstreamEvent buffers the event's parts and, on turn-complete,
// flushes audio and text independently: a turn with only one kind
// sends only that message, a turn with neither sends nothing.
func (cs *ClientSession) handleUpstreamEvent(ev *gemini.Event) {
	for _, part := range ev.Parts {
		switch part.Kind {
		case gemini.PartText:
			cs.buffer.AppendText(part.Text)
		case gemini.PartAudio:
			if err := cs.buffer.AppendPCM(part.PCM); err != nil {
				cs.log.WithField("buffered", cs.buffer.PCMSize()).Warn("⚠️ turn audio cap reached, dropping fragment")
			}
		}
	}

	if !ev.TurnComplete {
		return
	}

	if pcm := cs.buffer.FlushPCM(); len(pcm) > 0 {
		wav := audio.WrapPCM(pcm, gemini.OutputSampleRate, 1, 16)
		cs.queueFrame(messages.NewAudioWAVFrame(base64.StdEncoding.EncodeToString(wav)))
	}
	if text := cs.buffer.FlushText(); text != "" {
		cs.queueFrame(messages.NewResponseFrame(text))
	}
}

// writePump owns all writes to the client connection. Frames are
// queued by queueFrame; pings keep the connection alive between
// turns.
func (cs *ClientSession) writePump() {
	var keepAliveC <-chan time.Time
	if cs.keepAlive > 0 {
		ticker := time.NewTicker(cs.keepAlive)
		defer ticker.Stop()
		keepAliveC = ticker.C
	}

	defer func() {
		cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return

		case <-keepAliveC:
			cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case frame := <-cs.writeChan:
			data, err := messages.Encode(frame)
			if err != nil {
				cs.log.WithError(err).Error("failed to encode frame")
				continue
			}
			cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// queueFrame adds a frame to the write queue without blocking the
// forwarding directions.
func (cs *ClientSession) queueFrame(frame *messages.ServerFrame) {
	cs.mu.RLock()
	closed := cs.closed
	cs.mu.RUnlock()
	if closed {
		return
	}

	select {
	case cs.writeChan <- frame:
		cs.touch()
	default:
		cs.log.Warn("⚠️ write queue full, dropping frame")
	}
}

func (cs *ClientSession) touch() {
	cs.mu.Lock()
	cs.LastActivity = time.Now()
	cs.mu.Unlock()
}

// IdleSince returns the last activity timestamp.
func (cs *ClientSession) IdleSince() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.LastActivity
}

// IsClosed reports whether the session has terminated.
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

// Close terminates the session: both directions are cancelled, the
// upstream connection is released, then the client connection. Safe
// to call from any state and more than once.
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	cs.mu.Unlock()

	cs.state.Store(StateClosed)
	cs.cancel()
	close(cs.CloseChan)

	cs.buffer.Reset()

	if cs.upstream != nil {
		cs.upstream.Close()
	}
	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}

	return nil
}
