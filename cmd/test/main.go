// Manual test client: connects to the relay, sends the setup frame,
// then forwards stdin lines as text turns and/or one WAV file as an
// audio turn. Returned audio turns are played through sox.
package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sync"

	"github.com/gorilla/websocket"
)

type serverFrame struct {
	Type    string `json:"type"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// AudioPlayer streams WAV audio via sox
type AudioPlayer struct {
	mu     sync.Mutex
	closed bool
}

func (p *AudioPlayer) Play(wavData []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	cmd := exec.Command("sox", "-t", "wav", "-", "-d")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Println("sox stdin error:", err)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Println("sox start error:", err)
		return
	}
	stdin.Write(wavData)
	stdin.Close()
	cmd.Wait()
}

func (p *AudioPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	userID := flag.String("user", "", "User id for personalization (optional)")
	audioFile := flag.String("file", "", "WAV file to send as one audio turn (optional)")
	saveDir := flag.String("save", "", "Directory to save returned WAV turns instead of playing them")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	player := &AudioPlayer{}
	defer player.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	turn := 0

	// Read responses from server
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			var frame serverFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				log.Println("Parse error:", err)
				continue
			}

			switch frame.Type {
			case "response":
				fmt.Printf("📝 %s\n", frame.Data)

			case "audio_wav":
				wavBytes, err := base64.StdEncoding.DecodeString(frame.Data)
				if err != nil {
					log.Println("Audio decode error:", err)
					continue
				}
				turn++
				if *saveDir != "" {
					path := fmt.Sprintf("%s/turn-%03d.wav", *saveDir, turn)
					if err := os.WriteFile(path, wavBytes, 0o644); err != nil {
						log.Println("Save error:", err)
						continue
					}
					log.Printf("💾 Saved audio turn: %s (%d bytes)", path, len(wavBytes))
				} else {
					log.Printf("🔊 Playing audio turn: %d bytes", len(wavBytes))
					player.Play(wavBytes)
				}

			case "error":
				log.Printf("❌ Error: %s", frame.Message)
			}
		}
	}()

	// Setup must be the first frame
	setup := map[string]any{
		"type":   "setup",
		"config": map[string]any{},
	}
	if *userID != "" {
		setup["userId"] = *userID
	}
	if err := conn.WriteJSON(setup); err != nil {
		log.Fatalf("Failed to send setup: %v", err)
	}
	log.Println("📤 Sent setup frame")

	if *audioFile != "" {
		wavData, err := os.ReadFile(*audioFile)
		if err != nil {
			log.Fatalf("Failed to load audio: %v", err)
		}
		frame := map[string]string{
			"type": "audio",
			"data": base64.StdEncoding.EncodeToString(wavData),
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Fatalf("Failed to send audio: %v", err)
		}
		log.Printf("📤 Sent audio file: %s (%d bytes)", *audioFile, len(wavData))
	}

	// Forward stdin lines as text turns
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			frame := map[string]string{"type": "text", "data": line}
			if err := conn.WriteJSON(frame); err != nil {
				log.Println("Send error:", err)
				return
			}
		}
		if err := scanner.Err(); err != nil && err != io.EOF {
			log.Println("Stdin error:", err)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing...")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
