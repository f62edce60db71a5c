package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/fusion_computer/internal/config"
)

var upgrader = websocket.Upgrader{
	// The dashboard is served from anywhere on the local network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// estimateHub holds the latest estimate and fans each new one out to the
// connected websocket clients.
type estimateHub struct {
	mu       sync.RWMutex
	last     Estimate
	haveLast bool
	clients  map[*websocket.Conn]chan []byte
}

func newEstimateHub() *estimateHub {
	return &estimateHub{clients: make(map[*websocket.Conn]chan []byte)}
}

// update stores the estimate and fans the payload out. Clients whose
// buffers are full skip this frame rather than stall the hub.
func (h *estimateHub) update(e Estimate, payload []byte) {
	h.mu.Lock()
	h.last = e
	h.haveLast = true
	for _, ch := range h.clients {
		select {
		case ch <- payload:
		default: // slow client, skip this frame
		}
	}
	h.mu.Unlock()
}

func (h *estimateHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleEstimate serves the latest estimate as JSON.
func (h *estimateHub) handleEstimate(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.haveLast {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.last); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS upgrades the connection and streams estimates until the
// client goes away.
func (h *estimateHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	ch := make(chan []byte, 16)

	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	log.Printf("web: websocket client connected from %s", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Discard inbound frames. The reader signals the disconnect through
	// done; it must not close ch, which update may still be sending on
	// until the deferred removal runs.
	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}()

	for {
		select {
		case payload := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// RunWeb serves the latest estimate over HTTP JSON and streams every
// estimate to websocket clients.
func RunWeb() error {
	cfg := config.Get()
	hub := newEstimateHub()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to the estimate topic; the hub keeps the snapshot and
	// fans out to websocket clients.
	token := client.Subscribe(cfg.TopicEstimate, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e Estimate
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("web: estimate unmarshal error: %v", err)
			return
		}
		hub.update(e, append([]byte(nil), msg.Payload()...))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicEstimate)

	// 3) JSON API endpoint: latest estimate
	http.HandleFunc("/api/estimate", hub.handleEstimate)

	// 4) Websocket stream of estimates
	http.HandleFunc("/ws", hub.handleWS)

	// 5) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
