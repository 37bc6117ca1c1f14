package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-hedgevault/internal/metrics"
	"go-hedgevault/internal/notify"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Should check Origin in production environment
		return true
	},
}

// Connection is one websocket observer.
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan []byte
	LastPing time.Time
}

// PushMessage is the wire envelope delivered to observers.
type PushMessage struct {
	Type      string              `json:"type"`
	Timestamp string              `json:"timestamp"`
	MessageID string              `json:"message_id"`
	Data      notify.Notification `json:"data"`
}

// WebSocketPushService broadcasts every notification to all connected
// observers. It implements notify.Publisher so it can be fanned into the
// notification pipeline next to NATS and the database log.
type WebSocketPushService struct {
	connections map[string]*Connection
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewWebSocketPushService creates the service and starts its hub loop.
func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}

	go service.run()
	return service
}

// Publish queues a notification for broadcast. Never blocks the caller: a
// full hub drops the message rather than stalling a state transition.
func (s *WebSocketPushService) Publish(n notify.Notification) error {
	message := PushMessage{
		Type:      string(n.Kind),
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		Data:      n,
	}

	select {
	case s.hub <- message:
	default:
		log.Printf("⚠️ WebSocket hub full, dropping %s", n.Kind)
	}
	return nil
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)

		case conn := <-s.unregister:
			s.handleUnregister(conn)

		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	s.connections[conn.ID] = conn
	total := len(s.connections)
	s.mutex.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	log.Printf("📱 WebSocket connection registered: connID=%s (total %d)", conn.ID, total)
}

func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	if _, exists := s.connections[conn.ID]; exists {
		delete(s.connections, conn.ID)
		close(conn.Send)
	}
	total := len(s.connections)
	s.mutex.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	log.Printf("📱 WebSocket connection unregistered: connID=%s (total %d)", conn.ID, total)
}

func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal push message: %v", err)
		return
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, conn := range s.connections {
		select {
		case conn.Send <- data:
		default:
			// Slow consumer; skip rather than block the hub.
			log.Printf("⚠️ WebSocket send buffer full, skipping connID=%s", conn.ID)
		}
	}
}

// HandleWebSocket upgrades the request and attaches the connection to the
// broadcast hub.
func (s *WebSocketPushService) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	connection := &Connection{
		ID:       uuid.New().String(),
		Conn:     conn,
		Send:     make(chan []byte, 256),
		LastPing: time.Now(),
	}

	s.register <- connection

	go s.handleConnectionWrite(connection)
	go s.handleConnectionRead(connection)
}

func (s *WebSocketPushService) handleConnectionWrite(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write message failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketPushService) handleConnectionRead(conn *Connection) {
	defer func() {
		s.unregister <- conn
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.LastPing = time.Now()
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}
	}
}
