package ws

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("classroom agent not connected")

const writeWait = 5 * time.Second

type agentConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
}

func (a *agentConn) write(messageType int, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return a.conn.WriteMessage(messageType, payload)
}

// Manager keeps one websocket per classroom agent.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*agentConn
	log    *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	return &Manager{agents: make(map[string]*agentConn), log: log}
}

// Register registers the agent connection of classroom, closing any
// previous one.
func (m *Manager) Register(classroom string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.agents[classroom]; ok && old.conn != conn {
		_ = old.conn.Close()
	}
	m.agents[classroom] = &agentConn{conn: conn}
}

// Unregister drops conn if it is still the registered connection of classroom.
func (m *Manager) Unregister(classroom string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agents[classroom]; ok && a.conn == conn {
		_ = a.conn.Close()
		delete(m.agents, classroom)
	}
}

func (m *Manager) Send(classroom string, payload []byte) error {
	m.mu.RLock()
	a, ok := m.agents[classroom]
	m.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	return a.write(websocket.TextMessage, payload)
}

// Ping writes a control ping to classroom's agent.
func (m *Manager) Ping(classroom string) error {
	m.mu.RLock()
	a, ok := m.agents[classroom]
	m.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (m *Manager) IsConnected(classroom string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.agents[classroom]
	return ok
}

// List returns the connected classrooms in order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.agents))
	for c := range m.agents {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// PendingMessage wakes an agent up so that it polls for work.
type PendingMessage struct {
	Type      string `json:"type"`
	Classroom string `json:"classroom"`
	Count     int    `json:"count"`
}

// NotifyPending tells a connected agent that count new events wait for it.
// Agents that are not connected are skipped; they pick the events up on
// their next poll.
func (m *Manager) NotifyPending(classroom string, count int) {
	if !m.IsConnected(classroom) {
		return
	}
	payload, err := json.Marshal(PendingMessage{Type: "events_pending", Classroom: classroom, Count: count})
	if err != nil {
		m.log.Error("marshal pending notification", zap.Error(err))
		return
	}
	if err := m.Send(classroom, payload); err != nil {
		m.log.Warn("agent notification failed",
			zap.String("classroom", classroom),
			zap.Error(err))
		m.mu.RLock()
		a := m.agents[classroom]
		m.mu.RUnlock()
		if a != nil {
			m.Unregister(classroom, a.conn)
		}
	}
}

// CloseAll closes every agent connection.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c, a := range m.agents {
		_ = a.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = a.conn.Close()
		delete(m.agents, c)
	}
}
