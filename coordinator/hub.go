package coordinator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	registerDashboard = "register_dashboard"
	registerNode      = "register_node"
)

var errUnknownRegistration = errors.New("unknown registration type")

// registration is the single inbound message a connection may send. A
// malformed message is a recoverable per-message error; a connection that
// never registers stays inert.
type registration struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
}

func (r registration) validate() error {
	switch r.Type {
	case registerDashboard:
		return nil
	case registerNode:
		if r.Address == "" {
			return errors.New("node registration requires an address")
		}

		return nil
	default:
		return errUnknownRegistration
	}
}

type hubConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

func (c *hubConn) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the registry of live viewer and trainer connections. All
// registry mutations go through the hub's single mutex; no connection map is
// shared with other components. Every broadcast carries the full read-model
// snapshot, so a connection that misses any number of ticks is fully
// resynced by the next one.
type Hub struct {
	mu sync.Mutex

	logger     *slog.Logger
	snapshot   func() ReadModel
	dashboards map[*hubConn]struct{}
	nodes      map[string]*hubConn
}

func NewHub(snapshot func() ReadModel, logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		snapshot:   snapshot,
		dashboards: make(map[*hubConn]struct{}),
		nodes:      make(map[string]*hubConn),
	}
}

// HandleConn reads registration messages until the connection drops, then
// removes any registration it held. It blocks and is run per connection.
func (h *Hub) HandleConn(ws *websocket.Conn) {
	conn := &hubConn{ws: ws}
	defer func() {
		ws.Close()
		h.unregister(conn)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var reg registration
		if err := json.Unmarshal(data, &reg); err != nil {
			h.logger.Warn("dropping malformed hub message", slog.Any("error", err))

			continue
		}
		if err := reg.validate(); err != nil {
			h.logger.Warn("dropping invalid registration", slog.Any("error", err))

			continue
		}

		switch reg.Type {
		case registerDashboard:
			h.addDashboard(conn)
		case registerNode:
			h.addNode(reg.Address, conn)
		}
	}
}

func (h *Hub) addDashboard(conn *hubConn) {
	h.mu.Lock()
	h.dashboards[conn] = struct{}{}
	h.mu.Unlock()

	// A fresh dashboard gets the current snapshot immediately instead of
	// waiting for the next tick.
	h.Broadcast()
}

// addNode enforces address uniqueness among registered nodes with
// last-registration-wins: a stale connection holding the same address loses
// its registration before the new one is added.
func (h *Hub) addNode(address string, conn *hubConn) {
	h.mu.Lock()
	if prev, ok := h.nodes[address]; ok && prev != conn {
		prev.ws.Close()
	}
	h.nodes[address] = conn
	h.mu.Unlock()

	h.logger.Info("training node registered", slog.String("address", address))
	h.Broadcast()
}

func (h *Hub) unregister(conn *hubConn) {
	h.mu.Lock()
	delete(h.dashboards, conn)

	wasNode := false
	for addr, c := range h.nodes {
		if c == conn {
			delete(h.nodes, addr)
			wasNode = true
		}
	}
	h.mu.Unlock()

	// Presence changed only if a node left; a dashboard leaving is not
	// observable state for anyone else.
	if wasNode {
		h.Broadcast()
	}
}

// Participants lists the registered node addresses, sorted for stable
// snapshots.
func (h *Hub) Participants() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	addrs := make([]string, 0, len(h.nodes))
	for a := range h.nodes {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	return addrs
}

// Broadcast pushes the full current read model to every dashboard. Delivery
// is best-effort, at most once per tick; a failed write drops the
// connection and the next tick resyncs survivors.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	if len(h.dashboards) == 0 {
		h.mu.Unlock()

		return
	}
	conns := make([]*hubConn, 0, len(h.dashboards))
	for c := range h.dashboards {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	model := h.snapshot()
	model.Participants = h.Participants()

	data, err := json.Marshal(model)
	if err != nil {
		h.logger.Error("failed to marshal read model snapshot", slog.Any("error", err))

		return
	}

	for _, c := range conns {
		if err := c.send(data); err != nil {
			h.logger.Warn("dropping unresponsive dashboard", slog.Any("error", err))
			c.ws.Close()
			h.mu.Lock()
			delete(h.dashboards, c)
			h.mu.Unlock()
		}
	}
}
