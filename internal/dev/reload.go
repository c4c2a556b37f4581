package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	// ReloadTypeVersion announces the dev version of the active manifest.
	ReloadTypeVersion ReloadMessageType = "version"
	ReloadTypeError   ReloadMessageType = "error"
	ReloadTypeClear   ReloadMessageType = "clear"
)

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type    ReloadMessageType `json:"type"`
	Version string            `json:"version,omitempty"`
	Error   string            `json:"error,omitempty"`
}

const writeWait = 5 * time.Second

// ReloadServer broadcasts manifest versions to connected browsers. A new
// connection immediately receives the current version so a tab that missed
// a swap while disconnected still notices it.
type ReloadServer struct {
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger

	version string
	lastErr string
}

// NewReloadServer creates a new reload server.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dev only
			},
		},
		logger: logger.With("component", "dev.reload"),
	}
}

// ServeHTTP upgrades the connection and keeps it until the client leaves.
func (r *ReloadServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("upgrade failed", "error", err)
		return
	}

	lock := &sync.Mutex{}
	r.mu.Lock()
	r.clients[conn] = lock
	hello := []ReloadMessage{}
	if r.version != "" {
		hello = append(hello, ReloadMessage{Type: ReloadTypeVersion, Version: r.version})
	}
	if r.lastErr != "" {
		hello = append(hello, ReloadMessage{Type: ReloadTypeError, Error: r.lastErr})
	}
	r.mu.Unlock()

	for _, msg := range hello {
		if err := r.send(conn, lock, msg); err != nil {
			r.drop(conn)
			return
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	r.drop(conn)
}

// NotifyVersion records and broadcasts a new manifest version.
func (r *ReloadServer) NotifyVersion(version string) {
	r.mu.Lock()
	r.version = version
	r.lastErr = ""
	r.mu.Unlock()
	r.broadcast(ReloadMessage{Type: ReloadTypeVersion, Version: version})
}

// NotifyError sends a rebuild error to all clients. The previous manifest
// stays active.
func (r *ReloadServer) NotifyError(errMsg string) {
	r.mu.Lock()
	r.lastErr = errMsg
	r.mu.Unlock()
	r.broadcast(ReloadMessage{Type: ReloadTypeError, Error: errMsg})
}

// ClearError clears the error overlay on all clients.
func (r *ReloadServer) ClearError() {
	r.mu.Lock()
	r.lastErr = ""
	r.mu.Unlock()
	r.broadcast(ReloadMessage{Type: ReloadTypeClear})
}

// Version returns the last broadcast version.
func (r *ReloadServer) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *ReloadServer) broadcast(msg ReloadMessage) {
	r.mu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(r.clients))
	for c, l := range r.clients {
		clients[c] = l
	}
	r.mu.RUnlock()

	for client, lock := range clients {
		if err := r.send(client, lock, msg); err != nil {
			r.drop(client)
		}
	}
}

func (r *ReloadServer) send(conn *websocket.Conn, lock *sync.Mutex, msg ReloadMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (r *ReloadServer) drop(conn *websocket.Conn) {
	r.mu.Lock()
	delete(r.clients, conn)
	r.mu.Unlock()
	conn.Close()
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		client.Close()
		delete(r.clients, client)
	}
}

// ClientScript returns the browser snippet that reloads the page when the
// dev version changes. path is the websocket endpoint.
func ClientScript(path string) string {
	return `<script>
(function() {
    var version = null;
    var delay = 1000;
    function connect() {
        var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(proto + '//' + location.host + ` + strconv.Quote(path) + `);
        ws.onopen = function() { delay = 1000; };
        ws.onmessage = function(e) {
            var msg;
            try { msg = JSON.parse(e.data); } catch (err) { return; }
            if (msg.type === 'version') {
                if (version !== null && version !== msg.version) { location.reload(); }
                version = msg.version;
            } else if (msg.type === 'error') {
                console.error('[transit] rebuild failed:', msg.error);
            }
        };
        ws.onclose = function() {
            setTimeout(function() { delay = Math.min(delay * 2, 30000); connect(); }, delay);
        };
    }
    connect();
})();
</script>`
}
