// Package websocket streams a review screen's sections to the browser as
// each backend fetch completes.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"listening-review/internal/datasource"
	"listening-review/internal/middleware"
	"listening-review/internal/models"
	"listening-review/internal/render"
	"listening-review/internal/review"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Screens is the part of the review controller the hub drives.
type Screens interface {
	Screen(ctx context.Context, id uuid.UUID) (*review.Screen, error)
	Activate(ctx context.Context, s *review.Screen, n review.Notifier) error
}

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// load is one in-flight activation. It outlives the socket that started
// it and is cancelled when the screen's last socket on this instance leaves.
type load struct {
	cancel context.CancelFunc
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	cancelFuncs map[uuid.UUID]context.CancelFunc
	loads       map[uuid.UUID]*load

	ctx  context.Context
	stop context.CancelFunc

	redisClient *redis.Client
	auth        *middleware.JWTAuth
	screens     Screens
	renderer    *render.Renderer
}

// NewHub creates a hub. With a nil redisClient events go straight to the
// local connections; otherwise they fan out through Redis pub/sub so any
// instance holding the socket can deliver them.
func NewHub(redisClient *redis.Client, auth *middleware.JWTAuth, screens Screens, renderer *render.Renderer) *Hub {
	ctx, stop := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		loads:       make(map[uuid.UUID]*load),
		ctx:         ctx,
		stop:        stop,
		redisClient: redisClient,
		auth:        auth,
		screens:     screens,
		renderer:    renderer,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	screenID, err := h.auth.ParseScreenToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	screen, err := h.screens.Screen(r.Context(), screenID)
	if errors.Is(err, review.ErrScreenNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("WebSocket: failed to load screen %s: %v", screenID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	if err := h.registerConnection(screenID, c); err != nil {
		log.Printf("WebSocket: subscribe for screen %s failed: %v", screenID, err)
		h.unregisterConnection(screenID, c)
		return
	}

	go func() {
		defer h.unregisterConnection(screenID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Read again now that the socket receives broadcasts, so no section
	// finished in between is lost.
	screen, err = h.screens.Screen(h.ctx, screenID)
	if err != nil {
		log.Printf("WebSocket: failed to reload screen %s: %v", screenID, err)
		conn.Close()
		return
	}

	if screen.State == review.StateIdle {
		if ctx, ld, ok := h.claim(screenID, r.Header.Get("Cookie")); ok {
			go h.activate(ctx, ld, screen)
			return
		}
	}
	h.replay(c, screen)
}

// claim starts a load for screenID unless one is already running on this
// instance. The load carries the browser's cookies to the backend.
func (h *Hub) claim(screenID uuid.UUID, cookie string) (context.Context, *load, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, running := h.loads[screenID]; running {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(datasource.WithCookies(h.ctx, cookie))
	ld := &load{cancel: cancel}
	h.loads[screenID] = ld
	return ctx, ld, true
}

func (h *Hub) release(screenID uuid.UUID, ld *load) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ld.cancel()
	if h.loads[screenID] == ld {
		delete(h.loads, screenID)
	}
}

func (h *Hub) activate(ctx context.Context, ld *load, screen *review.Screen) {
	defer h.release(screen.ID, ld)

	n := &screenNotifier{hub: h, ctx: ctx, l: h.renderer.ScreenLocale(screen)}
	err := h.screens.Activate(ctx, screen, n)
	if err == nil || ctx.Err() != nil {
		return
	}

	log.Printf("WebSocket: activation of screen %s failed: %v", screen.ID, err)
	html, rerr := h.renderer.Toast(n.l, render.ToastDanger, "A network error occurred.")
	if rerr != nil {
		log.Printf("WebSocket: %v", rerr)
	}
	h.publish(ctx, screen.ID, models.WSMessage{
		Type: models.EventError,
		Payload: models.ErrorEvent{
			ScreenID:     screen.ID,
			ErrorCode:    "LOAD_FAILED",
			ErrorMessage: n.l.T("A network error occurred."),
			HTML:         string(html),
		},
	})
}

// replay sends the current state of a screen that is already loading or
// loaded to a newly connected socket.
func (h *Hub) replay(c *client, screen *review.Screen) {
	l := h.renderer.ScreenLocale(screen)
	for _, sec := range review.Sections {
		html, err := h.renderer.Section(l, screen, sec)
		if err != nil {
			log.Printf("WebSocket: %v", err)
			continue
		}
		h.send(c, models.WSMessage{
			Type: models.EventSection,
			Payload: models.SectionUpdate{
				ScreenID: screen.ID,
				Section:  string(sec),
				Status:   string(screen.Sections[sec]),
				HTML:     string(html),
			},
		})
	}
	if !screen.Loaded() {
		return
	}
	if msg, ok := statsMessage(h.renderer, l, screen); ok {
		h.send(c, msg)
	}
	h.send(c, completedMessage(screen))
}

func (h *Hub) send(c *client, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket: failed to encode %s event: %v", msg.Type, err)
		return
	}
	if err := c.write(data); err != nil {
		log.Printf("WebSocket: write failed: %v", err)
	}
}

func (h *Hub) registerConnection(screenID uuid.UUID, c *client) error {
	h.mu.Lock()
	h.connections[screenID] = append(h.connections[screenID], c)
	first := len(h.connections[screenID]) == 1
	total := len(h.connections[screenID])
	h.mu.Unlock()

	log.Printf("WebSocket connected: screen %s (total: %d)", screenID, total)

	// Start pub/sub subscription if this is the first connection for this screen
	if first && h.redisClient != nil {
		return h.subscribe(screenID)
	}
	return nil
}

func (h *Hub) unregisterConnection(screenID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[screenID]
	for i, existing := range conns {
		if existing == c {
			h.connections[screenID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub and abandon the load
	if len(h.connections[screenID]) == 0 {
		delete(h.connections, screenID)
		if cancel, ok := h.cancelFuncs[screenID]; ok {
			cancel()
			delete(h.cancelFuncs, screenID)
		}
		if ld, ok := h.loads[screenID]; ok {
			ld.cancel()
			delete(h.loads, screenID)
		}
	}

	log.Printf("WebSocket disconnected: screen %s", screenID)
}

func channelName(screenID uuid.UUID) string {
	return "screen_updates:" + screenID.String()
}

// subscribe waits for Redis to confirm the subscription, so events
// published by the load that follows are not missed.
func (h *Hub) subscribe(screenID uuid.UUID) error {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := h.redisClient.Subscribe(ctx, channelName(screenID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return err
	}

	h.mu.Lock()
	h.cancelFuncs[screenID] = cancel
	h.mu.Unlock()

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.broadcast(screenID, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

// publish delivers msg to every socket watching screenID.
func (h *Hub) publish(ctx context.Context, screenID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket: failed to encode %s event: %v", msg.Type, err)
		return
	}
	if h.redisClient == nil {
		h.broadcast(screenID, data)
		return
	}
	if err := h.redisClient.Publish(ctx, channelName(screenID), data).Err(); err != nil {
		log.Printf("WebSocket: publish to screen %s failed: %v", screenID, err)
	}
}

func (h *Hub) broadcast(screenID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[screenID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket: write to screen %s failed: %v", screenID, err)
		}
	}
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, id)
	}
	for id, conns := range h.connections {
		for _, c := range conns {
			c.conn.Close()
		}
		delete(h.connections, id)
	}
}
