// Package preview mirrors the strip to browsers over a websocket and takes
// simulated button presses back.
package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// DefaultThrottle limits frames sent to clients to about 20 per second.
const DefaultThrottle = 50 * time.Millisecond

// Server is a render.Strip that broadcasts every refreshed frame.
type Server struct {
	// Throttle is the minimum gap between broadcast frames.
	Throttle time.Duration
	// Status adds fields to /health.
	Status func() map[string]any
	// OnPress is called for {"press": "<button>"} control messages.
	OnPress func(model.Button)

	log zerolog.Logger

	mu       sync.RWMutex
	pix      model.PixelStrip
	frameID  uint64
	dropped  uint64
	start    time.Time
	lastEmit time.Time
	clients  map[*client]bool
}

// clientQueue is the number of frames buffered per client before frames are
// dropped for it.
const clientQueue = 4

const writeWait = 200 * time.Millisecond

// client owns one frames connection. Only its writer goroutine writes to
// conn, so Refresh never blocks on the network.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// New returns a server with no clients.
func New(logger zerolog.Logger) *Server {
	return &Server{
		Throttle: DefaultThrottle,
		log:      logger.With().Str("component", "preview").Logger(),
		start:    time.Now(),
		clients:  map[*client]bool{},
	}
}

func (s *Server) SetPixel(i int, r, g, b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pix.Set(i, model.NewRGB(r, g, b)) {
		return errors.Errorf("preview: pixel %d out of range", i)
	}
	return nil
}

// Refresh broadcasts the staged frame unless the last one went out less than
// Throttle ago.
func (s *Server) Refresh() error {
	now := time.Now()
	s.mu.Lock()
	s.frameID++
	if s.Throttle > 0 && s.lastEmit.Add(s.Throttle).After(now) {
		s.mu.Unlock()
		return nil
	}
	s.lastEmit = now
	f := frameMsg{T: now.UnixNano(), FrameID: s.frameID, RGB: s.pix.Serialize()}
	s.mu.Unlock()

	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.broadcast(b)
	return nil
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type topologyMsg struct {
	Count   int            `json:"count"`
	Glyphs  string         `json:"glyphs"`
	Buttons map[string]int `json:"buttons"`
}

func topology() topologyMsg {
	t := topologyMsg{Count: model.StripLength, Buttons: map[string]int{}}
	for i := 0; i < model.GlyphCount; i++ {
		c, _ := model.IndexToChar(i)
		t.Glyphs += string(c)
	}
	for _, b := range model.Buttons {
		t.Buttons[b.String()] = b.Index()
	}
	return t
}

// broadcast queues b for every client. A client whose queue is full misses
// the frame.
func (s *Server) broadcast(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			s.dropped++
		}
	}
}

// Dropped is the number of frames skipped for slow clients.
func (s *Server) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for {
		select {
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.log.Debug().Err(err).Msg("write frame")
				return
			}
		case <-c.done:
			return
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleFramesWS sends the strip layout, then every frame.
func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue), done: make(chan struct{})}
	if b, err := json.Marshal(topology()); err == nil {
		c.send <- b
	}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	go s.writeLoop(c)

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			close(c.done)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleControlWS accepts {"press": "SUP"} style messages.
func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Press string `json:"press"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		b := model.ParseButton(msg.Press)
		if !b.Valid() {
			s.log.Debug().Str("press", msg.Press).Msg("unknown button")
			continue
		}
		s.log.Info().Stringer("button", b).Msg("remote press")
		if s.OnPress != nil {
			s.OnPress(b)
		}
	}
}

// HandleHealth reports frame count and uptime as JSON.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.start).Seconds(),
		"count":    model.StripLength,
		"clients":  len(s.clients),
	}
	s.mu.RUnlock()
	if s.Status != nil {
		for k, v := range s.Status() {
			resp[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Handler routes /ws, /control and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()
	s.log.Info().Str("addr", addr).Msg("preview listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "preview server")
	}
	return nil
}
