package live

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/protocol"
	"github.com/vango-dev/ripple/pkg/scheduler"
	"github.com/vango-dev/ripple/pkg/surface/stream"
	"github.com/vango-dev/ripple/pkg/telemetry"
)

// Defaults.
const (
	DefaultWSPath       = "/ws"
	DefaultMetricsPath  = "/metrics"
	DefaultSendBuffer   = 64
	DefaultWriteTimeout = 10 * time.Second

	// maxClientMessage bounds frames read from clients. They only send
	// control frames.
	maxClientMessage = 4096
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWSPath sets the websocket route.
func WithWSPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.wsPath = path
		}
	}
}

// WithGatherer serves g on path in the Prometheus text format.
func WithGatherer(g prometheus.Gatherer, path string) Option {
	return func(s *Server) {
		s.gatherer = g
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithMetrics records published patches and connected clients.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSendBuffer sets how many frames may wait for a slow client before it
// is dropped.
func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithWriteTimeout sets the deadline of a single websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts
// same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// Server streams a Surface to websocket clients.
type Server struct {
	loop    *scheduler.Loop
	surface *stream.Surface
	logger  *slog.Logger
	metrics *telemetry.Metrics

	router   chi.Router
	upgrader websocket.Upgrader

	wsPath       string
	metricsPath  string
	gatherer     prometheus.Gatherer
	sendBuffer   int
	writeTimeout time.Duration

	mu         sync.Mutex
	clients    map[*client]struct{}
	httpServer *http.Server
	wg         sync.WaitGroup
}

var _ scheduler.Observer = (*Server)(nil)

// New creates a Server for surf, which must only be used on loop.
func New(loop *scheduler.Loop, surf *stream.Surface, opts ...Option) *Server {
	s := &Server{
		loop:         loop,
		surface:      surf,
		wsPath:       DefaultWSPath,
		metricsPath:  DefaultMetricsPath,
		sendBuffer:   DefaultSendBuffer,
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "live")
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/", s.handleHTML)
	r.Get("/frame", s.handleFrame)
	r.Get(s.wsPath, s.handleWebSocket)
	if s.gatherer != nil {
		r.Handle(s.metricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's routes for mounting in another router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// FlushStarted implements scheduler.Observer.
func (s *Server) FlushStarted(int) {}

// JobFinished implements scheduler.Observer.
func (s *Server) JobFinished(scheduler.Job, time.Duration, error) {}

// FlushFinished publishes the flush's patches.
func (s *Server) FlushFinished(int, time.Duration) {
	s.Publish()
}

// Publish sends the surface's queued patches to every client as one frame
// sequence. It must run on the loop goroutine.
func (s *Server) Publish() {
	pf := s.surface.TakeFrame()
	if pf == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.RecordPatches(pf.Patches)
	}

	patches, err := encodeFrames(protocol.PatchFrames(pf))
	if err != nil {
		s.logger.Error("encode patches", "seq", pf.Seq, "patches", len(pf.Patches), "error", err)
		return
	}
	var snapshot [][]byte

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		msgs := patches
		if c.html {
			if snapshot == nil {
				snapshot, _ = encodeFrames(protocol.SnapshotFrames(s.surface.Snapshot()), nil)
			}
			msgs = snapshot
		}
		for _, msg := range msgs {
			if !c.enqueue(msg) {
				s.logger.Warn("dropping slow client", "client", c.id)
				s.removeLocked(c)
				break
			}
		}
	}
	s.logger.Debug("published", "seq", pf.Seq, "patches", len(pf.Patches), "clients", len(s.clients))
}

// initialFrames returns what a new client needs to catch up. Loop goroutine
// only.
func (s *Server) initialFrames(html bool) ([][]byte, error) {
	if html {
		return encodeFrames(protocol.SnapshotFrames(s.surface.Snapshot()), nil)
	}
	return encodeFrames(protocol.PatchFrames(s.surface.Replay()))
}

func encodeFrames(frames []*protocol.Frame, err error) ([][]byte, error) {
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		b, err := f.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Server) addLocked(c *client) {
	s.clients[c] = struct{}{}
	if s.metrics != nil {
		s.metrics.ClientConnected()
	}
}

func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	c.close()
	if s.metrics != nil {
		s.metrics.ClientDisconnected()
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

// join sends pending patches to the existing clients and registers c with
// the frames it needs to catch up. A client that was closed while the join
// was queued is left out. Loop goroutine only.
func (s *Server) join(c *client) {
	s.Publish()
	initial, err := s.initialFrames(c.html)
	if err != nil {
		s.logger.Error("encode initial frames", "client", c.id, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed() {
		return
	}
	c.initial = initial
	s.addLocked(c)
}

// drop closes a client whose registration may still be pending on the loop.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	c.close()
	s.removeLocked(c)
	s.mu.Unlock()
	c.conn.Close()
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	var html string
	err := s.loop.Do(r.Context(), func() {
		html = s.surface.Document().HTML()
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	var msgs [][]byte
	err := s.loop.Do(r.Context(), func() {
		msgs, _ = encodeFrames(protocol.SnapshotFrames(s.surface.Snapshot()), nil)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(bytes.Join(msgs, nil))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Error("websocket upgrade failed", "error", errors.New("L001").Wrap(err))
		return
	}
	conn.SetReadLimit(maxClientMessage)

	c := newClient(conn, s.sendBuffer, r.URL.Query().Get("mode") == "html")
	err = s.loop.Do(r.Context(), func() { s.join(c) })
	if err != nil {
		s.drop(c)
		return
	}
	if c.initial == nil {
		s.remove(c)
		conn.Close()
		return
	}

	s.logger.Info("client connected", "client", c.id, "html", c.html, "remote", r.RemoteAddr)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := c.writeLoop(s.writeTimeout); err != nil {
			s.logger.Debug("write failed", "client", c.id, "error", err)
		}
		s.remove(c)
	}()
	s.readLoop(c)
	s.remove(c)
	s.logger.Info("client disconnected", "client", c.id)
}

// readLoop handles control frames until the connection fails or the client
// is dropped.
func (s *Server) readLoop(c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "client", c.id, "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err == nil && frame.Type != protocol.FrameControl {
			err = stderrors.New("unexpected " + frame.Type.String() + " frame")
		}
		var ctl *protocol.Control
		if err == nil {
			ctl, err = protocol.DecodeControl(frame.Payload)
		}
		if err != nil {
			s.sendError(c, errors.New("L002").Wrap(err))
			continue
		}

		switch ctl.Type {
		case protocol.ControlPing:
			s.sendControl(c, &protocol.Control{Type: protocol.ControlPong, Value: ctl.Value})
		case protocol.ControlPong:
			s.logger.Debug("received pong", "client", c.id)
		case protocol.ControlResyncRequest:
			s.resync(c)
		}
	}
}

// resync sends c a snapshot of the current output. Frames already queued
// for c are older and are ignored by the client.
func (s *Server) resync(c *client) {
	err := s.loop.Submit(func() {
		s.Publish()
		msgs, _ := encodeFrames(protocol.SnapshotFrames(s.surface.Snapshot()), nil)
		for _, msg := range msgs {
			if !c.enqueue(msg) {
				s.remove(c)
				return
			}
		}
	})
	if err != nil {
		s.logger.Warn("resync failed", "client", c.id, "error", err)
	}
}

func (s *Server) sendControl(c *client, ctl *protocol.Control) {
	msg, err := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ctl)).Encode()
	if err == nil && !c.enqueue(msg) {
		s.remove(c)
	}
}

func (s *Server) sendError(c *client, rerr *errors.Error) {
	s.logger.Warn("bad client frame", "client", c.id, "error", rerr)
	em := &protocol.ErrorMessage{Code: rerr.Code, Message: rerr.Error()}
	msg, err := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)).Encode()
	if err == nil && !c.enqueue(msg) {
		s.remove(c)
	}
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("server starting", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, drops every client and waits for
// their writers to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	for c := range s.clients {
		s.removeLocked(c)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	s.logger.Info("server stopped")
	return err
}
