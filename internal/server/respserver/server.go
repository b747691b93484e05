package respserver

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/pkg/cmap"
)

// Config holds the RESP server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// ReadTimeout bounds reading the rest of a frame once it has started.
	// Zero disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply. Zero disables it.
	WriteTimeout time.Duration
	// IdleTimeout closes connections with no pending frame for this long.
	// Zero disables it, leaving peer close as the only end of a connection.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per IP.
	// Zero disables rate limiting.
	RateLimit float64
	// RateBurst is the token bucket size; zero means one second of RateLimit.
	RateBurst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address: "127.0.0.1:6379",
	}
}

const (
	limiterPruneInterval = time.Minute
	limiterIdleTTL       = 5 * time.Minute
	maxAcceptBackoff     = time.Second
)

// Server accepts RESP connections and serves them against a Store.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	logger  *slog.Logger
	metrics Metrics

	lnMu sync.Mutex
	ln   net.Listener

	running atomic.Bool
	nextID  atomic.Int64
	clients *cmap.Map[int64, *client]

	// stopMu orders wg.Add against the close of stopCh, so no connection
	// is added once Shutdown may be waiting.
	stopMu sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// MessageWriter is implemented by connections that deliver output as
// discrete messages, such as WebSockets. FlushMessage is called once per
// reply, after the reply's bytes have been written.
type MessageWriter interface {
	FlushMessage() error
}

// client is one live connection.
type client struct {
	sess   *Session
	conn   net.Conn
	closed atomic.Bool
}

func (c *client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a server for store.
func New(cfg *Config, store Store, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:     cfg,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		clients: cmap.New[int64, *client](cmap.Int64Hasher),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = NewCommandHandler(store,
		WithHandlerLogger(s.logger),
		WithHandlerMetrics(s.metrics),
		WithClientLister(s),
		WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	return s
}

// Handler returns the command handler.
func (s *Server) Handler() *CommandHandler {
	return s.handler
}

// Start listens on the configured address and serves connections in the
// background until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}

	s.lnMu.Lock()
	s.ln = ln
	s.lnMu.Unlock()
	s.running.Store(true)

	s.logger.Info("resp server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("resp accept loop stopped", "error", err)
		}
	}()

	if s.cfg.RateLimit > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pruneLimiters(ctx)
		}()
	}

	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes live connections and waits for their
// goroutines to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	s.stopMu.Lock()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.stopMu.Unlock()

	var firstErr error
	s.lnMu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	s.lnMu.Unlock()

	s.clients.Range(func(_ int64, c *client) bool {
		_ = c.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Clients returns the live sessions ordered by id.
func (s *Server) Clients() []*Session {
	clients := s.clients.Values()
	slices.SortFunc(clients, func(a, b *client) int {
		return cmp.Compare(a.sess.ID(), b.sess.ID())
	})
	sessions := make([]*Session, len(clients))
	for i, c := range clients {
		sessions[i] = c.sess
	}
	return sessions
}

// ClientCount returns the number of live connections.
func (s *Server) ClientCount() int {
	return s.clients.Count()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			// Transient failures such as EMFILE: back off and retry.
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			s.logger.Warn("accept error, retrying", "error", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-s.stopCh:
				return nil
			}
		}
		backoff = 0

		if !s.track() {
			_ = c.Close()
			return nil
		}
		// Ids follow accept order.
		id := s.nextID.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(ctx, c, id)
		}()
	}
}

// ServeConn serves one connection until the peer closes it, a fatal
// protocol error occurs or the server shuts down. It closes conn.
// Connections arriving after Shutdown are closed at once.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	if !s.track() {
		_ = conn.Close()
		return
	}
	defer s.wg.Done()
	s.serve(ctx, conn, s.nextID.Add(1))
}

// track adds one connection goroutine to wg unless Shutdown has begun.
func (s *Server) track() bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	select {
	case <-s.stopCh:
		return false
	default:
	}
	s.wg.Add(1)
	return true
}

func (s *Server) serve(ctx context.Context, conn net.Conn, id int64) {
	c := &client{
		sess: NewSession(id, conn.RemoteAddr(), conn.LocalAddr(), time.Now()),
		conn: conn,
	}
	s.clients.Set(c.sess.ID(), c)
	s.metrics.ConnOpened()
	defer func() {
		s.clients.Delete(c.sess.ID())
		_ = c.Close()
		s.metrics.ConnClosed()
	}()

	// Shutdown may have swept the registry before this client was added.
	select {
	case <-s.stopCh:
		return
	default:
	}

	ctx = logger.WithConnID(logger.WithSlog(ctx, s.logger.With("remote", c.sess.Addr())), c.sess.ID())
	logger.FromContext(ctx).Debug("connection opened")
	s.serveConn(ctx, c)
}

func (s *Server) serveConn(ctx context.Context, c *client) {
	log := logger.FromContext(ctx)
	fr := NewFrameReader(c.conn)
	bw := bufio.NewWriter(c.conn)

	for {
		if ctx.Err() != nil {
			return
		}
		s.setReadDeadline(c.conn, fr.Buffered() > 0)

		cmd, err := fr.ReadCommand()
		if err != nil {
			s.handleReadError(c, bw, log, err)
			return
		}

		reply, err := s.handler.Handle(c.sess, cmd)
		if err != nil && !errors.Is(err, ErrQuit) {
			s.metrics.ProtocolError()
			log.Warn("closing connection", "error", err)
			s.writeFatal(c.conn, bw, err)
			return
		}

		s.setWriteDeadline(c.conn)
		if werr := WriteReply(bw, reply); werr != nil {
			log.Debug("write error", "error", werr)
			return
		}
		if werr := flushReply(c.conn, bw); werr != nil {
			log.Debug("flush error", "error", werr)
			return
		}

		if errors.Is(err, ErrQuit) {
			log.Debug("client quit")
			return
		}
	}
}

func (s *Server) handleReadError(c *client, bw *bufio.Writer, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF):
		log.Debug("connection closed by peer")
	case errors.Is(err, io.ErrUnexpectedEOF):
		log.Debug("connection closed inside a frame")
	case errors.Is(err, ErrLimitExceeded), errors.Is(err, ErrProtocol):
		s.metrics.ProtocolError()
		log.Warn("protocol error", "error", err)
		s.writeFatal(c.conn, bw, err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.Debug("connection timed out")
			return
		}
		if c.closed.Load() {
			return
		}
		log.Debug("connection read error", "error", err)
	}
}

// writeFatal sends a best-effort error before the connection is closed.
func (s *Server) writeFatal(conn net.Conn, bw *bufio.Writer, err error) {
	s.setWriteDeadline(conn)
	_ = WriteError(bw, "ERR "+strings.TrimPrefix(err.Error(), "resp: "))
	_ = flushReply(conn, bw)
}

// flushReply pushes one complete reply to the peer.
func flushReply(conn net.Conn, bw *bufio.Writer) error {
	if err := bw.Flush(); err != nil {
		return err
	}
	if mw, ok := conn.(MessageWriter); ok {
		return mw.FlushMessage()
	}
	return nil
}

// setReadDeadline applies IdleTimeout while waiting for a new frame and
// ReadTimeout while a frame is partially buffered.
func (s *Server) setReadDeadline(conn net.Conn, midFrame bool) {
	if s.cfg.IdleTimeout <= 0 && s.cfg.ReadTimeout <= 0 {
		return
	}
	timeout := s.cfg.IdleTimeout
	if midFrame && s.cfg.ReadTimeout > 0 {
		timeout = s.cfg.ReadTimeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	_ = conn.SetReadDeadline(deadline)
}

func (s *Server) setWriteDeadline(conn net.Conn) {
	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
}

func (s *Server) pruneLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.handler.PruneLimiters(limiterIdleTTL); n > 0 {
				s.logger.Debug("pruned idle rate limiters", "count", n)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
