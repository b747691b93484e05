package respserver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/yndnr/respkv/pkg/cmap"
)

// ErrQuit is returned by Handle after QUIT; the reply is still sent.
var ErrQuit = errors.New("resp: client quit")

// Store is the key-value state commands operate on.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	SetWithTTL(key string, value []byte, ttl time.Duration)
}

// ClientLister enumerates live sessions for CLIENT LIST.
type ClientLister interface {
	Clients() []*Session
}

var knownCommands = map[string]struct{}{
	"PING":   {},
	"ECHO":   {},
	"GET":    {},
	"SET":    {},
	"CLIENT": {},
	"QUIT":   {},
}

var clientSubcommands = map[string]struct{}{
	"INFO":    {},
	"ID":      {},
	"LIST":    {},
	"SETINFO": {},
}

// ipLimiter is a token bucket for one client IP.
type ipLimiter struct {
	*rate.Limiter
	lastSeen atomic.Int64
}

// CommandHandler executes commands against a Store.
type CommandHandler struct {
	store   Store
	clients ClientLister
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time

	limit    rate.Limit
	burst    int
	limiters *cmap.Map[string, *ipLimiter]
}

// HandlerOption configures a CommandHandler.
type HandlerOption func(*CommandHandler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *CommandHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHandlerMetrics sets the metrics sink.
func WithHandlerMetrics(m Metrics) HandlerOption {
	return func(h *CommandHandler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithClientLister enables CLIENT LIST.
func WithClientLister(cl ClientLister) HandlerOption {
	return func(h *CommandHandler) {
		h.clients = cl
	}
}

// WithRateLimit limits every client IP to perSecond commands per second
// with the given burst. perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) HandlerOption {
	return func(h *CommandHandler) {
		if perSecond <= 0 {
			h.limiters = nil
			return
		}
		if burst <= 0 {
			burst = int(math.Ceil(perSecond))
		}
		h.limit = rate.Limit(perSecond)
		h.burst = burst
		h.limiters = cmap.New[string, *ipLimiter](cmap.StringHasher)
	}
}

// WithNow replaces the time source used for sessions and rate limiting.
func WithNow(now func() time.Time) HandlerOption {
	return func(h *CommandHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewCommandHandler creates a CommandHandler over store.
func NewCommandHandler(store Store, opts ...HandlerOption) *CommandHandler {
	h := &CommandHandler{
		store:   store,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle executes cmd for sess. Every recoverable problem is reported as
// an error Reply. A non-nil error means the connection must be closed:
// ErrQuit after the reply is written, anything else immediately.
func (h *CommandHandler) Handle(sess *Session, cmd Command) (Reply, error) {
	if len(cmd) == 0 {
		return ErrorReply("ERR no command"), nil
	}
	if !utf8.Valid(cmd[0]) {
		return Reply{}, fmt.Errorf("%w: command name is not valid UTF-8", ErrInvalidEncoding)
	}

	start := h.now()
	label := commandLabel(cmd)
	sess.touch(label, start)

	name := cmd.Name()
	if name != "QUIT" && !h.allow(sess, start) {
		h.metrics.RateLimited()
		return ErrorReply("ERR rate limit exceeded"), nil
	}

	var (
		reply Reply
		err   error
	)
	switch name {
	case "PING":
		reply = h.handlePing(cmd)
	case "ECHO":
		reply = h.handleEcho(cmd)
	case "GET":
		reply = h.handleGet(cmd)
	case "SET":
		reply = h.handleSet(cmd)
	case "CLIENT":
		reply, err = h.handleClient(sess, cmd)
	case "QUIT":
		reply, err = StatusReply("OK"), ErrQuit
	default:
		h.logger.Debug("unknown command", "conn_id", sess.ID(), "command", name)
		reply = ErrorReply("ERR unknown command '" + string(cmd[0]) + "'")
	}

	if label == "" {
		label = "unknown"
	}
	h.metrics.ObserveCommand(label, !reply.IsError(), h.now().Sub(start))
	return reply, err
}

// commandLabel names a known command the way CLIENT INFO reports it
// ("get", "client|info"). Unknown commands yield "".
func commandLabel(cmd Command) string {
	name := cmd.Name()
	if _, ok := knownCommands[name]; !ok {
		return ""
	}
	label := strings.ToLower(name)
	if name == "CLIENT" && len(cmd) > 1 {
		sub := normalizeCommandName(cmd[1])
		if _, ok := clientSubcommands[sub]; ok {
			label += "|" + strings.ToLower(sub)
		}
	}
	return label
}

func wrongArgs(cmd string) Reply {
	return ErrorReply("ERR wrong number of arguments for '" + cmd + "' command")
}

func (h *CommandHandler) handlePing(cmd Command) Reply {
	switch len(cmd) {
	case 1:
		return StatusReply("PONG")
	case 2:
		return BulkReply(cmd[1])
	default:
		return wrongArgs("ping")
	}
}

func (h *CommandHandler) handleEcho(cmd Command) Reply {
	if len(cmd) != 2 {
		return wrongArgs("echo")
	}
	return BulkReply(cmd[1])
}

func (h *CommandHandler) handleGet(cmd Command) Reply {
	if len(cmd) != 2 {
		return wrongArgs("get")
	}
	val, ok := h.store.Get(string(cmd[1]))
	if !ok {
		return NullReply()
	}
	return BulkReply(val)
}

// handleSet handles SET key value [PX milliseconds].
func (h *CommandHandler) handleSet(cmd Command) Reply {
	switch len(cmd) {
	case 3:
		h.store.Set(string(cmd[1]), cmd[2])
		return StatusReply("OK")
	case 5:
		if !strings.EqualFold(string(cmd[3]), "PX") {
			return ErrorReply("ERR syntax error")
		}
		ms, ok := parseMillis(cmd[4])
		if !ok {
			return ErrorReply("ERR value is not an integer or out of range")
		}
		if ms > math.MaxInt64/int64(time.Millisecond) {
			return ErrorReply("ERR invalid expire time in 'set' command")
		}
		h.store.SetWithTTL(string(cmd[1]), cmd[2], time.Duration(ms)*time.Millisecond)
		return StatusReply("OK")
	case 4:
		return ErrorReply("ERR syntax error")
	default:
		if len(cmd) < 3 {
			return wrongArgs("set")
		}
		return ErrorReply("ERR syntax error")
	}
}

// parseMillis accepts only unsigned decimal digits.
func parseMillis(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (h *CommandHandler) handleClient(sess *Session, cmd Command) (Reply, error) {
	if len(cmd) < 2 {
		return wrongArgs("client"), nil
	}
	if !utf8.Valid(cmd[1]) {
		return Reply{}, fmt.Errorf("%w: subcommand is not valid UTF-8", ErrInvalidEncoding)
	}

	sub := normalizeCommandName(cmd[1])
	switch sub {
	case "INFO":
		if len(cmd) != 2 {
			return wrongArgs("client|info"), nil
		}
		return BulkStringReply(sess.Info().Line(h.now())), nil
	case "ID":
		if len(cmd) != 2 {
			return wrongArgs("client|id"), nil
		}
		return IntegerReply(sess.ID()), nil
	case "LIST":
		if len(cmd) != 2 {
			return wrongArgs("client|list"), nil
		}
		return h.handleClientList(sess), nil
	case "SETINFO":
		return h.handleClientSetInfo(sess, cmd)
	default:
		return ErrorReply("ERR unknown subcommand '" + string(cmd[1]) + "'. Try CLIENT HELP."), nil
	}
}

func (h *CommandHandler) handleClientList(sess *Session) Reply {
	now := h.now()
	if h.clients == nil {
		return BulkStringReply(sess.Info().Line(now))
	}
	lines := lo.Map(h.clients.Clients(), func(s *Session, _ int) string {
		return s.Info().Line(now)
	})
	return BulkStringReply(strings.Join(lines, ""))
}

// handleClientSetInfo handles CLIENT SETINFO attr value [attr value ...].
// All pairs are validated before any is applied.
func (h *CommandHandler) handleClientSetInfo(sess *Session, cmd Command) (Reply, error) {
	if len(cmd) < 4 || len(cmd)%2 != 0 {
		return wrongArgs("client|setinfo"), nil
	}

	type update struct {
		attr  string
		value string
	}
	updates := make([]update, 0, (len(cmd)-2)/2)
	for i := 2; i < len(cmd); i += 2 {
		if !utf8.Valid(cmd[i]) {
			return Reply{}, fmt.Errorf("%w: attribute name is not valid UTF-8", ErrInvalidEncoding)
		}
		attr := strings.ToLower(string(cmd[i]))
		switch attr {
		case "lib-name", "lib-ver":
			if !validLibValue(cmd[i+1]) {
				return ErrorReply("ERR " + attr + " cannot contain spaces, newlines or special characters."), nil
			}
			updates = append(updates, update{attr: attr, value: string(cmd[i+1])})
		default:
			// Unknown attributes are accepted and ignored.
		}
	}

	for _, u := range updates {
		if u.attr == "lib-name" {
			sess.SetLibName(u.value)
		} else {
			sess.SetLibVer(u.value)
		}
	}
	return StatusReply("OK"), nil
}

// validLibValue keeps CLIENT INFO lines space separated.
func validLibValue(b []byte) bool {
	for _, c := range b {
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

func (h *CommandHandler) allow(sess *Session, now time.Time) bool {
	if h.limiters == nil {
		return true
	}
	ip := hostOf(sess.Addr())
	l, _ := h.limiters.GetOrSet(ip, func() *ipLimiter {
		return &ipLimiter{Limiter: rate.NewLimiter(h.limit, h.burst)}
	})
	l.lastSeen.Store(now.UnixNano())
	return l.AllowN(now, 1)
}

// PruneLimiters drops rate limiters of IPs idle for longer than idle.
func (h *CommandHandler) PruneLimiters(idle time.Duration) int {
	if h.limiters == nil {
		return 0
	}
	cutoff := h.now().Add(-idle).UnixNano()
	return h.limiters.RemoveIf(func(_ string, l *ipLimiter) bool {
		return l.lastSeen.Load() < cutoff
	})
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
