package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tidwall/resp"
)

// DefaultTimeout bounds dialing and each command when the context has no
// deadline.
const DefaultTimeout = 5 * time.Second

// DefaultLibName is reported through CLIENT SETINFO after connecting.
const DefaultLibName = "respkv-cli"

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("connection: client closed")

// Client is a connection to a respkv server. Commands are serialized, so a
// Client may be shared between goroutines.
type Client struct {
	addr    string
	timeout time.Duration
	libName string
	libVer  string

	mu     sync.Mutex
	conn   net.Conn
	rd     *resp.Reader
	wr     *resp.Writer
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the dial and per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLibInfo sets the library name and version sent with CLIENT SETINFO.
// An empty name disables the handshake.
func WithLibInfo(name, version string) Option {
	return func(c *Client) {
		c.libName = name
		c.libVer = version
	}
}

// Dial connects to addr and announces the client library.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	c := &Client{
		addr:    addr,
		timeout: DefaultTimeout,
		libName: DefaultLibName,
	}
	for _, opt := range opts {
		opt(c)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	c.conn = conn
	c.rd = resp.NewReader(conn)
	c.wr = resp.NewWriter(conn)

	if c.libName != "" {
		if err := c.setInfo(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) setInfo(ctx context.Context) error {
	args := []string{"CLIENT", "SETINFO", "lib-name", c.libName}
	if c.libVer != "" {
		args = append(args, "lib-ver", c.libVer)
	}
	reply, err := c.Do(ctx, args...)
	if err != nil {
		return fmt.Errorf("client setinfo: %w", err)
	}
	if err := reply.Err(); err != nil {
		return fmt.Errorf("client setinfo: %w", err)
	}
	return nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends one command and waits for its reply. An error reply is not an
// error here; use Reply.Err.
func (c *Client) Do(ctx context.Context, args ...string) (Reply, error) {
	if len(args) == 0 {
		return Reply{}, errors.New("connection: empty command")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Reply{}, ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return Reply{}, err
	}

	vals := make([]resp.Value, len(args))
	for i, a := range args {
		vals[i] = resp.StringValue(a)
	}
	if err := c.wr.WriteArray(vals); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	v, _, err := c.rd.ReadValue()
	if err != nil {
		return Reply{}, fmt.Errorf("receive: %w", err)
	}
	return fromValue(v)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
