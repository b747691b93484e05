package connection

import (
	"context"
	"sync"
)

// Manager holds the current connection of an interactive session.
type Manager struct {
	opts []Option

	mu      sync.Mutex
	current *Client
}

// NewManager creates a manager that dials with opts.
func NewManager(opts ...Option) *Manager {
	return &Manager{opts: opts}
}

// Connect dials addr and replaces the current connection on success.
func (m *Manager) Connect(ctx context.Context, addr string) (*Client, error) {
	c, err := Dial(ctx, addr, m.opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.current
	m.current = c
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return c, nil
}

// Disconnect closes the current connection.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	c := m.current
	m.current = nil
	m.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// Current returns the current connection or nil.
func (m *Manager) Current() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}
