package respserver

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Session holds the metadata of one client connection.
// The id and addresses are fixed at accept; the rest is guarded by mu
// because CLIENT LIST reads sessions owned by other connections.
type Session struct {
	id        int64
	addr      string
	laddr     string
	createdAt time.Time

	mu         sync.RWMutex
	libName    string
	libVer     string
	lastActive time.Time
	lastCmd    string
}

// SessionInfo is a copy of a Session's state.
type SessionInfo struct {
	ID         int64
	Addr       string
	LocalAddr  string
	LibName    string
	LibVer     string
	CreatedAt  time.Time
	LastActive time.Time
	LastCmd    string
}

// NewSession creates the session for a freshly accepted connection.
func NewSession(id int64, remote, local net.Addr, now time.Time) *Session {
	return &Session{
		id:         id,
		addr:       addrString(remote),
		laddr:      addrString(local),
		createdAt:  now,
		lastActive: now,
		lastCmd:    "NULL",
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// ID returns the connection id.
func (s *Session) ID() int64 {
	return s.id
}

// Addr returns the remote address.
func (s *Session) Addr() string {
	return s.addr
}

// SetLibName records the client library name.
func (s *Session) SetLibName(name string) {
	s.mu.Lock()
	s.libName = name
	s.mu.Unlock()
}

// SetLibVer records the client library version.
func (s *Session) SetLibVer(ver string) {
	s.mu.Lock()
	s.libVer = ver
	s.mu.Unlock()
}

// touch records activity at now. A non-empty name replaces the last
// command shown by CLIENT INFO.
func (s *Session) touch(name string, now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	if name != "" {
		s.lastCmd = name
	}
	s.mu.Unlock()
}

// Info returns a copy of the session state.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		ID:         s.id,
		Addr:       s.addr,
		LocalAddr:  s.laddr,
		LibName:    s.libName,
		LibVer:     s.libVer,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
		LastCmd:    s.lastCmd,
	}
}

// Line formats the session as a CLIENT INFO line, newline included.
// Buffer and memory fields are fixed placeholders.
func (i SessionInfo) Line(now time.Time) string {
	age := int64(now.Sub(i.CreatedAt) / time.Second)
	idle := int64(now.Sub(i.LastActive) / time.Second)
	if age < 0 {
		age = 0
	}
	if idle < 0 {
		idle = 0
	}

	return fmt.Sprintf("id=%d addr=%s laddr=%s fd=-1 name= age=%d idle=%d flags=N db=0 sub=0 psub=0 ssub=0 "+
		"multi=-1 watch=0 qbuf=0 qbuf-free=%d argv-mem=0 multi-mem=0 rbs=%d rbp=%d obl=0 oll=0 omem=0 "+
		"tot-mem=%d events=r cmd=%s user=default redir=-1 resp=2 lib-name=%s lib-ver=%s io-thread=0\n",
		i.ID, i.Addr, i.LocalAddr, age, idle,
		DefaultReadBufferSize, DefaultReadBufferSize, DefaultReadBufferSize,
		2*DefaultReadBufferSize,
		i.LastCmd, i.LibName, i.LibVer)
}
