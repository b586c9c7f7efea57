package session

import (
	"net"
	"net/netip"
	"sync"

	"github.com/riftcrane/raknet/raknet"
)

// Manager owns every live Session sharing one net.PacketConn and
// implements raknet.SessionFactory, so a Handler (see the raknet package)
// can hand off a completed handshake straight into a real transport.
//
// This plays the role of the teacher's Listener, generalized from
// PeerID-keyed multiplexing (Minetest peers renegotiate an ID) to
// address-keyed multiplexing, since RakNet sessions are already uniquely
// identified by the address the handshake validated.
type Manager struct {
	pc net.PacketConn

	accepted chan *Session

	mu       sync.Mutex
	sessions map[netip.AddrPort]*Session
}

// NewManager creates a Manager writing to and reading from pc. Callers
// must feed every non-handshake datagram received on pc into Dispatch.
func NewManager(pc net.PacketConn) *Manager {
	return &Manager{
		pc:       pc,
		accepted: make(chan *Session, 16),
		sessions: make(map[netip.AddrPort]*Session),
	}
}

// CreateChildSession implements raknet.SessionFactory. It returns (nil,
// nil) if a session already exists for addr, which the handshake state
// machine turns into an ALREADY_CONNECTED reply.
func (m *Manager) CreateChildSession(addr netip.AddrPort, clientGUID uint64, protocolVersion uint8, mtu uint16) (raknet.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[addr]; ok {
		return nil, nil
	}

	s := newSession(m.pc, addr)
	m.sessions[addr] = s

	go func() {
		<-s.disco
		m.mu.Lock()
		delete(m.sessions, addr)
		m.mu.Unlock()
	}()

	select {
	case m.accepted <- s:
	default:
		// Backlog full; the session is still usable, just not surfaced
		// through Accept until a slot frees up.
	}

	return s, nil
}

// Accept returns the next Session created by a completed handshake. It
// blocks until one is available or Close is called.
func (m *Manager) Accept() (*Session, error) {
	s, ok := <-m.accepted
	if !ok {
		return nil, net.ErrClosed
	}
	return s, nil
}

// Dispatch routes a datagram already known not to be a handshake packet
// to the Session registered for addr. It reports whether a Session
// handled it; false means the datagram belongs to no live session and
// the caller should drop it.
func (m *Manager) Dispatch(addr netip.AddrPort, data []byte) bool {
	m.mu.Lock()
	s, ok := m.sessions[addr]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if err := s.HandleFrame(data); err != nil {
		s.reportErr(err)
	}
	return true
}

// Close closes every live Session and stops Accept from blocking further.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	close(m.accepted)
	return nil
}
