// Package session adapts the teacher's Minetest RUDP transport into the
// post-handshake child-session transport a successful RakNet handshake
// hands off into: reliable/ordered delivery over UDP, split-packet
// reassembly, and ack-gated resend, carrying raknet.RakMessage payloads.
package session

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/riftcrane/raknet/raknet"
)

const (
	// ConnTimeout is how long a Session is kept alive without receiving
	// any frame from its peer.
	ConnTimeout = 30 * time.Second

	// PingTimeout is how long a Session waits without sending anything
	// before sending a keepalive ping.
	PingTimeout = 5 * time.Second

	// resendInterval is how often an unacked reliable frame is resent.
	resendInterval = 500 * time.Millisecond
)

// Session is the default raknet.Session implementation: a single
// reliable/ordered RUDP-style connection to one client address, sharing
// the server's net.PacketConn with the handshake listener and every other
// Session (datagrams are demultiplexed by address in Manager).
type Session struct {
	pc   net.PacketConn
	addr netip.AddrPort

	msgs chan raknet.RakMessage
	errs chan error

	disco chan struct{} // close-only
	once  sync.Once

	chans [ChannelCount]channelState

	mu      sync.RWMutex
	timeout *time.Timer
	ping    *time.Ticker
}

type inSplit struct {
	chunks    [][]byte
	size, got int
}

// channelState is the per-channel bookkeeping a reliable/ordered
// connection needs: reassembly of split messages, in-order delivery of
// reliable frames, and the seqnum/ack plumbing for outbound reliable
// sends. Directly mirrors the teacher's pktchan.
type channelState struct {
	inSplit map[seqnum]*inSplit
	inRelSN seqnum
	inRel   map[seqnum][]byte

	ackChans sync.Map // map[seqnum]chan struct{}

	outSplitMu sync.Mutex
	outSplitSN seqnum

	outRelMu  sync.Mutex
	outRelSN  seqnum
	outRelWin seqnum
}

func newSession(pc net.PacketConn, addr netip.AddrPort) *Session {
	s := &Session{
		pc:    pc,
		addr:  addr,
		msgs:  make(chan raknet.RakMessage, 64),
		errs:  make(chan error, 1),
		disco: make(chan struct{}),
	}
	for i := range s.chans {
		s.chans[i] = channelState{
			inSplit:    make(map[seqnum]*inSplit),
			inRel:      make(map[seqnum][]byte),
			inRelSN:    seqnumInit,
			outSplitSN: seqnumInit,
			outRelSN:   seqnumInit,
			outRelWin:  seqnumInit,
		}
	}

	s.timeout = time.AfterFunc(ConnTimeout, func() {
		s.sendDisco()
		s.Close()
	})
	s.ping = time.NewTicker(PingTimeout)
	go s.sendPings()

	return s
}

// RemoteAddr returns the client address this Session is bound to.
func (s *Session) RemoteAddr() net.Addr {
	return net.UDPAddrFromAddrPort(s.addr)
}

// Recv blocks until a message is available, the session closes, or an
// internal error occurs.
func (s *Session) Recv() (raknet.RakMessage, error) {
	select {
	case msg := <-s.msgs:
		return msg, nil
	case err := <-s.errs:
		return raknet.RakMessage{}, err
	case <-s.disco:
		return raknet.RakMessage{}, net.ErrClosed
	}
}

// Close closes the Session without sending a disconnect frame. It never
// returns an error on a second call; it simply has no further effect.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		if s.timeout != nil {
			s.timeout.Stop()
		}
		if s.ping != nil {
			s.ping.Stop()
		}
		s.mu.Unlock()
		close(s.disco)
	})
	return nil
}

func (s *Session) isClosed() bool {
	select {
	case <-s.disco:
		return true
	default:
		return false
	}
}

func (s *Session) sendPings() {
	for {
		select {
		case <-s.ping.C:
			if err := s.writeFrame(0, []byte{uint8(rawTypeCtl), uint8(ctlPing)}); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					s.reportErr(fmt.Errorf("session: send ping: %w", err))
				}
			}
		case <-s.disco:
			return
		}
	}
}

func (s *Session) sendDisco() {
	_ = s.writeFrame(0, []byte{uint8(rawTypeCtl), uint8(ctlDisco)})
}

func (s *Session) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *Session) writeFrame(channel uint8, data []byte) error {
	if s.isClosed() {
		return net.ErrClosed
	}
	// data already begins with its own rawType byte; frame layout on the
	// wire is [rawType][channel][rest of data].
	buf := make([]byte, frameHdrSize+len(data)-1)
	buf[0] = data[0]
	buf[1] = channel
	copy(buf[frameHdrSize:], data[1:])
	_, err := s.pc.WriteTo(buf, s.RemoteAddr())
	if err == nil {
		s.mu.RLock()
		if s.ping != nil {
			s.ping.Reset(PingTimeout)
		}
		s.mu.RUnlock()
	}
	return err
}

func (s *Session) resetTimeout() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.timeout != nil {
		s.timeout.Reset(ConnTimeout)
	}
}
