package raknet

import (
	"net/netip"
	"sync"
	"time"
)

// PendingTTL is the lifetime of a PendingConnection from insertion.
const PendingTTL = 10 * time.Second

// PendingConnection is the per-address state created by a valid
// OPEN_CONNECTION_REQUEST_1 and consumed by the matching
// OPEN_CONNECTION_REQUEST_2. It is never read after being returned from
// take — the table transfers ownership by value so the expiry sweep
// and the OCR2 handler can never observe the same entry concurrently.
type PendingConnection struct {
	ProtocolVersion uint8
	Cookie          uint32
	createdAt       time.Time
}

// pendingTable maps a client address to its PendingConnection, expiring
// entries PendingTTL after insertion. It is safe for concurrent use.
//
// This is a sync.Mutex-guarded map plus a single background sweep, the same
// shape as the pack's replayCache (map + eviction), generalized from
// LRU-capacity eviction to wall-clock TTL eviction since nothing in this
// retrieval pack ships a third-party expiring-map for Go.
type pendingTable struct {
	onExpire func(addr netip.AddrPort, entry PendingConnection)

	mu      sync.Mutex
	entries map[netip.AddrPort]PendingConnection

	stop chan struct{}
	once sync.Once
}

func newPendingTable() *pendingTable {
	t := &pendingTable{
		entries: make(map[netip.AddrPort]PendingConnection),
		stop:    make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// insert overwrites any existing entry for addr — a duplicate OCR1 is a
// valid retransmit, and the client is required to use the cookie from the
// latest reply it observed.
func (t *pendingTable) insert(addr netip.AddrPort, protocolVersion uint8, cookie uint32) (duplicate bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, duplicate = t.entries[addr]
	t.entries[addr] = PendingConnection{
		ProtocolVersion: protocolVersion,
		Cookie:          cookie,
		createdAt:       time.Now(),
	}
	return duplicate
}

// take atomically removes and returns the entry for addr, if any and not
// expired.
func (t *pendingTable) take(addr netip.AddrPort) (PendingConnection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[addr]
	if !ok {
		return PendingConnection{}, false
	}
	delete(t.entries, addr)

	if time.Since(entry.createdAt) > PendingTTL {
		return PendingConnection{}, false
	}
	return entry, true
}

func (t *pendingTable) sweepLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stop:
			return
		}
	}
}

func (t *pendingTable) sweep() {
	now := time.Now()

	t.mu.Lock()
	var expired []netip.AddrPort
	for addr, entry := range t.entries {
		if now.Sub(entry.createdAt) > PendingTTL {
			expired = append(expired, addr)
		}
	}
	removed := make([]PendingConnection, 0, len(expired))
	for _, addr := range expired {
		removed = append(removed, t.entries[addr])
		delete(t.entries, addr)
	}
	t.mu.Unlock()

	if t.onExpire == nil {
		return
	}
	for i, addr := range expired {
		t.onExpire(addr, removed[i])
	}
}

// close stops the background sweep. Safe to call more than once.
func (t *pendingTable) close() {
	t.once.Do(func() { close(t.stop) })
}
