package raknet

import (
	"net/netip"
	"testing"
	"time"
)

func TestPendingTableInsertThenTake(t *testing.T) {
	pt := newPendingTable()
	defer pt.close()

	addr := netip.MustParseAddrPort("203.0.113.1:1")
	if duplicate := pt.insert(addr, 11, 0xCAFE); duplicate {
		t.Fatal("first insert reported as duplicate")
	}

	entry, ok := pt.take(addr)
	if !ok {
		t.Fatal("take found nothing after insert")
	}
	if entry.ProtocolVersion != 11 || entry.Cookie != 0xCAFE {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	if _, ok := pt.take(addr); ok {
		t.Fatal("take returned an entry a second time; it should have been removed")
	}
}

func TestPendingTableDuplicateInsertOverwrites(t *testing.T) {
	pt := newPendingTable()
	defer pt.close()

	addr := netip.MustParseAddrPort("203.0.113.1:1")
	pt.insert(addr, 9, 1)
	duplicate := pt.insert(addr, 9, 2)
	if !duplicate {
		t.Fatal("second insert for the same address not reported as duplicate")
	}

	entry, ok := pt.take(addr)
	if !ok {
		t.Fatal("take found nothing")
	}
	if entry.Cookie != 2 {
		t.Fatalf("cookie = %d, want 2 (the latest insert)", entry.Cookie)
	}
}

func TestPendingTableTakeExpiredEntryFails(t *testing.T) {
	pt := newPendingTable()
	defer pt.close()

	addr := netip.MustParseAddrPort("203.0.113.1:1")
	pt.mu.Lock()
	pt.entries[addr] = PendingConnection{
		ProtocolVersion: 1,
		Cookie:          1,
		createdAt:       time.Now().Add(-(PendingTTL + time.Second)),
	}
	pt.mu.Unlock()

	if _, ok := pt.take(addr); ok {
		t.Fatal("take returned an entry older than PendingTTL")
	}
}

func TestPendingTableSweepRemovesExpiredEntries(t *testing.T) {
	pt := newPendingTable()
	defer pt.close()

	addr := netip.MustParseAddrPort("203.0.113.1:1")
	pt.mu.Lock()
	pt.entries[addr] = PendingConnection{
		ProtocolVersion: 1,
		Cookie:          1,
		createdAt:       time.Now().Add(-(PendingTTL + time.Second)),
	}
	pt.mu.Unlock()

	pt.sweep()

	pt.mu.Lock()
	_, stillPresent := pt.entries[addr]
	pt.mu.Unlock()
	if stillPresent {
		t.Fatal("sweep did not remove an expired entry")
	}
}

func TestPendingTableCloseIsIdempotent(t *testing.T) {
	pt := newPendingTable()
	pt.close()
	pt.close()
}
