package metrics

import (
	"net/netip"

	"github.com/riftcrane/raknet/raknet"
)

// Sink is the default raknet.MetricsSink: one counter per handshake
// event, keyed by opcode for connection_init.
type Sink struct {
	UnconnectedPings Counter
	ConnectionInits  map[raknet.Opcode]*Counter
}

// NewSink creates a Sink tracking OCR1 and OCR2 separately.
func NewSink() *Sink {
	return &Sink{
		ConnectionInits: map[raknet.Opcode]*Counter{
			raknet.OpcodeOpenConnectionRequest1: {},
			raknet.OpcodeOpenConnectionRequest2: {},
		},
	}
}

func (s *Sink) UnconnectedPing(netip.AddrPort) {
	s.UnconnectedPings.Add(1)
}

func (s *Sink) ConnectionInit(_ netip.AddrPort, opcode raknet.Opcode) {
	if c, ok := s.ConnectionInits[opcode]; ok {
		c.Add(1)
	}
}
