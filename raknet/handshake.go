package raknet

import (
	"log/slog"
	"net/netip"
)

// PingEvent is delivered to Handler.OnPing when ServerIdentity.HandlePingExternally
// is set, instead of the handler answering the ping itself.
type PingEvent struct {
	Sender   netip.AddrPort
	PingTime uint64
}

// AddrLogger renders an address for log output. The default logs the raw
// address; addrhash.Logger (see the addrhash package) renders a keyed hash
// instead so default-level logs don't accumulate raw client IPs.
type AddrLogger func(netip.AddrPort) slog.Value

func defaultAddrLogger(addr netip.AddrPort) slog.Value {
	return slog.StringValue(addr.String())
}

// Handler runs the offline handshake state machine described in §4.5 of
// the spec: ping/pong, OPEN_CONNECTION_REQUEST_{1,2}, and the
// per-address pending-connection table backing them.
//
// A Handler owns a background goroutine (the pending-table expiry sweep)
// and must be closed with Close when the listener shuts down.
type Handler struct {
	Identity *ServerIdentity
	Factory  SessionFactory

	// Metrics receives unconnected_ping/connection_init events. Defaults
	// to a no-op sink if nil.
	Metrics MetricsSink

	// Logger receives trace/debug-level records of handshake activity.
	// Defaults to slog.Default() if nil.
	Logger *slog.Logger

	// OnPing is invoked instead of replying with UNCONNECTED_PONG when
	// Identity.HandlePingExternally is true. It must not block.
	OnPing func(PingEvent)

	// AddrLog renders addresses for log fields; defaults to the raw
	// address. Set to addrhash.Logger(secret) to avoid persisting raw
	// client IPs in default-level logs.
	AddrLog AddrLogger

	pending *pendingTable
}

// NewHandler constructs a Handler. identity and factory must be non-nil.
func NewHandler(identity *ServerIdentity, factory SessionFactory) *Handler {
	return &Handler{
		Identity: identity,
		Factory:  factory,
		pending:  newPendingTable(),
	}
}

// Close stops the handler's background pending-connection expiry sweep.
func (h *Handler) Close() error {
	h.pending.close()
	return nil
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) metrics() MetricsSink {
	if h.Metrics != nil {
		return h.Metrics
	}
	return noopMetrics{}
}

func (h *Handler) addrLog(addr netip.AddrPort) slog.Value {
	if h.AddrLog != nil {
		return h.AddrLog(addr)
	}
	return defaultAddrLogger(addr)
}

// HandleDatagram processes a single offline-opcode datagram from sender.
// Callers must have already established, via Accept, that data is an
// offline RakNet datagram with the configured magic. A nil, nil return
// means "silent drop, nothing to send"; a non-nil reply must be written
// back to sender verbatim.
func (h *Handler) HandleDatagram(sender netip.AddrPort, data []byte) (reply []byte, err error) {
	c := &cursor{buf: data}

	opcode := Opcode(c.u8())
	switch opcode {
	case OpcodeUnconnectedPing:
		return h.handlePing(sender, c)
	case OpcodeOpenConnectionRequest1:
		h.metrics().ConnectionInit(sender, opcode)
		return h.handleOCR1(sender, c)
	case OpcodeOpenConnectionRequest2:
		h.metrics().ConnectionInit(sender, opcode)
		return h.handleOCR2(sender, c)
	default:
		// Accept should have filtered this out already; nothing to do.
		return nil, nil
	}
}

func (h *Handler) handlePing(sender netip.AddrPort, c *cursor) (reply []byte, err error) {
	var pingTime uint64
	decErr := decode(func() {
		pingTime = c.u64()
		c.take(MagicSize) // already verified by Accept
	})
	if decErr != nil {
		return nil, nil
	}

	h.metrics().UnconnectedPing(sender)

	if h.Identity.HandlePingExternally {
		if h.OnPing != nil {
			h.OnPing(PingEvent{Sender: sender, PingTime: pingTime})
		}
		return nil, nil
	}

	adv := h.Identity.Advertisement
	size := 1 + 8 + 8 + MagicSize
	if adv != nil {
		size += 2 + len(adv)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, uint8(OpcodeUnconnectedPong))
	buf = be.AppendUint64(buf, pingTime)
	buf = be.AppendUint64(buf, h.Identity.GUID)
	buf = append(buf, h.Identity.Magic[:]...)
	if adv != nil {
		buf = be.AppendUint16(buf, uint16(len(adv)))
		buf = append(buf, adv...)
	}
	return buf, nil
}

func (h *Handler) handleOCR1(sender netip.AddrPort, c *cursor) (reply []byte, err error) {
	var protocolVersion uint8
	var mtuCandidate int

	decErr := decode(func() {
		c.take(MagicSize) // already verified by Accept
		protocolVersion = c.u8()

		ipHeader := 20
		if sender.Addr().Is6() && !sender.Addr().Is4In6() {
			ipHeader = 40
		}
		mtuCandidate = c.remaining() + 1 + MagicSize + 1 + ipHeader + 8
	})
	if decErr != nil {
		return nil, nil
	}

	if ok, latest := h.Identity.supports(protocolVersion); !ok {
		h.logger().Debug("raknet: incompatible protocol version",
			"addr", h.addrLog(sender), "version", protocolVersion, "latest", latest)
		return h.replyIncompatibleVersion(latest), nil
	}

	var cookie uint32
	if h.Identity.SendCookie {
		cookie, err = newCookie()
		if err != nil {
			return nil, err
		}
	}

	duplicate := h.pending.insert(sender, protocolVersion, cookie)
	if duplicate {
		h.logger().Debug("raknet: duplicate OPEN_CONNECTION_REQUEST_1", "addr", h.addrLog(sender))
	}

	mtu := clampU16(clampToUint16(mtuCandidate), h.Identity.MinMTU, h.Identity.MaxMTU)

	size := 1 + MagicSize + 8 + 1
	if h.Identity.SendCookie {
		size += 4
	}
	size += 2

	buf := make([]byte, 0, size)
	buf = append(buf, uint8(OpcodeOpenConnectionReply1))
	buf = append(buf, h.Identity.Magic[:]...)
	buf = be.AppendUint64(buf, h.Identity.GUID)
	buf = append(buf, boolByte(h.Identity.SendCookie))
	if h.Identity.SendCookie {
		buf = be.AppendUint32(buf, cookie)
	}
	buf = be.AppendUint16(buf, mtu)
	return buf, nil
}

func (h *Handler) handleOCR2(sender netip.AddrPort, c *cursor) (reply []byte, err error) {
	decErrMagic := decode(func() { c.take(MagicSize) }) // already verified by Accept
	if decErrMagic != nil {
		return nil, nil
	}

	pending, ok := h.pending.take(sender)
	if !ok {
		h.logger().Debug("raknet: OPEN_CONNECTION_REQUEST_2 without a pending OPEN_CONNECTION_REQUEST_1", "addr", h.addrLog(sender))
		return nil, nil
	}

	if h.Identity.SendCookie {
		var cookie uint32
		decErr := decode(func() {
			cookie = c.u32()
			c.take(1) // client's "using security" flag, unused by the server
		})
		if decErr != nil {
			return nil, nil
		}
		if !cookiesEqual(cookie, pending.Cookie) {
			h.logger().Debug("raknet: OPEN_CONNECTION_REQUEST_2 with invalid cookie", "addr", h.addrLog(sender))
			return nil, nil
		}
	}

	var mtu uint16
	var clientGUID uint64
	decErr := decode(func() {
		_, err := readAddr(c)
		if err != nil {
			panic(errShortBuf{})
		}
		mtu = c.u16()
		clientGUID = c.u64()
	})
	if decErr != nil {
		return nil, nil
	}

	if mtu < h.Identity.MinMTU || mtu > h.Identity.MaxMTU {
		h.logger().Debug("raknet: OPEN_CONNECTION_REQUEST_2 with out-of-range MTU", "addr", h.addrLog(sender), "mtu", mtu)
		return h.replyAlreadyConnected(), nil
	}

	session, err := h.Factory.CreateChildSession(sender, clientGUID, pending.ProtocolVersion, mtu)
	if err != nil {
		return nil, err
	}
	if session == nil {
		h.logger().Debug("raknet: session already exists", "addr", h.addrLog(sender))
		return h.replyAlreadyConnected(), nil
	}

	buf := make([]byte, 0, 1+MagicSize+8+19+2+1)
	buf = append(buf, uint8(OpcodeOpenConnectionReply2))
	buf = append(buf, h.Identity.Magic[:]...)
	buf = be.AppendUint64(buf, h.Identity.GUID)
	buf = writeAddr(buf, sender)
	buf = be.AppendUint16(buf, mtu)
	buf = append(buf, 0) // security = false
	return buf, nil
}

func (h *Handler) replyIncompatibleVersion(latest uint8) []byte {
	buf := make([]byte, 0, 1+1+MagicSize+8)
	buf = append(buf, uint8(OpcodeIncompatibleProtocolVersion))
	buf = append(buf, latest)
	buf = append(buf, h.Identity.Magic[:]...)
	buf = be.AppendUint64(buf, h.Identity.GUID)
	return buf
}

func (h *Handler) replyAlreadyConnected() []byte {
	buf := make([]byte, 0, 1+MagicSize+8)
	buf = append(buf, uint8(OpcodeAlreadyConnected))
	buf = append(buf, h.Identity.Magic[:]...)
	buf = be.AppendUint64(buf, h.Identity.GUID)
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func clampToUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
