// Package proxyproto decodes HAProxy PROXY protocol headers (v1 text and v2
// binary), recovering the true client address a front-tier load balancer
// prepends to the first datagram of a connection.
package proxyproto

import (
	"fmt"
	"net/netip"
)

// Version is the PROXY protocol header generation.
type Version uint8

const (
	V1 Version = iota + 1
	V2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("Version(%d)", uint8(v))
	}
}

// Command is the PROXY v2 command byte; v1 headers are always PROXY.
type Command uint8

const (
	// Local means "health check, ignore addresses" — the proxy is
	// originating the connection itself, not forwarding one.
	Local Command = iota
	Proxy
)

// ProxiedProtocol is the address family and transport the original
// connection used, as opposed to the family/transport of the PROXY header
// carrier itself.
type ProxiedProtocol uint8

const (
	UNKNOWN ProxiedProtocol = iota
	TCP4
	TCP6
	UDP4
	UDP6
	UnixStream
	UnixDgram
)

func (p ProxiedProtocol) String() string {
	switch p {
	case TCP4:
		return "TCP4"
	case TCP6:
		return "TCP6"
	case UDP4:
		return "UDP4"
	case UDP6:
		return "UDP6"
	case UnixStream:
		return "UNIX_STREAM"
	case UnixDgram:
		return "UNIX_DGRAM"
	default:
		return "UNKNOWN"
	}
}

// isIP reports whether p carries IPv4/IPv6 textual addresses (as opposed to
// UNIX paths or no address at all).
func (p ProxiedProtocol) isIP() bool {
	return p == TCP4 || p == TCP6 || p == UDP4 || p == UDP6
}

func (p ProxiedProtocol) is6() bool {
	return p == TCP6 || p == UDP6
}

func (p ProxiedProtocol) isUnix() bool {
	return p == UnixStream || p == UnixDgram
}

// Message is a decoded PROXY header. Per spec, when ProxiedProtocol is
// UNKNOWN every address/port field is zero/empty: the header carries no
// usable addressing information and callers must fall back to the
// transport-level peer address.
type Message struct {
	Version         Version
	Command         Command
	ProxiedProtocol ProxiedProtocol

	// SourceAddress/DestAddress hold a textual IPv4/IPv6 address for the
	// TCPx/UDPx families, a NUL/length-trimmed path for the UNIX
	// families, and are empty otherwise.
	SourceAddress, DestAddress string
	SourcePort, DestPort       uint16
}

// SourceAddrPort returns the decoded source address as a netip.AddrPort.
// It errors for UNIX and UNKNOWN messages — unlike the original
// implementation's sourceInetSocketAddress(), which resolved any family
// through an IPv4-only resolver, silently mishandling IPv6 text.
func (m Message) SourceAddrPort() (netip.AddrPort, error) {
	return m.addrPort(m.SourceAddress, m.SourcePort)
}

// DestAddrPort returns the decoded destination address as a netip.AddrPort.
// See SourceAddrPort for the family restriction.
func (m Message) DestAddrPort() (netip.AddrPort, error) {
	return m.addrPort(m.DestAddress, m.DestPort)
}

func (m Message) addrPort(address string, port uint16) (netip.AddrPort, error) {
	if !m.ProxiedProtocol.isIP() {
		return netip.AddrPort{}, fmt.Errorf("proxyproto: %s has no IP address", m.ProxiedProtocol)
	}
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("proxyproto: parse %q: %w", address, err)
	}
	return netip.AddrPortFrom(addr, port), nil
}
