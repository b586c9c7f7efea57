package proxyproto

import (
	"net/netip"
	"strconv"
	"strings"
)

// DecodeV1 parses a PROXY protocol v1 (ASCII) header line. Callers
// conventionally read up to and including the terminating "\r\n" and pass
// the line with that terminator stripped; DecodeV1 trims a trailing
// "\r\n" or "\n" itself as a convenience.
func DecodeV1(header string) (Message, error) {
	header = strings.TrimSuffix(header, "\n")
	header = strings.TrimSuffix(header, "\r")

	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return Message{}, errKind(MalformedV1, "expected 'PROXY' and a proxied protocol, got %q", header)
	}
	if parts[0] != "PROXY" {
		return Message{}, errKind(MalformedV1, "unknown identifier %q", parts[0])
	}

	proto, ok := v1ProxiedProtocols[parts[1]]
	if !ok {
		return Message{}, errKind(UnsupportedV1Protocol, "unsupported v1 proxied protocol %q", parts[1])
	}

	if proto == UNKNOWN {
		return Message{Version: V1, Command: Proxy, ProxiedProtocol: UNKNOWN}, nil
	}

	if len(parts) != 6 {
		return Message{}, errKind(MalformedV1, "expected 6 space-separated fields, got %d", len(parts))
	}

	srcPort, err := parseV1Port(parts[4])
	if err != nil {
		return Message{}, err
	}
	dstPort, err := parseV1Port(parts[5])
	if err != nil {
		return Message{}, err
	}

	if err := validateV1Address(parts[2], proto); err != nil {
		return Message{}, err
	}
	if err := validateV1Address(parts[3], proto); err != nil {
		return Message{}, err
	}

	return Message{
		Version:         V1,
		Command:         Proxy,
		ProxiedProtocol: proto,
		SourceAddress:   parts[2],
		DestAddress:     parts[3],
		SourcePort:      srcPort,
		DestPort:        dstPort,
	}, nil
}

var v1ProxiedProtocols = map[string]ProxiedProtocol{
	"TCP4":    TCP4,
	"TCP6":    TCP6,
	"UNKNOWN": UNKNOWN,
}

func parseV1Port(s string) (uint16, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, errKind(InvalidPort, "invalid port %q (expected 1-65535)", s)
	}
	return uint16(n), nil
}

func validateV1Address(addr string, proto ProxiedProtocol) error {
	parsed, err := netip.ParseAddr(addr)
	if err != nil {
		return errKind(InvalidAddress, "invalid address %q: %v", addr, err)
	}
	if proto == TCP4 && !parsed.Is4() {
		return errKind(InvalidAddress, "%q is not a valid IPv4 address", addr)
	}
	if proto == TCP6 && !(parsed.Is6() && !parsed.Is4In6()) {
		return errKind(InvalidAddress, "%q is not a valid IPv6 address", addr)
	}
	return nil
}
