package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/riftcrane/raknet/addrhash"
	"github.com/riftcrane/raknet/config"
	"github.com/riftcrane/raknet/logging"
	"github.com/riftcrane/raknet/metrics"
	"github.com/riftcrane/raknet/proxyproto"
	"github.com/riftcrane/raknet/raknet"
	"github.com/riftcrane/raknet/session"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Bind a UDP socket and run the handshake server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a raknetd YAML config file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Setup(cfg.LogLevel)
	log := slog.Default()

	identity, err := cfg.Identity()
	if err != nil {
		return err
	}

	secret, err := cfg.AddressHashSecret()
	if err != nil {
		return err
	}

	pc, err := net.ListenPacket("udp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("raknetd: listen on %s: %w", cfg.Listen, err)
	}
	defer pc.Close()

	manager := session.NewManager(pc)
	defer manager.Close()

	sink := metrics.NewSink()

	handler := raknet.NewHandler(identity, manager)
	handler.Metrics = sink
	handler.Logger = log
	handler.AddrLog = addrhash.Logger(secret)
	defer handler.Close()

	log.Info("raknetd: listening", "addr", cfg.Listen, "proxy_protocol", cfg.ProxyProtocol)

	buf := make([]byte, 65535)
	for {
		n, peer, err := pc.ReadFrom(buf)
		if err != nil {
			log.Error("raknetd: read error", "err", err)
			return err
		}
		data := append([]byte(nil), buf[:n]...)

		sender, payload, err := resolveSender(peer, data, cfg.ProxyProtocol)
		if err != nil {
			log.Debug("raknetd: dropping datagram with bad PROXY header", "err", err)
			continue
		}

		if raknet.Accept(payload, identity.Magic) {
			reply, err := handler.HandleDatagram(sender, payload)
			if err != nil {
				log.Error("raknetd: handshake error", "addr", handler.AddrLog(sender), "err", err)
				continue
			}
			if reply != nil {
				if _, err := pc.WriteTo(reply, peer); err != nil {
					log.Error("raknetd: write error", "err", err)
				}
			}
			continue
		}

		if !manager.Dispatch(sender, payload) {
			log.Debug("raknetd: dropping datagram for unknown session", "addr", handler.AddrLog(sender))
		}
	}
}

// resolveSender returns the address the rest of the server should treat
// as the client's, and the payload with any PROXY header stripped off.
func resolveSender(peer net.Addr, data []byte, proxyEnabled bool) (netip.AddrPort, []byte, error) {
	physical, err := netip.ParseAddrPort(peer.String())
	if err != nil {
		return netip.AddrPort{}, nil, fmt.Errorf("raknetd: unparsable peer address %q: %w", peer.String(), err)
	}
	if !proxyEnabled {
		return physical, data, nil
	}

	if proxyproto.VerifySignature(data) {
		hlen, err := proxyproto.HeaderLen(data)
		if err != nil {
			return netip.AddrPort{}, nil, err
		}
		if hlen > len(data) {
			return netip.AddrPort{}, nil, fmt.Errorf("raknetd: PROXY v2 header longer than datagram")
		}
		msg, err := proxyproto.DecodeV2(data[:hlen])
		if err != nil {
			return netip.AddrPort{}, nil, err
		}
		if msg.ProxiedProtocol == proxyproto.UNKNOWN {
			return physical, data[hlen:], nil
		}
		src, err := msg.SourceAddrPort()
		if err != nil {
			return netip.AddrPort{}, nil, err
		}
		return src, data[hlen:], nil
	}

	// Fall back to v1: a single CRLF-terminated ASCII line.
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			msg, err := proxyproto.DecodeV1(string(data[:i]))
			if err != nil {
				return netip.AddrPort{}, nil, err
			}
			rest := data[i+2:]
			if msg.ProxiedProtocol == proxyproto.UNKNOWN {
				return physical, rest, nil
			}
			src, err := msg.SourceAddrPort()
			if err != nil {
				return netip.AddrPort{}, nil, err
			}
			return src, rest, nil
		}
	}
	return netip.AddrPort{}, nil, fmt.Errorf("raknetd: no PROXY header found in datagram")
}
