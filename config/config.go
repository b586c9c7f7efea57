// Package config loads the YAML configuration for a raknetd server and
// derives a raknet.ServerIdentity from it.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/riftcrane/raknet/addrhash"
	"github.com/riftcrane/raknet/raknet"
)

// Config is the on-disk shape of a raknetd configuration file.
type Config struct {
	Listen string `yaml:"listen"`

	Magic                string  `yaml:"magic"` // 32 hex chars = 16 bytes
	GUID                 uint64  `yaml:"guid"`
	Advertisement        string  `yaml:"advertisement"`
	SupportedProtocols   []uint8 `yaml:"supported_protocols"`
	MinMTU               uint16  `yaml:"min_mtu"`
	MaxMTU               uint16  `yaml:"max_mtu"`
	SendCookie           bool    `yaml:"send_cookie"`
	HandlePingExternally bool    `yaml:"handle_ping_externally"`

	ProxyProtocol bool `yaml:"proxy_protocol"`

	LogLevel string `yaml:"log_level"`

	// AddressHashSecretHex, hex-encoded, 32 bytes. A random key is
	// generated at startup if this is empty.
	AddressHashSecretHex string `yaml:"address_hash_secret"`
}

// Default returns a Config with the same baseline values a fresh install
// would want: cookies on, a generous MTU range, info logging.
func Default() *Config {
	return &Config{
		Listen:     ":19132",
		GUID:       0,
		MinMTU:     400,
		MaxMTU:     1492,
		SendCookie: true,
		LogLevel:   "info",
	}
}

// Load reads and parses path, filling unset fields from Default. An
// empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fills in any remaining defaults and rejects configuration that
// cannot produce a valid raknet.ServerIdentity. Configuration errors are
// always caught here, at startup, never at datagram time.
func (c *Config) Validate() error {
	if c.Listen == "" {
		c.Listen = ":19132"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MinMTU == 0 {
		c.MinMTU = 400
	}
	if c.MaxMTU == 0 {
		c.MaxMTU = 1492
	}
	if c.MinMTU > c.MaxMTU {
		return fmt.Errorf("config: min_mtu (%d) > max_mtu (%d)", c.MinMTU, c.MaxMTU)
	}
	if _, err := c.magicBytes(); err != nil {
		return err
	}
	if c.AddressHashSecretHex != "" {
		if _, err := c.addressHashSecretBytes(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) magicBytes() ([raknet.MagicSize]byte, error) {
	var magic [raknet.MagicSize]byte
	b, err := hex.DecodeString(c.Magic)
	if err != nil {
		return magic, fmt.Errorf("config: magic: invalid hex: %w", err)
	}
	if len(b) != raknet.MagicSize {
		return magic, fmt.Errorf("config: magic: got %d bytes, want %d", len(b), raknet.MagicSize)
	}
	copy(magic[:], b)
	return magic, nil
}

func (c *Config) addressHashSecretBytes() ([32]byte, error) {
	var secret [32]byte
	b, err := hex.DecodeString(c.AddressHashSecretHex)
	if err != nil {
		return secret, fmt.Errorf("config: address_hash_secret: invalid hex: %w", err)
	}
	if len(b) != 32 {
		return secret, fmt.Errorf("config: address_hash_secret: got %d bytes, want 32", len(b))
	}
	copy(secret[:], b)
	return secret, nil
}

// Identity derives a raknet.ServerIdentity from c. Validate must be
// called first; Identity does not re-validate.
func (c *Config) Identity() (*raknet.ServerIdentity, error) {
	magic, err := c.magicBytes()
	if err != nil {
		return nil, err
	}

	var adv []byte
	if c.Advertisement != "" {
		adv = []byte(c.Advertisement)
	}

	return raknet.NewServerIdentity(raknet.ServerIdentity{
		GUID:                 c.GUID,
		Magic:                magic,
		Advertisement:        adv,
		SupportedProtocols:   c.SupportedProtocols,
		MinMTU:               c.MinMTU,
		MaxMTU:               c.MaxMTU,
		SendCookie:           c.SendCookie,
		HandlePingExternally: c.HandlePingExternally,
	})
}

// AddressHashSecret returns the configured address-privacy hash key, or a
// freshly generated one if none was configured.
func (c *Config) AddressHashSecret() ([32]byte, error) {
	if c.AddressHashSecretHex == "" {
		return addrhash.NewSecret()
	}
	return c.addressHashSecretBytes()
}
