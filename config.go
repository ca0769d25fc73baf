package qdemux

import (
	"errors"
	"fmt"

	"github.com/qdemux/qdemux/internal/protocol"
	"github.com/qdemux/qdemux/logging"
)

// A StatelessResetKey is used to derive stateless reset tokens from
// connection IDs.
type StatelessResetKey [32]byte

// Config contains the configuration of a Dispatcher.
type Config struct {
	// Versions are the QUIC versions accepted by the server.
	// If empty, all supported versions are accepted.
	Versions []Version
	// ALPNs are the application protocols the server supports, in
	// preference order. The dispatcher picks the first client-offered
	// protocol contained in this list; if none is, it picks the client's
	// first offer (rejection on ALPN mismatch is left to the session).
	ALPNs []string
	// ConnectionIDLength is the length of the connection IDs this server
	// hands out, and the length used to parse short header packets.
	// If zero, DefaultConnectionIDLength is used.
	ConnectionIDLength int
	// MaxSessionsPerTick caps the number of sessions created per processing
	// cycle. The budget is replenished by ProcessBufferedChlos.
	// If zero, DefaultMaxSessionsPerTick is used.
	MaxSessionsPerTick int
	// StatelessResetKey derives the stateless reset tokens. If nil, a
	// random key is generated and resets are not stable across restarts.
	StatelessResetKey *StatelessResetKey
	Tracer            *logging.Tracer
}

// Clone clones the Config.
// It returns nil when called on a nil Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	copied := *c
	copied.Versions = append([]Version(nil), c.Versions...)
	copied.ALPNs = append([]string(nil), c.ALPNs...)
	return &copied
}

func validateConfig(config *Config) error {
	if config == nil {
		return nil
	}
	for _, v := range config.Versions {
		if !protocol.IsSupportedVersion(protocol.SupportedVersions, v) {
			return fmt.Errorf("invalid QUIC version: %s", v)
		}
	}
	if config.ConnectionIDLength < 0 || config.ConnectionIDLength > protocol.MaxConnectionIDLen {
		return fmt.Errorf("invalid connection ID length: %d", config.ConnectionIDLength)
	}
	if config.ConnectionIDLength != 0 && config.ConnectionIDLength < protocol.MinConnectionIDLenInitial {
		return errors.New("connection ID length must be at least 8 bytes")
	}
	if config.MaxSessionsPerTick < 0 {
		return errors.New("MaxSessionsPerTick must not be negative")
	}
	return nil
}

// populateConfig populates fields in the Config with their default values.
func populateConfig(config *Config) *Config {
	config = config.Clone()
	if config == nil {
		config = &Config{}
	}
	if len(config.Versions) == 0 {
		config.Versions = protocol.SupportedVersions
	}
	if config.ConnectionIDLength == 0 {
		config.ConnectionIDLength = protocol.DefaultConnectionIDLength
	}
	if config.MaxSessionsPerTick == 0 {
		config.MaxSessionsPerTick = protocol.DefaultMaxSessionsPerTick
	}
	return config
}
