// Package config loads the YAML configuration a main device starts
// from: which interface to bind, the PDU pool's shape, DC timing, and
// whether to persist diagnostics.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pduloop"
)

// MainDeviceConfig is the root configuration document.
type MainDeviceConfig struct {
	Interface   string            `yaml:"interface"`
	SourceMAC   string            `yaml:"source_mac"`
	PDU         PDUConfig         `yaml:"pdu"`
	DC          DCConfig          `yaml:"dc"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// PDUConfig sizes and times the frame pool.
type PDUConfig struct {
	PoolSize               int           `yaml:"pool_size"`
	MaxPayload             int           `yaml:"max_payload"`
	PDUTimeout             time.Duration `yaml:"pdu_timeout"`
	StateTransitionTimeout time.Duration `yaml:"state_transition_timeout"`
	RetryPolicy            string        `yaml:"retry_policy"` // none | count | forever
	RetryCount             int           `yaml:"retry_count"`
}

// DCConfig governs the Distributed Clocks startup sequence.
type DCConfig struct {
	StaticSyncIterations int `yaml:"static_sync_iterations"`
}

// DiagnosticsConfig toggles the SQLite-backed run history.
type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

const (
	defaultPoolSize               = 32
	defaultMaxPayload             = 128
	defaultPDUTimeout             = 2 * time.Millisecond
	defaultStateTransitionTimeout = 10 * time.Second
	defaultRetryPolicy            = "count"
	defaultRetryCount             = 3
	defaultStaticSyncIterations   = 10_000
	defaultDBPath                 = "./ethercat-diagnostics.sqlite"

	// minFrameBytes is the smallest a slot buffer can be: the Ethernet
	// header, EtherCAT frame header, and one zero-payload PDU's overhead.
	minFrameBytes = 16 + 12
)

// LoadYAML reads and validates a MainDeviceConfig from path, filling in
// defaults for anything left unset.
func LoadYAML(path string) (MainDeviceConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return MainDeviceConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg MainDeviceConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return MainDeviceConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return MainDeviceConfig{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

func (c *MainDeviceConfig) applyDefaults() {
	if c.PDU.PoolSize <= 0 {
		c.PDU.PoolSize = defaultPoolSize
	}
	if c.PDU.MaxPayload <= 0 {
		c.PDU.MaxPayload = defaultMaxPayload
	}
	if c.PDU.PDUTimeout <= 0 {
		c.PDU.PDUTimeout = defaultPDUTimeout
	}
	if c.PDU.StateTransitionTimeout <= 0 {
		c.PDU.StateTransitionTimeout = defaultStateTransitionTimeout
	}
	if c.PDU.RetryPolicy == "" {
		c.PDU.RetryPolicy = defaultRetryPolicy
	}
	if c.PDU.RetryCount <= 0 && c.PDU.RetryPolicy == "count" {
		c.PDU.RetryCount = defaultRetryCount
	}
	if c.DC.StaticSyncIterations == 0 {
		c.DC.StaticSyncIterations = defaultStaticSyncIterations
	}
	if c.Diagnostics.Enabled && c.Diagnostics.DBPath == "" {
		c.Diagnostics.DBPath = defaultDBPath
	}
}

func (c *MainDeviceConfig) validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface must be set")
	}
	if c.SourceMAC == "" {
		return fmt.Errorf("source_mac must be set")
	}
	if _, err := ecat.ParseMAC(c.SourceMAC); err != nil {
		return fmt.Errorf("source_mac: %w", err)
	}

	if c.PDU.PoolSize > 256 || c.PDU.PoolSize&(c.PDU.PoolSize-1) != 0 {
		return fmt.Errorf("pdu.pool_size must be a power of two no greater than 256, got %d", c.PDU.PoolSize)
	}
	if c.PDU.MaxPayload < minFrameBytes {
		return fmt.Errorf("pdu.max_payload must be at least %d bytes to hold an empty frame, got %d", minFrameBytes, c.PDU.MaxPayload)
	}
	switch c.PDU.RetryPolicy {
	case "none", "count", "forever":
	default:
		return fmt.Errorf("pdu.retry_policy must be one of none|count|forever, got %q", c.PDU.RetryPolicy)
	}
	if c.PDU.RetryPolicy == "count" && c.PDU.RetryCount <= 0 {
		return fmt.Errorf("pdu.retry_count must be positive when pdu.retry_policy is count")
	}

	if c.DC.StaticSyncIterations < 0 {
		return fmt.Errorf("dc.static_sync_iterations must not be negative")
	}

	return nil
}

// ParsedSourceMAC re-parses SourceMAC, assumed already validated by
// LoadYAML.
func (c MainDeviceConfig) ParsedSourceMAC() ecat.MAC {
	mac, _ := ecat.ParseMAC(c.SourceMAC)
	return mac
}

// RetryPolicyValue builds the pduloop.RetryPolicy described by PDU.RetryPolicy
// and PDU.RetryCount.
func (c PDUConfig) RetryPolicyValue() pduloop.RetryPolicy {
	switch c.RetryPolicy {
	case "forever":
		return pduloop.RetryForever()
	case "count":
		return pduloop.RetryCount(c.RetryCount)
	default:
		return pduloop.RetryNone()
	}
}
