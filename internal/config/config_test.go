package config

import (
	"os"
	"path/filepath"
	"testing"

	"ethercat-master/internal/pduloop"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ethercatd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth0
source_mac: "02:00:00:00:00:01"
`)

	cfg, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg.PDU.PoolSize != defaultPoolSize {
		t.Errorf("PoolSize = %d, want %d", cfg.PDU.PoolSize, defaultPoolSize)
	}
	if cfg.PDU.MaxPayload != defaultMaxPayload {
		t.Errorf("MaxPayload = %d, want %d", cfg.PDU.MaxPayload, defaultMaxPayload)
	}
	if cfg.PDU.RetryPolicy != "count" || cfg.PDU.RetryCount != defaultRetryCount {
		t.Errorf("retry = %s/%d, want count/%d", cfg.PDU.RetryPolicy, cfg.PDU.RetryCount, defaultRetryCount)
	}
	if cfg.DC.StaticSyncIterations != defaultStaticSyncIterations {
		t.Errorf("StaticSyncIterations = %d, want %d", cfg.DC.StaticSyncIterations, defaultStaticSyncIterations)
	}
}

func TestLoadYAMLFullySpecified(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth1
source_mac: "02:00:00:00:00:02"
pdu:
  pool_size: 64
  max_payload: 256
  pdu_timeout: 5ms
  state_transition_timeout: 30s
  retry_policy: forever
dc:
  static_sync_iterations: 20000
diagnostics:
  enabled: true
  db_path: /tmp/diag.sqlite
`)

	cfg, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg.PDU.PoolSize != 64 {
		t.Errorf("PoolSize = %d, want 64", cfg.PDU.PoolSize)
	}
	if cfg.PDU.RetryPolicyValue() != pduloop.RetryForever() {
		t.Errorf("RetryPolicyValue = %+v, want RetryForever()", cfg.PDU.RetryPolicyValue())
	}
	if !cfg.Diagnostics.Enabled || cfg.Diagnostics.DBPath != "/tmp/diag.sqlite" {
		t.Errorf("Diagnostics = %+v", cfg.Diagnostics)
	}
}

func TestLoadYAMLRejectsNonPowerOfTwoPoolSize(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth0
source_mac: "02:00:00:00:00:01"
pdu:
  pool_size: 33
`)
	if _, err := LoadYAML(path); err == nil {
		t.Fatalf("expected an error for a non-power-of-two pool_size")
	}
}

func TestLoadYAMLRejectsOversizedPoolSize(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth0
source_mac: "02:00:00:00:00:01"
pdu:
  pool_size: 512
`)
	if _, err := LoadYAML(path); err == nil {
		t.Fatalf("expected an error for pool_size over 256")
	}
}

func TestLoadYAMLRejectsTinyPayload(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth0
source_mac: "02:00:00:00:00:01"
pdu:
  max_payload: 10
`)
	if _, err := LoadYAML(path); err == nil {
		t.Fatalf("expected an error for a too-small max_payload")
	}
}

func TestLoadYAMLRejectsBadMAC(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth0
source_mac: "not-a-mac"
`)
	if _, err := LoadYAML(path); err == nil {
		t.Fatalf("expected an error for an invalid source_mac")
	}
}

func TestLoadYAMLRejectsMissingInterface(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
source_mac: "02:00:00:00:00:01"
`)
	if _, err := LoadYAML(path); err == nil {
		t.Fatalf("expected an error for a missing interface")
	}
}

func TestLoadYAMLFillsDiagnosticsDefaultPath(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
interface: eth0
source_mac: "02:00:00:00:00:01"
diagnostics:
  enabled: true
`)
	cfg, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg.Diagnostics.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.Diagnostics.DBPath, defaultDBPath)
	}
}
