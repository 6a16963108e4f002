package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// testConfig is a simple struct for testing the generic loader
type testConfig struct {
	Name    string `yaml:"name"`
	Port    int    `yaml:"port"`
	Enabled bool   `yaml:"enabled"`
}

func TestLoadConfig_Success(t *testing.T) {
	// Create a temporary YAML file
	content := `name: test-service
port: 8080
enabled: true
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig[testConfig](configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "test-service" {
		t.Errorf("expected Name 'test-service', got '%s'", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected Port 8080, got %d", cfg.Port)
	}
	if !cfg.Enabled {
		t.Errorf("expected Enabled true, got false")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig[testConfig]("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("expected error to contain 'read config file', got: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	// Create a temporary file with invalid YAML
	content := `name: [invalid yaml
port: not closed`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadConfig[testConfig](configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected error to contain 'parse config', got: %v", err)
	}
}

// Property-based test for round-trip consistency
func TestLoadConfig_RoundTrip_Property(t *testing.T) {
	// Property: For any valid config struct, writing to YAML and loading back
	// should produce an equivalent struct.
	for i := 0; i < 100; i++ {
		// Generate random config values
		original := testConfig{
			Name:    randomString(i),
			Port:    (i * 17) % 65535, // Vary port values
			Enabled: i%2 == 0,
		}

		// Write to YAML file
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		yamlData, err := yaml.Marshal(&original)
		if err != nil {
			t.Fatalf("iteration %d: failed to marshal config: %v", i, err)
		}

		if err := os.WriteFile(configPath, yamlData, 0644); err != nil {
			t.Fatalf("iteration %d: failed to write config: %v", i, err)
		}

		// Load back using LoadConfig
		loaded, err := LoadConfig[testConfig](configPath)
		if err != nil {
			t.Fatalf("iteration %d: LoadConfig failed: %v", i, err)
		}

		// Verify equivalence
		if loaded.Name != original.Name {
			t.Errorf("iteration %d: Name mismatch: got %q, want %q", i, loaded.Name, original.Name)
		}
		if loaded.Port != original.Port {
			t.Errorf("iteration %d: Port mismatch: got %d, want %d", i, loaded.Port, original.Port)
		}
		if loaded.Enabled != original.Enabled {
			t.Errorf("iteration %d: Enabled mismatch: got %v, want %v", i, loaded.Enabled, original.Enabled)
		}
	}
}

// randomString generates a deterministic string based on seed for reproducibility
func randomString(seed int) string {
	chars := "abcdefghijklmnopqrstuvwxyz0123456789-_"
	length := (seed % 20) + 1
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = chars[(seed+i*7)%len(chars)]
	}
	return string(result)
}

// writeConfig writes content to a config.yaml in a fresh temp dir
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadClientConfig_Full(t *testing.T) {
	configPath := writeConfig(t, `server:
  host: "mc.example.com"
  port: 25575
password: "hunter2"
read_timeout: 3s
dial_timeout: 1500ms
reassemble: false
log_auth_packets: true
`)

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}

	if cfg.Server.Address() != "mc.example.com:25575" {
		t.Errorf("expected address 'mc.example.com:25575', got %q", cfg.Server.Address())
	}
	if cfg.Password != "hunter2" {
		t.Errorf("expected password 'hunter2', got %q", cfg.Password)
	}
	if cfg.ReadTimeout != 3*time.Second {
		t.Errorf("expected read timeout 3s, got %v", cfg.ReadTimeout)
	}
	if cfg.DialTimeout != 1500*time.Millisecond {
		t.Errorf("expected dial timeout 1.5s, got %v", cfg.DialTimeout)
	}
	if cfg.ReassembleEnabled() {
		t.Error("expected reassembly to be disabled")
	}
	if !cfg.LogAuthPackets {
		t.Error("expected log_auth_packets to be true")
	}
}

func TestLoadClientConfig_Defaults(t *testing.T) {
	configPath := writeConfig(t, `password: "secret"
`)

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}

	if cfg.Server.Host != DefaultHost || cfg.Server.Port != DefaultPort {
		t.Errorf("expected default endpoint, got %q", cfg.Server.Address())
	}
	if cfg.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected default read timeout, got %v", cfg.ReadTimeout)
	}
	if !cfg.ReassembleEnabled() {
		t.Error("expected reassembly to default to enabled")
	}
}

func TestLoadClientConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"HOST", "override.example.com")
	t.Setenv(EnvPrefix+"PORT", "27015")
	t.Setenv(EnvPrefix+"PASSWORD", "from-env")

	configPath := writeConfig(t, `server:
  host: "file.example.com"
  port: 25575
password: "from-file"
`)

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}

	if cfg.Server.Address() != "override.example.com:27015" {
		t.Errorf("expected env endpoint, got %q", cfg.Server.Address())
	}
	if cfg.Password != "from-env" {
		t.Errorf("expected env password, got %q", cfg.Password)
	}
}

func TestLoadClientConfig_InvalidEnvPort(t *testing.T) {
	t.Setenv(EnvPrefix+"PORT", "not-a-port")

	_, err := LoadClientConfig(writeConfig(t, "password: x\n"))
	if err == nil {
		t.Fatal("expected error for invalid env port, got nil")
	}
	if !strings.Contains(err.Error(), "PORT") {
		t.Errorf("expected error about PORT, got: %v", err)
	}
}

func TestLoadClientConfig_InvalidPort(t *testing.T) {
	configPath := writeConfig(t, `server:
  host: "mc.example.com"
  port: 70000
`)

	_, err := LoadClientConfig(configPath)
	if err == nil {
		t.Fatal("expected error for invalid port, got nil")
	}
	if !strings.Contains(err.Error(), "port must be between") {
		t.Errorf("expected error about port range, got: %v", err)
	}
}

func TestLoadClientConfig_PasswordFile(t *testing.T) {
	dir := t.TempDir()
	passwordPath := filepath.Join(dir, "rcon.pass")
	if err := os.WriteFile(passwordPath, []byte("  file-secret\n"), 0600); err != nil {
		t.Fatalf("failed to write password file: %v", err)
	}

	cfg, err := LoadClientConfig(writeConfig(t, "password_file: "+passwordPath+"\n"))
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}
	if cfg.Password != "file-secret" {
		t.Errorf("expected trimmed password 'file-secret', got %q", cfg.Password)
	}
}

func TestLoadClientConfig_EncryptedPasswordFileWithoutPassphrase(t *testing.T) {
	t.Setenv(EnvPrefix+"PASSPHRASE", "")
	passwordPath := writeEncryptedPassword(t, "secret", "passphrase")

	cfg, err := LoadClientConfig(writeConfig(t, "password_file: "+passwordPath+"\n"))
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}
	if cfg.Password != "" {
		t.Errorf("expected password to stay unresolved, got %q", cfg.Password)
	}
	if !cfg.PasswordFileEncrypted() {
		t.Error("expected password file to be reported as encrypted")
	}
}

func TestLoadClientConfig_EncryptedPasswordFileWithPassphrase(t *testing.T) {
	t.Setenv(EnvPrefix+"PASSPHRASE", "passphrase")
	passwordPath := writeEncryptedPassword(t, "secret", "passphrase")

	cfg, err := LoadClientConfig(writeConfig(t, "password_file: "+passwordPath+"\n"))
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}
	if cfg.Password != "secret" {
		t.Errorf("expected decrypted password 'secret', got %q", cfg.Password)
	}
}

// Test file not found error
func TestLoadClientConfig_FileNotFound(t *testing.T) {
	_, err := LoadClientConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("expected error to contain 'read config file', got: %v", err)
	}
}

// Test invalid YAML error
func TestLoadClientConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `server: [invalid yaml
password: not closed`)

	_, err := LoadClientConfig(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected error to contain 'parse config', got: %v", err)
	}
}
