package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome creates a temporary home directory for testing.
// Returns the home dir path and a cleanup function.
func setupTestHome(t *testing.T) (string, func()) {
	t.Helper()

	// Create temp dir for fake home
	tmpHome := t.TempDir()

	// Save original HOME
	originalHome := os.Getenv("HOME")

	// Set HOME to temp dir
	os.Setenv("HOME", tmpHome)

	// Return cleanup function
	cleanup := func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		} else {
			os.Unsetenv("HOME")
		}
	}

	return tmpHome, cleanup
}

// writeTestConfig writes YAML content into the allowed config directory
// under the given home, with the given permissions.
func writeTestConfig(t *testing.T, home, content string, perm os.FileMode) string {
	t.Helper()

	configDir := filepath.Join(home, ".config", "copilotd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	return configPath
}

// TestLoadWithFile_ValidYAML tests loading configuration from a valid YAML file.
func TestLoadWithFile_ValidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	yamlContent := `server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 5s

oracle:
  model: gemini-1.5-pro
  temperature: 0.4

logging:
  level: debug
  format: console
`

	configPath := writeTestConfig(t, home, yamlContent, 0600)

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Oracle.Model != "gemini-1.5-pro" {
		t.Errorf("Oracle.Model = %q, want gemini-1.5-pro", cfg.Oracle.Model)
	}
	if cfg.Oracle.Temperature != 0.4 {
		t.Errorf("Oracle.Temperature = %v, want 0.4", cfg.Oracle.Temperature)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}

	// Fields absent from the YAML get defaults
	if cfg.Oracle.BaseURL == "" {
		t.Error("Oracle.BaseURL should fall back to default, got empty")
	}
}

// TestLoadWithFile_EnvironmentOverride tests that environment variables override YAML.
func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	yamlContent := `server:
  port: 9090

oracle:
  model: yaml-model
`

	configPath := writeTestConfig(t, home, yamlContent, 0600)

	// Set environment variables (should override YAML)
	os.Setenv("SERVER_PORT", "7777")
	os.Setenv("ORACLE_MODEL", "env-model")
	os.Setenv("ORACLE_API_KEY", "test-key-123")
	defer os.Unsetenv("SERVER_PORT")
	defer os.Unsetenv("ORACLE_MODEL")
	defer os.Unsetenv("ORACLE_API_KEY")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (from env override)", cfg.Server.Port)
	}
	if cfg.Oracle.Model != "env-model" {
		t.Errorf("Oracle.Model = %q, want env-model (from env override)", cfg.Oracle.Model)
	}

	// The API key arrives as a Secret: redacted in formatting, raw via Value()
	if cfg.Oracle.APIKey.Value() != "test-key-123" {
		t.Errorf("Oracle.APIKey.Value() = %q, want test-key-123", cfg.Oracle.APIKey.Value())
	}
	if cfg.Oracle.APIKey.String() != "[REDACTED]" {
		t.Errorf("Oracle.APIKey.String() = %q, want [REDACTED]", cfg.Oracle.APIKey.String())
	}
}

// TestLoadWithFile_MissingFile tests handling of missing config file.
func TestLoadWithFile_MissingFile(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	// Path in allowed directory, but no file there
	configPath := filepath.Join(home, ".config", "copilotd", "config.yaml")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should not error on missing file, got: %v", err)
	}

	// Defaults apply
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Oracle.Model != "gemini-1.5-flash" {
		t.Errorf("Oracle.Model = %q, want gemini-1.5-flash", cfg.Oracle.Model)
	}
	if cfg.Oracle.Temperature != 0.2 {
		t.Errorf("Oracle.Temperature = %v, want 0.2", cfg.Oracle.Temperature)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false (disabled by default)")
	}
	if cfg.Telemetry.ServiceName != "copilotd" {
		t.Errorf("Telemetry.ServiceName = %q, want copilotd", cfg.Telemetry.ServiceName)
	}
}

// TestLoadWithFile_DefaultPath tests using default config path.
func TestLoadWithFile_DefaultPath(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	writeTestConfig(t, home, "server:\n  port: 9191\n", 0600)

	// Empty path should resolve to ~/.config/copilotd/config.yaml
	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile(\"\") error = %v, want nil", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
}

// TestLoadWithFile_InvalidYAML tests handling of malformed YAML.
func TestLoadWithFile_InvalidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	invalidYAML := `server:
  port: not-a-number
  invalid syntax here
`

	configPath := writeTestConfig(t, home, invalidYAML, 0600)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("LoadWithFile() should error on invalid YAML, got nil")
	}
}

// TestLoadWithFile_Validation tests configuration validation.
func TestLoadWithFile_Validation(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	yamlContent := `server:
  port: 99999
`

	configPath := writeTestConfig(t, home, yamlContent, 0600)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("LoadWithFile() should error on invalid port, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

// TestLoadWithFile_PathTraversal tests path traversal attack prevention.
func TestLoadWithFile_PathTraversal(t *testing.T) {
	_, cleanup := setupTestHome(t)
	defer cleanup()

	_, err := LoadWithFile("../../../../etc/passwd")
	if err == nil {
		t.Error("Expected error for path traversal, got nil")
	}
	if !strings.Contains(err.Error(), "must be in ~/.config/copilotd/ or /etc/copilotd/") {
		t.Errorf("Expected path validation error, got: %v", err)
	}
}

// TestLoadWithFile_InsecurePermissions tests file permission enforcement.
func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	// World-readable config must be rejected
	configPath := writeTestConfig(t, home, "server:\n  port: 9090\n", 0644)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("Expected error for insecure permissions, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "insecure") {
		t.Errorf("Expected 'insecure permissions' error, got: %v", err)
	}
}

// TestLoadWithFile_SecurePermissions tests that 0600 permissions are accepted.
func TestLoadWithFile_SecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, "server:\n  port: 9090\n", 0600)

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should succeed with 0600 permissions, got error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

// TestLoadWithFile_FileTooLarge tests file size limit enforcement.
func TestLoadWithFile_FileTooLarge(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	// Create 2MB file (exceeds 1MB limit)
	largeContent := bytes.Repeat([]byte("# comment line\n"), 150000)
	configPath := writeTestConfig(t, home, string(largeContent), 0600)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("Expected error for large file, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected 'too large' error, got: %v", err)
	}
}

// TestEnsureConfigDir tests config directory creation.
func TestEnsureConfigDir(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}

	configDir := filepath.Join(home, ".config", "copilotd")
	info, err := os.Stat(configDir)
	if err != nil {
		t.Fatalf("Config dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Config path is not a directory")
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0700 {
		t.Errorf("Config dir permissions = %v, want 0700", info.Mode().Perm())
	}
}
