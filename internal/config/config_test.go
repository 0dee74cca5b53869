package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetPaths(t *testing.T) {
	stateHome := t.TempDir()
	t.Setenv(EnvStateHome, stateHome)

	paths, err := GetPaths()
	if err != nil {
		t.Fatalf("GetPaths() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	logsDir := filepath.Join(stateHome, "difyctl")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Home", paths.Home, home},
		{"Config", paths.Config, filepath.Join(home, ".dify")},
		{"Logs", paths.Logs, logsDir},
		{"Log", paths.Log, filepath.Join(logsDir, "difyctl.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestGetPaths_DefaultStateHome(t *testing.T) {
	t.Setenv(EnvStateHome, "")

	paths, err := GetPaths()
	if err != nil {
		t.Fatalf("GetPaths() error = %v", err)
	}

	if !strings.HasSuffix(paths.Logs, filepath.Join(".local", "state", "difyctl")) {
		t.Errorf("Logs = %q, want under .local/state", paths.Logs)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".dify")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSettings(t *testing.T) {
	t.Run("missing file is empty", func(t *testing.T) {
		s, err := LoadSettings(filepath.Join(t.TempDir(), "nope"))

		if err != nil {
			t.Fatalf("LoadSettings() error = %v", err)
		}
		if *s != (Settings{}) {
			t.Errorf("settings = %+v, want empty", s)
		}
	})

	t.Run("blank file is empty", func(t *testing.T) {
		s, err := LoadSettings(writeConfig(t, "  \n"))

		if err != nil {
			t.Fatalf("LoadSettings() error = %v", err)
		}
		if s.URL != "" || s.Timeout != nil {
			t.Errorf("settings = %+v, want empty", s)
		}
	})

	t.Run("json object", func(t *testing.T) {
		s, err := LoadSettings(writeConfig(t, `{"url": "http://daemon:5002", "key": "k", "tenant": "t1", "timeout": 30}`))

		if err != nil {
			t.Fatalf("LoadSettings() error = %v", err)
		}
		if s.URL != "http://daemon:5002" || s.Key != "k" || s.Tenant != "t1" {
			t.Errorf("settings = %+v", s)
		}
		if s.Timeout != 30 {
			t.Errorf("Timeout = %#v, want 30", s.Timeout)
		}
	})

	t.Run("yaml with placeholders", func(t *testing.T) {
		t.Setenv("TEST_DIFY_KEY", "from-env")

		s, err := LoadSettings(writeConfig(t, "url: http://daemon:5002\nkey: ${TEST_DIFY_KEY}\ntimeout: \"12.5\"\n"))

		if err != nil {
			t.Fatalf("LoadSettings() error = %v", err)
		}
		if s.Key != "from-env" {
			t.Errorf("Key = %q, want %q", s.Key, "from-env")
		}
		if s.Timeout != "12.5" {
			t.Errorf("Timeout = %#v, want \"12.5\"", s.Timeout)
		}
	})

	t.Run("directory is an error", func(t *testing.T) {
		_, err := LoadSettings(t.TempDir())

		if err == nil || !strings.Contains(err.Error(), "directory") {
			t.Errorf("LoadSettings() error = %v, want directory error", err)
		}
	})

	t.Run("non-mapping is an error", func(t *testing.T) {
		_, err := LoadSettings(writeConfig(t, "- a\n- b\n"))

		if err == nil {
			t.Error("LoadSettings() error = nil, want error")
		}
	})
}

func TestResolve(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	t.Run("defaults", func(t *testing.T) {
		got, err := Resolve(Overrides{}, getenv, nil)

		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.URL != "http://localhost:5002" || got.Key != "plugin-api-key" || got.Timeout != 300*time.Second {
			t.Errorf("Resolve() = %+v", got)
		}
		if got.Tenant != "" {
			t.Errorf("Tenant = %q, want empty", got.Tenant)
		}
	})

	t.Run("precedence", func(t *testing.T) {
		settings := &Settings{URL: "http://file", Key: "file-key", Tenant: "file-tenant", Timeout: 10}
		env = map[string]string{
			EnvURL:     "http://env",
			EnvTimeout: "20",
			EnvTenant:  "env-tenant",
		}
		defer func() { env = map[string]string{} }()

		got, err := Resolve(Overrides{URL: "http://flag"}, getenv, settings)

		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.URL != "http://flag" {
			t.Errorf("URL = %q, want flag value", got.URL)
		}
		if got.Key != "file-key" {
			t.Errorf("Key = %q, want file value", got.Key)
		}
		if got.Timeout != 20*time.Second {
			t.Errorf("Timeout = %v, want 20s from env", got.Timeout)
		}
		if got.Tenant != "env-tenant" {
			t.Errorf("Tenant = %q, want env value", got.Tenant)
		}
	})

	t.Run("tenant id env wins over tenant env", func(t *testing.T) {
		env = map[string]string{EnvTenantID: "a", EnvTenant: "b"}
		defer func() { env = map[string]string{} }()

		got, err := Resolve(Overrides{}, getenv, nil)

		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.Tenant != "a" {
			t.Errorf("Tenant = %q, want %q", got.Tenant, "a")
		}
	})

	t.Run("fractional timeout", func(t *testing.T) {
		got, err := Resolve(Overrides{Timeout: "1.5"}, getenv, nil)

		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.Timeout != 1500*time.Millisecond {
			t.Errorf("Timeout = %v, want 1.5s", got.Timeout)
		}
	})

	t.Run("invalid timeout", func(t *testing.T) {
		for _, tm := range []string{"soon", "-1"} {
			if _, err := Resolve(Overrides{Timeout: tm}, getenv, nil); err == nil {
				t.Errorf("Resolve(timeout=%q) error = nil, want error", tm)
			}
		}
	})

	t.Run("client config", func(t *testing.T) {
		got, err := Resolve(Overrides{URL: "http://x", Key: "k", Timeout: "5"}, getenv, nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		cfg := got.ClientConfig()

		if cfg.BaseURL != "http://x" || cfg.APIKey != "k" || cfg.Timeout != 5*time.Second {
			t.Errorf("ClientConfig() = %+v", cfg)
		}
	})
}
