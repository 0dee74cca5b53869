// Package config resolves difyctl's daemon connection settings and paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/d2verb/difyctl/internal/client"
)

// Environment variables read by Resolve.
const (
	EnvURL       = "DIFY_PLUGIN_DAEMON_URL"
	EnvKey       = "DIFY_PLUGIN_DAEMON_KEY"
	EnvTimeout   = "DIFY_PLUGIN_DAEMON_TIMEOUT"
	EnvTenantID  = "DIFY_PLUGIN_TENANT_ID"
	EnvTenant    = "DIFY_PLUGIN_TENANT"
	EnvStateHome = "XDG_STATE_HOME"
)

// Paths holds common paths used by difyctl.
type Paths struct {
	Home   string
	Config string
	Logs   string
	Log    string
}

// GetPaths returns the paths for the current user.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateHome := os.Getenv(EnvStateHome)
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}
	logsDir := filepath.Join(stateHome, "difyctl")
	return &Paths{
		Home:   home,
		Config: filepath.Join(home, ".dify"),
		Logs:   logsDir,
		Log:    filepath.Join(logsDir, "difyctl.log"),
	}, nil
}

// Settings are the optional defaults read from the config file.
type Settings struct {
	URL    string `yaml:"url"`
	Key    string `yaml:"key"`
	Tenant string `yaml:"tenant"`
	// Timeout is in seconds, either a number or a numeric string.
	Timeout any `yaml:"timeout"`
}

// LoadSettings reads the config file at path. The file is YAML; a JSON
// object is accepted as well. A missing or blank file yields empty settings.
// ${VAR} placeholders in string values are replaced from the environment.
func LoadSettings(path string) (*Settings, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory, expected a file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return &Settings{}, nil
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: must contain a mapping: %w", path, err)
	}

	s.URL = expandPlaceholders(s.URL, os.Getenv)
	s.Key = expandPlaceholders(s.Key, os.Getenv)
	s.Tenant = expandPlaceholders(s.Tenant, os.Getenv)
	if t, ok := s.Timeout.(string); ok {
		s.Timeout = expandPlaceholders(t, os.Getenv)
	}
	return &s, nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandPlaceholders(s string, getenv func(string) string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		return getenv(m[2 : len(m)-1])
	})
}

// Overrides are explicit values, typically from command-line flags. Empty
// fields are unset.
type Overrides struct {
	URL     string
	Key     string
	Timeout string
	Tenant  string
}

// Resolved is the effective configuration.
type Resolved struct {
	URL     string
	Key     string
	Timeout time.Duration
	Tenant  string
}

// Resolve applies the precedence explicit > environment > config file >
// default to each setting.
func Resolve(o Overrides, getenv func(string) string, s *Settings) (*Resolved, error) {
	if s == nil {
		s = &Settings{}
	}

	timeout, err := coerceTimeout(o.Timeout, getenv(EnvTimeout), s.Timeout)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		URL:     firstNonEmpty(o.URL, getenv(EnvURL), s.URL, client.DefaultBaseURL),
		Key:     firstNonEmpty(o.Key, getenv(EnvKey), s.Key, client.DefaultAPIKey),
		Timeout: timeout,
		Tenant:  firstNonEmpty(o.Tenant, getenv(EnvTenantID), getenv(EnvTenant), s.Tenant),
	}, nil
}

// ClientConfig returns the connection part of the configuration.
func (r *Resolved) ClientConfig() client.Config {
	return client.Config{BaseURL: r.URL, APIKey: r.Key, Timeout: r.Timeout}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// coerceTimeout returns the first set candidate as a duration in seconds.
func coerceTimeout(candidates ...any) (time.Duration, error) {
	for _, c := range candidates {
		var seconds float64
		switch v := c.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, fmt.Errorf("timeout must be a number, got %q", v)
			}
			seconds = f
		case int:
			seconds = float64(v)
		case float64:
			seconds = v
		default:
			return 0, fmt.Errorf("timeout must be a number, got %v", v)
		}
		if seconds < 0 {
			return 0, fmt.Errorf("timeout must not be negative, got %v", seconds)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return client.DefaultTimeout, nil
}
