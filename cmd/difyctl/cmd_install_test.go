package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// installBody decodes the JSON body of an install request.
type installBody struct {
	Identifiers []string         `json:"plugin_unique_identifiers"`
	Source      string           `json:"source"`
	Metas       []map[string]any `json:"metas"`
}

func TestInstallCmd_Identifiers(t *testing.T) {
	// Arrange
	var got installBody
	mux := http.NewServeMux()
	mux.HandleFunc("POST /plugin/t1/management/install/identifiers", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeData(t, w, map[string]any{"all_installed": false, "task_id": "task-1"})
	})
	app, buf := newTestApp(t, mux)
	cmd := &InstallCmd{
		Identifier: []string{"acme/a:1.0.0@x", "acme/b:2.0.0@y"},
		Source:     "marketplace",
		Meta:       `{"channel": "stable"}`,
	}

	// Act
	err := cmd.Run(app)

	// Assert
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Source != "marketplace" {
		t.Errorf("source = %q, want marketplace", got.Source)
	}
	if len(got.Metas) != 2 || got.Metas[1]["channel"] != "stable" {
		t.Errorf("metas = %v, want meta repeated per identifier", got.Metas)
	}

	var out installResult
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if out.TaskID != "task-1" || len(out.Identifiers) != 2 {
		t.Errorf("output = %+v", out)
	}
}

func TestInstallCmd_FileUploadsThenInstalls(t *testing.T) {
	// Arrange
	pkgPath := filepath.Join(t.TempDir(), "plugin.difypkg")
	if err := os.WriteFile(pkgPath, []byte("PK-bytes"), 0644); err != nil {
		t.Fatalf("write package: %v", err)
	}

	var got installBody
	mux := http.NewServeMux()
	mux.HandleFunc("POST /plugin/t1/management/install/upload/package", func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("dify_pkg")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if string(data) != "PK-bytes" {
				t.Errorf("uploaded %q", data)
			}
		}
		if r.FormValue("verify_signature") != "true" {
			t.Errorf("verify_signature = %q", r.FormValue("verify_signature"))
		}
		writeData(t, w, map[string]any{"unique_identifier": "acme/up:1.0.0@z", "manifest": map[string]any{"name": "up"}})
	})
	mux.HandleFunc("POST /plugin/t1/management/install/identifiers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeData(t, w, map[string]any{"all_installed": true, "task_id": ""})
	})
	app, _ := newTestApp(t, mux)
	cmd := &InstallCmd{File: pkgPath, Source: "github", VerifySignature: true}

	// Act
	err := cmd.Run(app)

	// Assert
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got.Identifiers) != 1 || got.Identifiers[0] != "acme/up:1.0.0@z" {
		t.Errorf("identifiers = %v", got.Identifiers)
	}
	if got.Source != "package" {
		t.Errorf("source = %q, want package for --file", got.Source)
	}
}

func TestInstallCmd_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  InstallCmd
	}{
		{"nothing to install", InstallCmd{Source: "package"}},
		{"meta and meta file", InstallCmd{Identifier: []string{"a/b:1.0.0@c"}, Meta: "{}", MetaFile: "meta.json", Source: "package"}},
		{"meta not an object", InstallCmd{Identifier: []string{"a/b:1.0.0@c"}, Meta: "[1]", Source: "package"}},
		{"meta invalid json", InstallCmd{Identifier: []string{"a/b:1.0.0@c"}, Meta: "{", Source: "package"}},
		{"zero poll interval", InstallCmd{Identifier: []string{"a/b:1.0.0@c"}, Source: "package", Wait: true}},
		{"negative poll interval", InstallCmd{Identifier: []string{"a/b:1.0.0@c"}, Source: "package", Wait: true, PollInterval: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			app, _ := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}))

			// Act
			err := tt.cmd.Run(app)

			// Assert
			if code, _ := exitStatus(err); code != exitUsage {
				t.Errorf("exit code = %d, want %d (err = %v)", code, exitUsage, err)
			}
		})
	}
}

func TestInstallCmd_Wait(t *testing.T) {
	tests := []struct {
		name     string
		final    string
		wantCode int
	}{
		{"success", "success", exitSuccess},
		{"failure", "failed", exitTaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var polls atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("POST /plugin/t1/management/install/identifiers", func(w http.ResponseWriter, r *http.Request) {
				writeData(t, w, map[string]any{"all_installed": false, "task_id": "task-9"})
			})
			mux.HandleFunc("GET /plugin/t1/management/install/tasks/task-9", func(w http.ResponseWriter, r *http.Request) {
				status := "running"
				if polls.Add(1) >= 2 {
					status = tt.final
				}
				writeData(t, w, map[string]any{
					"status":            status,
					"total_plugins":     1,
					"completed_plugins": 1,
					"plugins":           []any{},
				})
			})
			app, buf := newTestApp(t, mux)
			cmd := &InstallCmd{
				Identifier:   []string{"acme/a:1.0.0@x"},
				Source:       "package",
				Wait:         true,
				PollInterval: time.Millisecond,
			}

			// Act
			err := cmd.Run(app)

			// Assert
			code := exitSuccess
			if err != nil {
				code, _ = exitStatus(err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err = %v)", code, tt.wantCode, err)
			}
			if polls.Load() != 2 {
				t.Errorf("polls = %d, want 2", polls.Load())
			}
			if !strings.Contains(buf.String(), "Task: task-9") {
				t.Errorf("output missing task summary:\n%s", buf.String())
			}
		})
	}
}

func TestUpgradeCmd_ZeroPollInterval(t *testing.T) {
	// Arrange
	app, _ := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	cmd := &UpgradeCmd{Original: "acme/a:1.0.0@x", Replacement: "acme/a:1.1.0@y", Source: "marketplace", Wait: true}

	// Act
	err := cmd.Run(app)

	// Assert
	if code, _ := exitStatus(err); code != exitUsage {
		t.Errorf("exit code = %d, want %d (err = %v)", code, exitUsage, err)
	}
}

func TestWaitForTask_NonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		t.Run(interval.String(), func(t *testing.T) {
			_, err := waitForTask(context.Background(), nil, "t1", "task-1", interval)

			if code, _ := exitStatus(err); code != exitUsage {
				t.Errorf("exit code = %d, want %d (err = %v)", code, exitUsage, err)
			}
		})
	}
}

func TestUpgradeCmd_CheckVersions(t *testing.T) {
	tests := []struct {
		name    string
		cmd     UpgradeCmd
		wantErr string
	}{
		{
			name: "newer version",
			cmd:  UpgradeCmd{Original: "acme/a:1.0.0@x", Replacement: "acme/a:1.1.0@y"},
		},
		{
			name:    "downgrade refused",
			cmd:     UpgradeCmd{Original: "acme/a:1.10.0@x", Replacement: "acme/a:1.9.0@y"},
			wantErr: "not newer",
		},
		{
			name: "downgrade forced",
			cmd:  UpgradeCmd{Original: "acme/a:1.10.0@x", Replacement: "acme/a:1.9.0@y", Force: true},
		},
		{
			name:    "different plugin",
			cmd:     UpgradeCmd{Original: "acme/a:1.0.0@x", Replacement: "acme/b:2.0.0@y", Force: true},
			wantErr: "different plugin",
		},
		{
			name:    "invalid identifier",
			cmd:     UpgradeCmd{Original: "acme/a", Replacement: "acme/a:2.0.0@y"},
			wantErr: "original identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			newTestApp(t, http.NotFoundHandler())

			// Act
			err := tt.cmd.checkVersions()

			// Assert
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("checkVersions() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("checkVersions() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestUpgradeCmd_Run(t *testing.T) {
	// Arrange
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /plugin/t1/management/install/upgrade", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(t, w, map[string]any{"all_installed": true, "task_id": "task-2"})
	})
	app, buf := newTestApp(t, mux)
	cmd := &UpgradeCmd{Original: "acme/a:1.0.0@x", Replacement: "acme/a:1.1.0@y", Source: "marketplace"}

	// Act
	err := cmd.Run(app)

	// Assert
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if body["new_plugin_unique_identifier"] != "acme/a:1.1.0@y" || body["source"] != "marketplace" {
		t.Errorf("body = %v", body)
	}
	if meta, ok := body["meta"].(map[string]any); !ok || len(meta) != 0 {
		t.Errorf("meta = %v, want empty object", body["meta"])
	}
	if !strings.Contains(buf.String(), `"task_id": "task-2"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestUninstallCmd(t *testing.T) {
	tests := []struct {
		name     string
		result   bool
		wantCode int
	}{
		{"uninstalled", true, exitSuccess},
		{"refused", false, exitDaemonError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mux := http.NewServeMux()
			mux.HandleFunc("POST /plugin/t1/management/uninstall", func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body["plugin_installation_id"] != "inst-1" {
					t.Errorf("body = %v", body)
				}
				writeData(t, w, tt.result)
			})
			app, _ := newTestApp(t, mux)

			// Act
			err := (&UninstallCmd{InstallationID: "inst-1"}).Run(app)

			// Assert
			code := exitSuccess
			if err != nil {
				code, _ = exitStatus(err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err = %v)", code, tt.wantCode, err)
			}
		})
	}
}
