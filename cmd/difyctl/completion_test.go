package main

import (
	"context"
	"net/http"
	"testing"
)

func TestCompletePlugins(t *testing.T) {
	// Arrange
	app, _ := newTestApp(t, listHandler(t,
		pluginJSON("search", "acme/search:1.0.0@abc", nil),
		pluginJSON("notes", "acme/notes:0.2.0@def", nil),
		pluginJSON("openai", "langgenius/openai:0.0.1@123", nil),
	))
	cl, tenant, err := app.Session()
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	tests := []struct {
		name     string
		partial  string
		expected int
	}{
		{"no filter", "", 3},
		{"organization prefix", "acme/", 2},
		{"full prefix", "acme/search:", 1},
		{"no match", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			results := completePlugins(context.Background(), cl, tenant, tt.partial)

			// Assert
			if len(results) != tt.expected {
				t.Errorf("expected %d results, got %d: %v", tt.expected, len(results), results)
			}
		})
	}
}

func TestCompletePlugins_DaemonDown(t *testing.T) {
	// Arrange
	app, _ := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	cl, tenant, _ := app.Session()

	// Act
	results := completePlugins(context.Background(), cl, tenant, "")

	// Assert
	if results != nil {
		t.Errorf("expected no completions, got %v", results)
	}
}

func TestSourceNames(t *testing.T) {
	got := sourceNames()

	want := []string{"github", "marketplace", "package", "remote"}
	if len(got) != len(want) {
		t.Fatalf("sourceNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sourceNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
