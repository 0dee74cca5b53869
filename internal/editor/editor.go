// Package editor lets the user compose JSON arguments in their text editor.
package editor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var fallbackEditors = []string{"nvim", "vim", "vi", "nano"}

// Find returns the editor command to use.
// It checks $EDITOR first, then falls back to nvim, vim, vi, nano.
func Find() (string, error) {
	if ed := os.Getenv("EDITOR"); ed != "" {
		return ed, nil
	}
	for _, ed := range fallbackEditors {
		if path, err := exec.LookPath(ed); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no editor found: set $EDITOR environment variable")
}

// Open opens the given file in the specified editor.
// The editor string is split by whitespace to support values like "code --wait".
// The editor runs in the foreground with stdin/stdout/stderr connected.
func Open(editor, filePath string) error {
	args := strings.Fields(editor)
	if len(args) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	args = append(args, filePath)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run editor %s: %w", editor, err)
	}
	return nil
}

// EditJSON writes initial to a temporary file, opens it in editor and
// returns the saved document, which must be a JSON object.
func EditJSON(editor string, initial map[string]any) (map[string]any, error) {
	data, err := json.MarshalIndent(initial, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}

	f, err := os.CreateTemp("", "difyctl-*.json")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	_, err = f.Write(append(data, '\n'))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	if err := Open(editor, path); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edited file: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(edited, &out); err != nil {
		return nil, fmt.Errorf("edited file is not a JSON object: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("edited file is not a JSON object")
	}
	return out, nil
}
