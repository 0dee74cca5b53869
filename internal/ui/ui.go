// Package ui provides formatted output utilities for the CLI.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/d2verb/difyctl/internal/protocol"
)

// Color functions for consistent styling.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc() // Dimmed text (more readable than gray)
	Bold   = color.New(color.Bold).SprintFunc()
)

// Output is the destination for UI output.
// Defaults to os.Stdout but can be overridden for testing.
var Output io.Writer = os.Stdout

// defaultWrap is the README width used when the terminal size is unknown.
const defaultWrap = 100

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// StatusBadge returns a colored status indicator with label.
func StatusBadge(status protocol.InstallTaskStatus) string {
	switch status {
	case protocol.TaskSuccess:
		return Green("● Success")
	case protocol.TaskRunning:
		return Yellow("◐ Running")
	case protocol.TaskPending:
		return Yellow("○ Pending")
	case protocol.TaskFailed:
		return Red("✗ Failed")
	default:
		return Dim("○ " + string(status))
	}
}

// PluginInfo represents an installed plugin for display.
type PluginInfo struct {
	Name        string
	Identifier  string
	Permissions string
}

// PrintPluginList prints installed plugins, one per line.
func PrintPluginList(plugins []PluginInfo) {
	if len(plugins) == 0 {
		fmt.Fprintln(Output, "No plugins found.")
		return
	}

	for _, p := range plugins {
		// Format: name (identifier) - permissions: summary
		fmt.Fprintf(Output, "%s (%s) - permissions: %s\n",
			Cyan(p.Name),
			p.Identifier,
			Dim(p.Permissions),
		)
	}
}

// PrintTask prints an install task and the progress of each plugin in it.
func PrintTask(task protocol.InstallTask) {
	if task.ID != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Task:"), task.ID)
	}
	fmt.Fprintf(Output, "%s %s\n", Bold("Status:"), StatusBadge(task.Status))
	fmt.Fprintf(Output, "%s %d/%d\n", Bold("Plugins:"), task.CompletedPlugins, task.TotalPlugins)

	for _, p := range task.Plugins {
		line := fmt.Sprintf("  %s %s", StatusBadge(p.Status), p.PluginUniqueIdentifier)
		if p.Message != "" {
			line += " " + Dim(p.Message)
		}
		fmt.Fprintln(Output, line)
	}
}

// PrintTaskList prints a one-line summary per install task.
func PrintTaskList(tasks []protocol.InstallTask) {
	if len(tasks) == 0 {
		fmt.Fprintln(Output, "No install tasks.")
		return
	}

	for _, t := range tasks {
		fmt.Fprintf(Output, "%s %s %s\n",
			t.ID,
			StatusBadge(t.Status),
			Dim(fmt.Sprintf("(%d/%d)", t.CompletedPlugins, t.TotalPlugins)),
		)
	}
}

// PrintJSON writes v as indented JSON.
func PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(Output, string(data))
	return nil
}

// PrintInvokeMessage prints one streamed tool message. Text is written as-is
// so consecutive chunks join up; JSON is indented.
func PrintInvokeMessage(msg protocol.ToolInvokeMessage) error {
	switch msg.Type {
	case protocol.MessageText:
		fmt.Fprint(Output, msg.Text)
		return nil
	case protocol.MessageJSON:
		return PrintJSON(msg.JSON)
	case protocol.MessageBlob:
		fmt.Fprintf(Output, "[%s] %d bytes\n", msg.Type, len(msg.Blob))
		return nil
	default:
		fmt.Fprintf(Output, "[%s] %s\n", msg.Type, string(msg.Raw))
		return nil
	}
}

// RenderMarkdown renders a README for the terminal. Output that is not a
// terminal gets the markdown unchanged.
func RenderMarkdown(markdown string) (string, error) {
	if !IsTerminal(Output) {
		return markdown, nil
	}

	width := defaultWrap
	if f, ok := Output.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// PrintSuccess prints a success message with green checkmark.
func PrintSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", Green("✓"), message)
}

// PrintError prints an error message with red X.
func PrintError(message string) {
	fmt.Fprintf(Output, "%s %s\n", Red("✗"), message)
}

// PrintWarning prints a warning message with yellow exclamation.
func PrintWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", Yellow("⚠"), message)
}

// PrintInfo prints an info message with blue dot.
func PrintInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", Blue("•"), message)
}

// PluginDetails contains manifest information for display.
type PluginDetails struct {
	Identifier  string
	Name        string
	Author      string
	Version     string
	Description string
	Permissions string
	Tools       []string
	Verified    string
}

// PrintPluginDetails prints a plugin manifest in a formatted style.
func PrintPluginDetails(p PluginDetails) {
	if p.Identifier != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Identifier:"), Cyan(p.Identifier))
	}
	fmt.Fprintf(Output, "%s %s\n", Bold("Name:"), Cyan(p.Name))
	fmt.Fprintf(Output, "%s %s\n", Bold("Author:"), p.Author)
	fmt.Fprintf(Output, "%s %s\n", Bold("Version:"), Yellow(p.Version))

	if p.Description != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Description:"), p.Description)
	}
	fmt.Fprintf(Output, "%s %s\n", Bold("Permissions:"), p.Permissions)

	if len(p.Tools) > 0 {
		fmt.Fprintf(Output, "%s %v\n", Bold("Tools:"), p.Tools)
	}
	if p.Verified != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Verified:"), Green(p.Verified))
	}
}
