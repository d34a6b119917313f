package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := rootCmd()

	want := []string{"serve", "lookup", "resolve", "reduce", "classes", "ancestors", "enrich", "version"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
}

func TestSetupLogging(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		if logger := setupLogging(level); logger == nil {
			t.Errorf("setupLogging(%q) returned nil", level)
		}
	}
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	logger := setupLogging("error")
	_, err := loadConfig("/nonexistent/robomcp.yaml", logger)
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("expected read error, got %v", err)
	}
}
