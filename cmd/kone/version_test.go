package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionDefaults(t *testing.T) {
	origVersion := Version
	origGitCommit := GitCommit
	origBuildDate := BuildDate
	defer func() {
		Version = origVersion
		GitCommit = origGitCommit
		BuildDate = origBuildDate
	}()

	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-11-20"

	if Version != "0.1.0-test" {
		t.Errorf("Version = %q, want %q", Version, "0.1.0-test")
	}
	if GitCommit != "abc123" {
		t.Errorf("GitCommit = %q, want %q", GitCommit, "abc123")
	}
	if BuildDate != "2025-11-20" {
		t.Errorf("BuildDate = %q, want %q", BuildDate, "2025-11-20")
	}
}

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}

	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}

	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}

	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
}

func TestVersionCommandOutput(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	for _, want := range []string{"Kone " + Version, "Git Commit: " + GitCommit, "Go Version: " + runtime.Version()} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
