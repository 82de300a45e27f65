package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, root string, rel string, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCollectViolationsFlagsLayerLeaks(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "assembly/ballot-engine/domain/entities/ok.go", `package entities

import "time"

var _ = time.Now
`)
	writeSource(t, root, "assembly/ballot-engine/domain/services/leak.go", `package services

import _ "summit/contexts/assembly/ballot-engine/adapters/postgres"
`)
	writeSource(t, root, "assembly/ballot-engine/application/commands/cross.go", `package commands

import _ "summit/contexts/newsroom/approval-workflow/domain/entities"
`)
	writeSource(t, root, "newsroom/approval-workflow/ports/ports.go", `package ports

import (
	_ "summit/contracts/gen/events/v1"
	_ "summit/internal/platform/db"
	_ "summit/internal/shared/outbox"
)
`)
	writeSource(t, root, "newsroom/approval-workflow/application/commands/ok_test.go", `package commands

import _ "summit/contexts/assembly/ballot-engine/adapters/postgres"
`)

	violations := collectViolations(root)

	rules := map[string]int{}
	for _, v := range violations {
		rules[v.Rule]++
	}
	if rules["domain must not import adapters"] != 1 {
		t.Fatalf("expected domain adapter leak, got %+v", violations)
	}
	if rules["cross-module imports are forbidden"] != 1 {
		t.Fatalf("expected cross-module violation, got %+v", violations)
	}
	if rules["ports must not import runtime infrastructure"] != 1 {
		t.Fatalf("expected ports infrastructure violation, got %+v", violations)
	}
	for _, v := range violations {
		if v.Import == "summit/internal/shared/outbox" || v.Import == "summit/contracts/gen/events/v1" {
			t.Fatalf("shared packages must be allowed for ports: %+v", v)
		}
	}
}

func TestIsStdlib(t *testing.T) {
	cases := map[string]bool{
		"context":                       true,
		"encoding/json":                 true,
		"gorm.io/gorm":                  false,
		"summit/internal/shared/outbox": false,
	}
	for path, want := range cases {
		if got := isStdlib(path); got != want {
			t.Fatalf("isStdlib(%q) = %v, want %v", path, got, want)
		}
	}
}
