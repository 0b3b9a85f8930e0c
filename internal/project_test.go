package internal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectRoot returns the absolute path to the project root directory.
// It walks up from the current file's directory until it finds go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (no go.mod found in any parent directory)")
		}
		dir = parent
	}
}

func readFileContent(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(data)
}

func TestInternalSubpackages_Exist(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	expectedPackages := []struct {
		name    string
		pkgDecl string
	}{
		{name: "cli", pkgDecl: "package cli"},
		{name: "config", pkgDecl: "package config"},
		{name: "pipeline", pkgDecl: "package pipeline"},
		{name: "graph", pkgDecl: "package graph"},
		{name: "agent", pkgDecl: "package agent"},
		{name: "scheduler", pkgDecl: "package scheduler"},
		{name: "store", pkgDecl: "package store"},
		{name: "events", pkgDecl: "package events"},
		{name: "dashboard", pkgDecl: "package dashboard"},
		{name: "buildinfo", pkgDecl: "package buildinfo"},
		{name: "jsonutil", pkgDecl: "package jsonutil"},
	}

	for _, pkg := range expectedPackages {
		t.Run(pkg.name, func(t *testing.T) {
			t.Parallel()

			pkgDir := filepath.Join(root, "internal", pkg.name)

			info, err := os.Stat(pkgDir)
			require.NoError(t, err, "internal/%s directory does not exist", pkg.name)
			assert.True(t, info.IsDir(), "internal/%s is not a directory", pkg.name)

			docPath := filepath.Join(pkgDir, "doc.go")
			content := readFileContent(t, docPath)
			assert.Contains(t, content, pkg.pkgDecl,
				"doc.go in internal/%s must contain %q", pkg.name, pkg.pkgDecl)
		})
	}
}

func TestGoMod_Exists(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	require.NoError(t, err, "go.mod does not exist at project root")
}

func TestGoMod_ModulePath(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	assert.Contains(t, content, "module github.com/forge-run/forge",
		"go.mod must declare module path as github.com/forge-run/forge")
}

func TestGoMod_DirectDependencies(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	expectedDeps := []struct {
		name       string
		modulePath string
	}{
		{name: "cobra", modulePath: "github.com/spf13/cobra"},
		{name: "bubbletea", modulePath: "github.com/charmbracelet/bubbletea"},
		{name: "lipgloss", modulePath: "github.com/charmbracelet/lipgloss"},
		{name: "bubbles", modulePath: "github.com/charmbracelet/bubbles"},
		{name: "huh", modulePath: "github.com/charmbracelet/huh"},
		{name: "log", modulePath: "github.com/charmbracelet/log"},
		{name: "toml", modulePath: "github.com/BurntSushi/toml"},
		{name: "sync", modulePath: "golang.org/x/sync"},
		{name: "doublestar", modulePath: "github.com/bmatcuk/doublestar"},
		{name: "testify", modulePath: "github.com/stretchr/testify"},
		{name: "xxhash", modulePath: "github.com/cespare/xxhash"},
	}

	for _, dep := range expectedDeps {
		t.Run(dep.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, content, dep.modulePath,
				"go.mod must declare direct dependency on %s (%s)", dep.name, dep.modulePath)
		})
	}
}

func TestGoMod_NoReplaceDirectives(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "go.mod"))

	assert.NotContains(t, content, "replace ",
		"go.mod must not contain replace directives")
}

func TestSourceFiles_NoInitFunctions(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)

	packages := []string{
		"cli", "config", "pipeline", "graph", "agent",
		"scheduler", "store", "events", "dashboard", "buildinfo", "jsonutil",
	}

	var docFiles []string
	for _, pkg := range packages {
		docFiles = append(docFiles, filepath.Join(root, "internal", pkg, "doc.go"))
	}

	for _, file := range docFiles {
		t.Run(filepath.Base(filepath.Dir(file)), func(t *testing.T) {
			t.Parallel()
			content := readFileContent(t, file)
			assert.NotContains(t, content, "func init()",
				"file %s must not contain init() functions per project conventions", file)
		})
	}
}

func TestMainGo_Exists(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	_, err := os.Stat(filepath.Join(root, "cmd", "forge", "main.go"))
	require.NoError(t, err, "cmd/forge/main.go does not exist")
}

func TestMainGo_PackageMain(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "cmd", "forge", "main.go"))

	assert.Contains(t, content, "package main",
		"cmd/forge/main.go must declare package main")
}

func TestToolsGo_Exists(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	_, err := os.Stat(filepath.Join(root, "tools.go"))
	require.NoError(t, err, "tools.go does not exist at project root")
}

func TestToolsGo_HasBuildTag(t *testing.T) {
	t.Parallel()

	root := projectRoot(t)
	content := readFileContent(t, filepath.Join(root, "tools.go"))

	assert.Contains(t, content, "//go:build tools",
		"tools.go must have //go:build tools build tag")
}
