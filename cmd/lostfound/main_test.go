package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"lostfound", "--log-level", "error", "--db", dbPath}, args...))
	return out.String(), err
}

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func TestGlobalFlags(t *testing.T) {
	app := newApp()

	t.Run("connection flags read the environment", func(t *testing.T) {
		for name, env := range map[string]string{
			"db":           "LOSTFOUND_DB",
			"postgres-url": "LOSTFOUND_POSTGRES_URL",
			"nats-url":     "LOSTFOUND_NATS_URL",
		} {
			flag := findStringFlag(app.Flags, name)
			require.NotNil(t, flag, name)
			assert.Equal(t, []string{env}, flag.EnvVars)
		}
	})

	t.Run("log-level defaults to info", func(t *testing.T) {
		flag := findStringFlag(app.Flags, "log-level")
		require.NotNil(t, flag)
		assert.Equal(t, "info", flag.Value)
	})

	t.Run("metrics-addr has no default", func(t *testing.T) {
		flag := findStringFlag(app.Flags, "metrics-addr")
		require.NotNil(t, flag)
		assert.Empty(t, flag.Value)
	})
}

func TestReportCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	t.Run("title is required", func(t *testing.T) {
		_, err := run(t, dbPath, "report", "lost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title")
	})

	t.Run("database is required", func(t *testing.T) {
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out
		t.Setenv("LOSTFOUND_DB", "")
		err := app.Run([]string{"lostfound", "report", "lost", "--title", "phone"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database path is required")
	})

	t.Run("submit and match", func(t *testing.T) {
		out, err := run(t, dbPath, "report", "found",
			"--title", "black leather wallet",
			"--description", "has an ID card inside",
			"--location", "Library")
		require.NoError(t, err)
		assert.Contains(t, out, "Reported found #1: black leather wallet")
		assert.Contains(t, out, "No matches found.")

		out, err = run(t, dbPath, "report", "lost",
			"--title", "black wallet",
			"--description", "leather, contains ID card")
		require.NoError(t, err)
		assert.Contains(t, out, "Reported lost #2")
		assert.Contains(t, out, "1 possible matches:")
		assert.Contains(t, out, "#1  71.68% black leather wallet")
	})

	t.Run("matches for stored report", func(t *testing.T) {
		out, err := run(t, dbPath, "matches", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "#2  71.68% black wallet")
	})

	t.Run("list and stats", func(t *testing.T) {
		out, err := run(t, dbPath, "list", "--kind", "lost")
		require.NoError(t, err)
		assert.Contains(t, out, "#2 [lost/Open] black wallet")

		out, err = run(t, dbPath, "stats")
		require.NoError(t, err)
		assert.Contains(t, out, "Open lost:  1")
		assert.Contains(t, out, "Open found: 1")
		assert.Contains(t, out, "Library: 1")
	})

	t.Run("search and recent", func(t *testing.T) {
		out, err := run(t, dbPath, "search", "library")
		require.NoError(t, err)
		assert.Contains(t, out, "black leather wallet @ Library")
		assert.NotContains(t, out, "#2 ")

		out, err = run(t, dbPath, "recent", "--limit", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Recently lost:\n#2")
	})

	t.Run("resolve", func(t *testing.T) {
		out, err := run(t, dbPath, "resolve", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Resolved found #1")

		_, err = run(t, dbPath, "resolve", "1")
		assert.Error(t, err)

		_, err = run(t, dbPath, "resolve", "abc")
		assert.ErrorContains(t, err, "invalid report id")
	})
}

func TestImportAndRematch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	input := filepath.Join(dir, "reports.jsonl")

	lines := []string{
		`{"kind":"lost","title":"red umbrella","location":"Station"}`,
		``,
		`{"kind":"found","title":"car keys","description":"Toyota brand"}`,
		`{"kind":"found","title":"red umbrella","description":"folding"}`,
	}
	require.NoError(t, os.WriteFile(input, []byte(strings.Join(lines, "\n")), 0644))

	out, err := run(t, dbPath, "import", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 reports, 1 with matches")

	out, err = run(t, dbPath, "rematch", "--kind", "lost")
	require.NoError(t, err)
	assert.Contains(t, out, "lost #1 red umbrella:")
	assert.Contains(t, out, "Swept 1 reports: 1 with matches")

	t.Run("bad kind", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.jsonl")
		require.NoError(t, os.WriteFile(bad, []byte(`{"kind":"stolen","title":"bike"}`), 0644))
		_, err := run(t, dbPath, "import", bad)
		assert.ErrorContains(t, err, "line 1")
	})

	t.Run("invalid rematch settings", func(t *testing.T) {
		_, err := run(t, dbPath, "rematch", "--batch-size", "0")
		assert.ErrorContains(t, err, "batch-size")
	})
}

func TestSetupLogger(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			app := &cli.App{
				Name: "test",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log-level", Value: tc.input},
				},
				Before: setupLogger,
				Action: func(c *cli.Context) error { return nil },
			}
			require.NoError(t, app.Run([]string{"test"}))
			assert.True(t, slog.Default().Enabled(t.Context(), tc.expected))
			assert.False(t, slog.Default().Enabled(t.Context(), tc.expected-1))
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		app := &cli.App{
			Name:   "test",
			Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "verbose"}},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		err := app.Run([]string{"test"})
		assert.ErrorContains(t, err, "invalid log level")
	})
}
