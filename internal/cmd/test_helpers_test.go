package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runger/taller/internal/config"
)

// isolate points every XDG directory into a temp dir and clears TALLER_*
// overrides, so commands see a fresh installation.
func isolate(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{"TALLER_SEARCH_MODE", "TALLER_USE_MOCK_DATA", "TALLER_DEBUG", "TALLER_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	disableColors()
	resetFlags(t)
	return config.DefaultPaths()
}

// resetFlags restores command flags after a test changed them.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		searchJSON = false
		serveAddr = ""
		serveMemory = false
		probeQuery = "a"
		probeParallelism = 4
		logsFollow = false
		logsLines = 50
		for _, c := range []string{"json", "addr", "memory", "query", "parallel", "follow", "lines"} {
			for _, cmd := range rootCmd.Commands() {
				if f := cmd.Flags().Lookup(c); f != nil {
					f.Changed = false
				}
			}
		}
	})
}

// execute runs the root command with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

// setConfigValues writes key/value pairs through the config command.
func setConfigValues(t *testing.T, kv ...string) {
	t.Helper()
	for i := 0; i+1 < len(kv); i += 2 {
		if _, err := execute(t, "", "config", kv[i], kv[i+1]); err != nil {
			t.Fatalf("config %s %s: %v", kv[i], kv[i+1], err)
		}
	}
}
