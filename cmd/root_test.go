package cmd

import (
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()

	expected := []string{"serve", "scan", "batch", "generate", "test-connection", "import", "export"}
	for _, name := range expected {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			if err != nil {
				t.Fatalf("Expected command %s: %v", name, err)
			}
			if cmd.Name() != name {
				t.Errorf("Expected %s, got %s", name, cmd.Name())
			}
		})
	}

	for _, flag := range []string{"settings", "db", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Expected persistent flag --%s", flag)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in       string
		n        int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a much longer title", 10, "a much ..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}
