package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/japaniel/lexicard/pkg/config"
)

func TestNewWithConfig(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "import", log.WarnLevel, false, false, log.LogfmtFormatter)

	l.Info("hidden")
	l.Warn("shown", "entries", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	for _, want := range []string{"shown", "entries=3", "import"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q lacks %q", out, want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	var buf bytes.Buffer
	l := FromConfig(&buf, "lexicard", config.LogConfig{Level: "debug", Format: "json"})
	if l.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v; want debug", l.GetLevel())
	}
	l.Debug("opened", "path", "x.db")
	if !strings.Contains(buf.String(), `"path":"x.db"`) {
		t.Errorf("json output lacks path field: %q", buf.String())
	}
	if New("x") == nil {
		t.Error("New returned nil")
	}
}
