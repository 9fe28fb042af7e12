package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func initBuffer(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	Reset()
	t.Cleanup(Reset)
	var buf bytes.Buffer
	if err := Init(Config{Level: level, Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	_ = Sync()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("not a JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
	}{
		{LevelDebug, []string{"d", "i", "w", "e"}},
		{LevelInfo, []string{"i", "w", "e"}},
		{LevelProgress, []string{"i", "w", "e"}},
		{"", []string{"i", "w", "e"}},
		{LevelMinimal, []string{"w", "e"}},
		{LevelWarn, []string{"w", "e"}},
		{LevelError, []string{"e"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := initBuffer(t, tt.level)
			Debug("d")
			Info("i")
			Warn("w")
			Error("e")

			var got []string
			for _, entry := range lines(t, buf) {
				got = append(got, entry["msg"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("logged %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitRejectsUnknownSettings(t *testing.T) {
	Reset()
	defer Reset()

	if err := Init(Config{Level: "loud"}); err == nil || !strings.Contains(err.Error(), "loud") {
		t.Errorf("Init() error = %v, want unknown level", err)
	}
	if err := Init(Config{Level: LevelInfo, Format: "xml"}); err == nil {
		t.Error("Init() expected error for unknown format")
	}
}

func TestFieldsAndNames(t *testing.T) {
	buf := initBuffer(t, LevelDebug)

	Info("daemon ended", "talk", "t1", "code", 0)
	ForTalk("t2", "dismount").Infow("probe", "host", "h")

	entries := lines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["talk"] != "t1" || entries[0]["code"] != float64(0) {
		t.Errorf("first entry = %v", entries[0])
	}
	second := entries[1]
	if second["talk"] != "t2" || second["logger"] != "dismount" || second["host"] != "h" {
		t.Errorf("second entry = %v", second)
	}
	if caller, _ := second["caller"].(string); !strings.HasPrefix(caller, "log/log_test.go") {
		t.Errorf("caller = %q, want the test file", caller)
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range Levels() {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = false", level)
		}
	}
	if len(Levels()) != 6 {
		t.Errorf("Levels() = %v", Levels())
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(\"verbose\") = true")
	}
}

func TestGetBuildsDefaultOnce(t *testing.T) {
	Reset()
	defer Reset()

	logger := Get()
	if logger == nil {
		t.Fatal("Get() returned nil")
	}
	if logger != Get() {
		t.Error("Get() returned different loggers")
	}
}
