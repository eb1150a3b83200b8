package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theabolton/kroftig-backend/config"
	"github.com/theabolton/kroftig-backend/internal/output"
)

func TestGetOutputFormat(t *testing.T) {
	tests := []struct {
		input string
		want  output.OutputFormat
	}{
		{input: "json", want: output.FormatJSON},
		{input: "JSON", want: output.FormatJSON},
		{input: "csv", want: output.FormatCSV},
		{input: "markdown", want: output.FormatMarkdown},
		{input: "md", want: output.FormatMarkdown},
		{input: "ci", want: output.FormatCI},
		{input: "ndjson", want: output.FormatCI},
		{input: "", want: output.FormatConsole},
		{input: "unknown", want: output.FormatConsole},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := getOutputFormat(tt.input); got != tt.want {
				t.Fatalf("getOutputFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	quiet := newLogger(&buf, false)
	quiet.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug entry written without verbose: %q", buf.String())
	}
	if quiet.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, expected warning", quiet.GetLevel())
	}

	verbose := newLogger(&buf, true)
	verbose.WithField("commit", "abc").Debug("processed commit")
	if !strings.Contains(buf.String(), "processed commit") || !strings.Contains(buf.String(), "commit=abc") {
		t.Errorf("verbose output = %q", buf.String())
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	if err := runApp(t, "init", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Repository.DefaultRevision != "HEAD" {
		t.Errorf("written config = %+v", cfg)
	}

	if err := runApp(t, "init", dir); err == nil {
		t.Error("expected error when the file already exists")
	}
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := runApp(t, "init", "--force", dir); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"defaultRevision": "HEAD"`) {
		t.Errorf("config not overwritten: %s", data)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kroftig.json")
	content := `{"latest": {"relative": true}, "output": {"format": "csv", "top": 5}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f := newLatestFixture(t)

	// File settings apply: relative paths and a top limit of 5.
	out := filepath.Join(t.TempDir(), "report.csv")
	app := App()
	app.ErrWriter = &bytes.Buffer{}
	if err := app.Run([]string{"kroftig", "--config", path, "latest", "--repo", f.dir, "--output", out, "src"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "Path,Kind,") || !strings.Contains(string(data), "\nlib/util.go,blob,") {
		t.Errorf("csv output = %s", data)
	}

	// Flags win over the file.
	report := func() string {
		out := filepath.Join(t.TempDir(), "report.json")
		app := App()
		app.ErrWriter = &bytes.Buffer{}
		args := []string{"kroftig", "--config", path, "latest", "--repo", f.dir, "--format", "json", "--relative=false", "--top", "1", "--output", out, "src"}
		if err := app.Run(args); err != nil {
			t.Fatalf("run: %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		return string(data)
	}()
	if !strings.Contains(report, `"path": "src/lib"`) || strings.Contains(report, `"path": "src/main.go"`) {
		t.Errorf("json output = %s", report)
	}
}
