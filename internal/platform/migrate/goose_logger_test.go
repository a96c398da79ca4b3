package migrate

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestGooseSlogLoggerPrintf(t *testing.T) {
	var buf bytes.Buffer
	l := gooseSlogLogger{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	l.Printf("OK   %s (%s)\n", "00001_documents.sql", "3ms")

	out := buf.String()
	if !strings.Contains(out, "00001_documents.sql") || !strings.Contains(out, "component=goose") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestGooseSlogLoggerNilLogger(t *testing.T) {
	gooseSlogLogger{}.Printf("ignored %d", 1)
}
