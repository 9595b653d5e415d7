package httpapi

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("short query override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
	defer SetRequestLogLevel("info")
	SetRequestLogLevel("off")
	r = httptest.NewRequest("GET", "/x", nil)
	if got := requestLogLevel(r); got != LevelOff {
		t.Fatalf("default level not applied: %v", got)
	}
}

func TestFrameLogWriter_SplitsLines(t *testing.T) {
	var buf bytes.Buffer
	lw := &frameLogWriter{log: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	_, _ = lw.Write([]byte("data: a\n\ndata: par"))
	_, _ = lw.Write([]byte("tial\n\n"))

	out := buf.String()
	if !strings.Contains(out, `"frame":"data: a"`) {
		t.Fatalf("missing logged frame: %q", out)
	}
	if !strings.Contains(out, `"frame":"data: partial"`) {
		t.Fatalf("missing joined frame: %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected exactly two log lines, got %q", out)
	}
}

func TestChatStream_DebugLoggingTeesFrames(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())

	svc := &mockService{frags: []string{"hi"}}
	req := httptest.NewRequest("POST", "/chat/stream?log=debug", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status=%d", w.Code)
	}
	out := buf.String()
	for _, want := range []string{"stream start", `"frame":"data: hi"`, `"frame":"data: [DONE]"`, "stream end", "stream_id"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q: %s", want, out)
		}
	}
}
