package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSEWriter_LazyHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := newSSEWriter(rr, nil, time.Now())
	if sw.Started() {
		t.Fatalf("writer started before any frame")
	}
	if rr.Header().Get("Content-Type") != "" {
		t.Fatalf("headers committed before first frame")
	}
	if err := sw.Fragment("x"); err != nil {
		t.Fatalf("fragment: %v", err)
	}
	if !sw.Started() || rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after first frame, got %d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "no-cache" || !rr.Flushed {
		t.Fatalf("expected no-cache and a flush, got %v flushed=%v", rr.Header(), rr.Flushed)
	}
}

func TestSSEWriter_ErrorFraming(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := newSSEWriter(rr, nil, time.Now())
	if err := sw.Error("line one\nline two"); err != nil {
		t.Fatalf("error frame: %v", err)
	}
	want := "data: [ERROR] line one line two\n\ndata: [DONE]\n\n"
	if rr.Body.String() != want {
		t.Fatalf("body=%q want %q", rr.Body.String(), want)
	}
}

func TestSSEWriter_CRLFFragment(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := newSSEWriter(rr, nil, time.Now())
	_ = sw.Fragment("a\r\nb")
	if got, want := rr.Body.String(), "data: a\ndata: b\n\n"; got != want {
		t.Fatalf("body=%q want %q", got, want)
	}
}
