package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// sseWriter frames fragments as server-sent events. Response headers are
// committed lazily with the first frame, so an error surfacing before any
// fragment can still be returned as a JSON body with a proper status.
type sseWriter struct {
	w       http.ResponseWriter
	out     io.Writer
	flush   func()
	start   time.Time
	started bool
	frames  int
}

func newSSEWriter(w http.ResponseWriter, tee io.Writer, start time.Time) *sseWriter {
	sw := &sseWriter{w: w, out: w, start: start, flush: func() {}}
	if tee != nil {
		sw.out = io.MultiWriter(w, tee)
	}
	if f, ok := w.(http.Flusher); ok {
		sw.flush = f.Flush
	}
	return sw
}

// Started reports whether any frame (and therefore the 200 status) was written.
func (sw *sseWriter) Started() bool { return sw.started }

func (sw *sseWriter) begin() {
	if sw.started {
		return
	}
	sw.started = true
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	sw.w.WriteHeader(http.StatusOK)
}

// writeEvent writes one event; each line of data becomes its own data: line.
func (sw *sseWriter) writeEvent(data string) error {
	sw.begin()
	var b strings.Builder
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(sw.out, b.String()); err != nil {
		return err
	}
	sw.flush()
	return nil
}

// Fragment writes one generated fragment and flushes it immediately.
func (sw *sseWriter) Fragment(s string) error {
	if err := sw.writeEvent(s); err != nil {
		return err
	}
	if sw.frames == 0 {
		firstFragmentSeconds.Observe(time.Since(sw.start).Seconds())
	}
	sw.frames++
	fragmentsTotal.Inc()
	return nil
}

// Done writes the terminal [DONE] event.
func (sw *sseWriter) Done() error { return sw.writeEvent("[DONE]") }

// Error writes an [ERROR] event followed by [DONE].
func (sw *sseWriter) Error(msg string) error {
	msg = strings.ReplaceAll(msg, "\n", " ")
	if err := sw.writeEvent("[ERROR] " + msg); err != nil {
		return err
	}
	return sw.Done()
}
