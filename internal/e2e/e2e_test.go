package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"medchatd/internal/manager"
	"medchatd/pkg/types"
)

var answer = []string{"Aim", " for", " about", " two", " liters", " a", " day", "."}

func TestHealthDoesNotLoadEngine(t *testing.T) {
	h := newHarness(t, answer, nil)
	hr := getHealth(t, h.srv.URL)
	if hr.Status != "ok" || hr.EngineLoaded || hr.LastUsedUnix != 0 {
		t.Fatalf("unexpected health: %+v", hr)
	}
	if hr.MemoryUsedPercent != 50 || hr.AvailableMB != 8192 {
		t.Fatalf("memory not reported: %+v", hr)
	}
	if h.loader.Loads() != 0 {
		t.Fatalf("health loaded the engine")
	}
}

func TestChatStreamHonorsMaxTokens(t *testing.T) {
	h := newHarness(t, answer, nil)
	resp := postChat(t, h.srv.URL, chatBody("How much water should I drink?", 3))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q", ct)
	}
	if resp.Header.Get("X-Stream-ID") == "" {
		t.Fatalf("missing stream id")
	}
	events := readEvents(t, resp.Body)
	want := []string{"Aim", " for", " about", "[DONE]"}
	if len(events) != len(want) {
		t.Fatalf("events=%q want %q", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events=%q want %q", events, want)
		}
	}

	hr := getHealth(t, h.srv.URL)
	if !hr.EngineLoaded || hr.LoadsTotal != 1 || hr.LastUsedUnix != h.clock.Now().Unix() {
		t.Fatalf("unexpected health after chat: %+v", hr)
	}
}

func TestChatStreamFullAnswer(t *testing.T) {
	h := newHarness(t, append(append([]string{}, answer...), "</s>", " ignored"), nil)
	resp := postChat(t, h.srv.URL, chatBody("How much water should I drink?", 0))
	defer resp.Body.Close()
	events := readEvents(t, resp.Body)
	if len(events) != len(answer)+1 || events[len(events)-1] != "[DONE]" {
		t.Fatalf("events=%q", events)
	}
	for _, e := range events {
		if e == "</s>" || e == " ignored" {
			t.Fatalf("text after stop sequence leaked: %q", events)
		}
	}
}

func TestIdleEvictionThenReload(t *testing.T) {
	h := newHarness(t, answer, nil)
	mon := manager.NewMonitor(h.mgr, manager.MonitorConfig{IdleTimeout: 180 * time.Second, HighWaterPercent: 80})

	resp := postChat(t, h.srv.URL, chatBody("Is coffee bad for me?", 2))
	readEvents(t, resp.Body)
	resp.Body.Close()

	h.clock.Advance(179 * time.Second)
	if out := mon.Check(); out != manager.CheckNoop {
		t.Fatalf("evicted early: %s", out)
	}
	h.clock.Advance(2 * time.Second)
	if out := mon.Check(); out != manager.CheckIdleEvicted {
		t.Fatalf("expected idle eviction, got %s", out)
	}
	if hr := getHealth(t, h.srv.URL); hr.EngineLoaded || hr.EvictionsTotal != 1 {
		t.Fatalf("unexpected health after eviction: %+v", hr)
	}
	if !h.loader.Engine(0).closed.Load() {
		t.Fatalf("evicted engine not closed")
	}

	resp = postChat(t, h.srv.URL, chatBody("Is coffee bad for me?", 2))
	events := readEvents(t, resp.Body)
	resp.Body.Close()
	if len(events) != 3 || h.loader.Loads() != 2 {
		t.Fatalf("reload failed: events=%q loads=%d", events, h.loader.Loads())
	}
}

func TestPressureEvictionAndInsufficientMemory(t *testing.T) {
	h := newHarness(t, answer, nil)
	mon := manager.NewMonitor(h.mgr, manager.MonitorConfig{IdleTimeout: time.Hour, HighWaterPercent: 80})

	resp := postChat(t, h.srv.URL, chatBody("Should I stretch daily?", 1))
	readEvents(t, resp.Body)
	resp.Body.Close()

	h.mem.set(16384, 256)
	if out := mon.Check(); out != manager.CheckPressureEvicted {
		t.Fatalf("expected pressure eviction, got %s", out)
	}

	resp = postChat(t, h.srv.URL, chatBody("Should I stretch daily?", 1))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	var er types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Code != http.StatusServiceUnavailable {
		t.Fatalf("bad error body: %+v err=%v", er, err)
	}
	if h.loader.Loads() != 1 {
		t.Fatalf("load attempted under memory pressure")
	}
}

func TestSerializedGenerationBackpressure(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, []string{"one", " two"}, func(c *manager.ManagerConfig) {
		c.MaxWait = 50 * time.Millisecond
	})
	h.loader.mu.Lock()
	h.loader.release = release
	h.loader.mu.Unlock()

	type result struct {
		events []string
		status int
		err    error
	}
	first := make(chan result, 1)
	go func() {
		resp, err := http.Post(h.srv.URL+"/chat/stream", "application/json", bytesReader(chatBody("first", 0)))
		if err != nil {
			first <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		first <- result{status: resp.StatusCode, events: parseEvents(string(b)), err: err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for getHealth(t, h.srv.URL).Inflight != 1 {
		if time.Now().After(deadline) {
			close(release)
			t.Fatalf("first generation never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := postChat(t, h.srv.URL, chatBody("second", 0))
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		close(release)
		t.Fatalf("expected 429 with Retry-After, got %d", resp.StatusCode)
	}

	close(release)
	res := <-first
	if res.err != nil || res.status != http.StatusOK {
		t.Fatalf("first request failed: %+v", res)
	}
	if len(res.events) != 3 || res.events[2] != "[DONE]" {
		t.Fatalf("first events=%q", res.events)
	}
	if h.loader.Loads() != 1 {
		t.Fatalf("loads=%d", h.loader.Loads())
	}
}

func TestEvictedWhileQueuedReloads(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, []string{"one", " two"}, nil)
	h.loader.mu.Lock()
	h.loader.release = release
	h.loader.mu.Unlock()

	type result struct {
		events []string
		status int
		err    error
	}
	post := func(q string, out chan<- result) {
		resp, err := http.Post(h.srv.URL+"/chat/stream", "application/json", bytesReader(chatBody(q, 0)))
		if err != nil {
			out <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		out <- result{status: resp.StatusCode, events: parseEvents(string(b)), err: err}
	}
	waitFor := func(what string, cond func(types.HealthResponse) bool) {
		deadline := time.Now().Add(2 * time.Second)
		for !cond(getHealth(t, h.srv.URL)) {
			if time.Now().After(deadline) {
				close(release)
				t.Fatalf("timed out waiting for %s", what)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	first, second := make(chan result, 1), make(chan result, 1)
	go post("first", first)
	waitFor("first generation", func(hr types.HealthResponse) bool { return hr.Inflight == 1 })
	go post("second", second)
	waitFor("second to queue", func(hr types.HealthResponse) bool { return hr.Waiting == 1 })

	h.mgr.Evict()
	close(release)

	for name, ch := range map[string]chan result{"first": first, "second": second} {
		res := <-ch
		if res.err != nil || res.status != http.StatusOK {
			t.Fatalf("%s request: %+v", name, res)
		}
		if len(res.events) != 3 || res.events[2] != "[DONE]" {
			t.Fatalf("%s events=%q", name, res.events)
		}
	}
	if h.loader.Loads() != 2 {
		t.Fatalf("expected a reload for the queued request, loads=%d", h.loader.Loads())
	}
}
