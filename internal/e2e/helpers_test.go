package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medchatd/internal/httpapi"
	"medchatd/internal/manager"
	"medchatd/pkg/types"
)

// scriptedEngine replays tokens, optionally holding each one until release
// is closed.
type scriptedEngine struct {
	tokens  []string
	release chan struct{}
	closed  atomic.Bool
}

func (e *scriptedEngine) Generate(ctx context.Context, _ string, _ manager.InferParams, onToken func(string) error) (manager.FinalResult, error) {
	var sb strings.Builder
	for _, tok := range e.tokens {
		if e.release != nil {
			select {
			case <-e.release:
			case <-ctx.Done():
				return manager.FinalResult{Content: sb.String(), FinishReason: manager.FinishCancelled}, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return manager.FinalResult{Content: sb.String(), FinishReason: manager.FinishCancelled}, err
		}
		if err := onToken(tok); err != nil {
			return manager.FinalResult{Content: sb.String()}, err
		}
		sb.WriteString(tok)
	}
	return manager.FinalResult{Content: sb.String(), FinishReason: manager.FinishEOS}, nil
}

func (e *scriptedEngine) Close() error { e.closed.Store(true); return nil }

// countingLoader hands out scriptedEngines and counts loads.
type countingLoader struct {
	mu      sync.Mutex
	loads   int
	tokens  []string
	release chan struct{}
	engines []*scriptedEngine
}

func (l *countingLoader) Load(manager.EngineConfig) (manager.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	e := &scriptedEngine{tokens: l.tokens, release: l.release}
	l.engines = append(l.engines, e)
	return e, nil
}

func (l *countingLoader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *countingLoader) Engine(i int) *scriptedEngine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engines[i]
}

// fakeClock is advanced by tests to drive idle eviction.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memory is a settable host memory reading.
type memory struct {
	mu        sync.Mutex
	total     uint64
	available uint64
}

func (m *memory) set(totalMB, availableMB uint64) {
	m.mu.Lock()
	m.total, m.available = totalMB<<20, availableMB<<20
	m.mu.Unlock()
}

func (m *memory) Sample() (manager.MemorySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return manager.MemorySample{
		TotalBytes:     m.total,
		AvailableBytes: m.available,
		UsedPercent:    100 * float64(m.total-m.available) / float64(m.total),
		ResidentBytes:  256 << 20,
	}, nil
}

type harness struct {
	srv    *httptest.Server
	mgr    *manager.Manager
	loader *countingLoader
	clock  *fakeClock
	mem    *memory
}

func newHarness(t *testing.T, tokens []string, mutate func(*manager.ManagerConfig)) *harness {
	t.Helper()
	h := &harness{
		loader: &countingLoader{tokens: tokens},
		clock:  &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)},
		mem:    &memory{},
	}
	h.mem.set(16384, 8192)
	cfg := manager.ManagerConfig{
		Engine:    manager.EngineConfig{ModelPath: "/models/test.gguf", MaxTokens: 64, Stop: []string{"</s>", "[INST]"}},
		Loader:    h.loader,
		Sampler:   h.mem,
		Reclaimer: manager.ReclaimFunc(func() {}),
		Now:       h.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.mgr = manager.NewWithConfig(cfg)
	h.srv = httptest.NewServer(httpapi.NewMux(h.mgr))
	t.Cleanup(h.srv.Close)
	return h
}

func chatBody(question string, maxTokens int) []byte {
	body := types.ChatRequest{
		Prompt: question,
		Profile: &types.UserProfile{
			FirstName:         "Ada",
			DOB:               "1990-04-12",
			Gender:            "Female",
			MedicalConditions: "Asthma",
			Medications:       "Albuterol",
			HealthGoals:       "Improve sleep",
		},
		MaxTokens: maxTokens,
	}
	b, _ := json.Marshal(body)
	return b
}

func postChat(t *testing.T, base string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(base+"/chat/stream", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

// readEvents collects the data payloads of an SSE stream until EOF.
func readEvents(t *testing.T, r io.Reader) []string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return parseEvents(string(b))
}

// parseEvents splits an SSE body into events, joining multi-line data.
func parseEvents(body string) []string {
	var events []string
	var cur []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if cur != nil {
				events = append(events, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			cur = append(cur, data)
		}
	}
	return events
}

func getHealth(t *testing.T, base string) types.HealthResponse {
	t.Helper()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	var hr types.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return hr
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
