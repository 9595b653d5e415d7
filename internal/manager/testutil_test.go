package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeEngine is a lightweight in-memory engine used for tests. With no tokens
// configured it produces "tok" fragments until stopped.
type fakeEngine struct {
	tokens   []string
	genErr   error
	closeErr error
	// hold, when set, blocks each generation before its first fragment until closed.
	hold chan struct{}
	// started receives once per generation after admission.
	started chan struct{}

	closed  atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
	prompts atomic.Int32
}

func (f *fakeEngine) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	f.prompts.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		}
	}
	if f.genErr != nil {
		return FinalResult{}, f.genErr
	}
	emit := func(t string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return onToken(t)
	}
	if len(f.tokens) > 0 {
		for _, t := range f.tokens {
			if err := emit(t); err != nil {
				return FinalResult{}, err
			}
		}
		return FinalResult{FinishReason: FinishEOS}, nil
	}
	for i := 0; i < 10000; i++ {
		if err := emit("tok"); err != nil {
			return FinalResult{}, err
		}
	}
	return FinalResult{}, errors.New("fake engine ran away")
}

func (f *fakeEngine) Close() error {
	f.closed.Add(1)
	return f.closeErr
}

// fakeLoader counts loads and hands out engines built by next.
type fakeLoader struct {
	mu      sync.Mutex
	loads   int
	err     error
	delay   time.Duration
	gate    chan struct{}
	engines []*fakeEngine
	next    func() *fakeEngine
}

func (l *fakeLoader) Load(cfg EngineConfig) (Engine, error) {
	if l.gate != nil {
		<-l.gate
	}
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	var e *fakeEngine
	if l.next != nil {
		e = l.next()
	} else {
		e = &fakeEngine{}
	}
	l.engines = append(l.engines, e)
	return e, nil
}

func (l *fakeLoader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *fakeLoader) Last() *fakeEngine {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.engines) == 0 {
		return nil
	}
	return l.engines[len(l.engines)-1]
}

// fakeSampler returns scripted samples; the last one repeats.
type fakeSampler struct {
	mu      sync.Mutex
	samples []MemorySample
	err     error
	calls   int
}

func (s *fakeSampler) Sample() (MemorySample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return MemorySample{}, s.err
	}
	if len(s.samples) == 0 {
		return MemorySample{}, nil
	}
	out := s.samples[0]
	if len(s.samples) > 1 {
		s.samples = s.samples[1:]
	}
	return out, nil
}

func (s *fakeSampler) set(samples ...MemorySample) {
	s.mu.Lock()
	s.samples = samples
	s.mu.Unlock()
}

// sample builds a MemorySample for a 16 GiB host with availMB free.
func sample(availMB uint64) MemorySample {
	total := uint64(16 << 30)
	avail := availMB << 20
	return MemorySample{
		TotalBytes:     total,
		AvailableBytes: avail,
		ResidentBytes:  1 << 30,
		UsedPercent:    100 * float64(total-avail) / float64(total),
	}
}

type countingReclaimer struct{ n atomic.Int32 }

func (r *countingReclaimer) Reclaim()    { r.n.Add(1) }
func (r *countingReclaimer) count() int { return int(r.n.Load()) }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// testRig bundles a Manager with its fakes.
type testRig struct {
	m         *Manager
	loader    *fakeLoader
	sampler   *fakeSampler
	reclaimer *countingReclaimer
	clock     *fakeClock
	events    *MemoryPublisher
}

func newRig(t *testing.T, mutate func(*ManagerConfig)) *testRig {
	t.Helper()
	r := &testRig{
		loader:    &fakeLoader{},
		sampler:   &fakeSampler{samples: []MemorySample{sample(8192)}},
		reclaimer: &countingReclaimer{},
		clock:     newFakeClock(),
		events:    NewMemoryPublisher(),
	}
	cfg := ManagerConfig{
		Engine:    EngineConfig{ModelPath: "/models/test.gguf", MaxTokens: 64},
		Loader:    r.loader,
		Sampler:   r.sampler,
		Reclaimer: r.reclaimer,
		Publisher: r.events,
		Now:       r.clock.Now,
		MaxWait:   time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r.m = NewWithConfig(cfg)
	return r
}

// collect returns an emit func appending fragments to out.
func collect(out *[]string) func(string) error {
	var mu sync.Mutex
	return func(s string) error {
		mu.Lock()
		*out = append(*out, s)
		mu.Unlock()
		return nil
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
