package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generate streams fragments from the engine behind h to emit, in order and
// one at a time. It stops on MaxFragments, a stop sequence, engine completion,
// ctx cancellation or an emit failure. Whatever the outcome it records the
// activity with Touch and then runs the Reclaim cleanup hook.
//
// A canceled ctx or a failing emit is not a generation failure: the result
// reports FinishCancelled and the error wraps ctx.Err() or ErrConsumerGone.
func (m *Manager) Generate(ctx context.Context, h *Handle, prompt string, opts GenerateOptions, emit func(string) error) (GenerateResult, error) {
	var res GenerateResult
	if h == nil {
		res.FinishReason = FinishError
		return res, generationError{cause: ErrEngineUnloaded}
	}
	release, err := m.beginGeneration(ctx)
	if err != nil {
		return res, err
	}
	defer release()
	if !h.retain() {
		// Evicted while queued; not a generation failure.
		res.FinishReason = FinishCancelled
		return res, ErrEngineUnloaded
	}
	defer func() {
		h.release()
		m.Touch()
		m.Reclaim()
	}()

	params := m.inferParams(opts)
	cut := newStopCutter(params.Stop)
	var emitErr error
	send := func(out string) error {
		if err := emit(out); err != nil {
			emitErr = err
			return fmt.Errorf("%w: %v", ErrConsumerGone, err)
		}
		res.Fragments++
		return nil
	}
	onToken := func(tok string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, hit := cut.push(tok)
		// The last allowed fragment carries any held-back text with it.
		if !hit && out != "" && params.MaxTokens > 0 && res.Fragments+1 >= params.MaxTokens {
			out += cut.flush()
		}
		if out != "" {
			if err := send(out); err != nil {
				return err
			}
		}
		if hit {
			res.FinishReason = FinishStop
			return errStopGeneration
		}
		if params.MaxTokens > 0 && res.Fragments >= params.MaxTokens {
			res.FinishReason = FinishLength
			return errStopGeneration
		}
		return nil
	}

	_, gerr := runEngine(ctx, h.engine, prompt, params, onToken)
	switch {
	case emitErr != nil:
		res.FinishReason = FinishCancelled
		return res, fmt.Errorf("%w: %v", ErrConsumerGone, emitErr)
	case ctx.Err() != nil:
		res.FinishReason = FinishCancelled
		return res, ctx.Err()
	case res.FinishReason != "":
		// Stopped by us; the engine may or may not echo errStopGeneration.
		return res, nil
	case gerr != nil:
		res.FinishReason = FinishError
		m.log.Warn().Str("event", "generation_failed").Uint64("handle", h.id).Int("fragments", res.Fragments).Err(gerr).Msg("generation failed")
		return res, generationError{cause: gerr}
	}
	// The engine finished; a held-back partial stop sequence is plain text.
	if tail := cut.flush(); tail != "" {
		if err := send(tail); err != nil {
			res.FinishReason = FinishCancelled
			return res, err
		}
	}
	res.FinishReason = FinishEOS
	return res, nil
}

// runEngine calls Engine.Generate, converting panics into errors.
func runEngine(ctx context.Context, eng Engine, prompt string, params InferParams, onToken func(string) error) (fr FinalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	fr, err = eng.Generate(ctx, prompt, params, onToken)
	if errors.Is(err, errStopGeneration) {
		err = nil
	}
	return fr, err
}

// inferParams overlays per-call options on the engine sampling defaults.
func (m *Manager) inferParams(opts GenerateOptions) InferParams {
	p := InferParams{
		Temperature:   zf(opts.Temperature, m.cfg.Temperature),
		TopP:          zf(opts.TopP, m.cfg.TopP),
		TopK:          zn(opts.TopK, m.cfg.TopK),
		RepeatPenalty: zf(opts.RepeatPenalty, m.cfg.RepeatPenalty),
		MaxTokens:     m.cfg.MaxTokens,
		Seed:          opts.Seed,
		Stop:          m.cfg.Stop,
	}
	if opts.MaxFragments > 0 && (p.MaxTokens <= 0 || opts.MaxFragments < p.MaxTokens) {
		p.MaxTokens = opts.MaxFragments
	}
	if len(opts.Stop) > 0 {
		p.Stop = append(append([]string(nil), m.cfg.Stop...), opts.Stop...)
	}
	return p
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// stopCutter detects stop sequences across fragment boundaries. Text that
// could be the beginning of a stop sequence is held back until the next
// fragment decides it, so no part of a stop sequence is ever emitted.
type stopCutter struct {
	stops   []string
	maxHold int
	held    string
}

func newStopCutter(stops []string) *stopCutter {
	c := &stopCutter{}
	for _, s := range stops {
		if s == "" {
			continue
		}
		c.stops = append(c.stops, s)
		if len(s)-1 > c.maxHold {
			c.maxHold = len(s) - 1
		}
	}
	return c
}

// push returns the part of held text plus tok that is safe to emit and
// whether a stop sequence was reached. On a hit the held text is dropped.
func (c *stopCutter) push(tok string) (string, bool) {
	if len(c.stops) == 0 {
		return tok, false
	}
	text := c.held + tok
	c.held = ""
	cutAt := -1
	for _, s := range c.stops {
		if i := strings.Index(text, s); i >= 0 && (cutAt < 0 || i < cutAt) {
			cutAt = i
		}
	}
	if cutAt >= 0 {
		return text[:cutAt], true
	}
	n := c.holdLen(text)
	c.held = text[len(text)-n:]
	return text[:len(text)-n], false
}

// holdLen is the length of the longest suffix of text that is a proper
// prefix of some stop sequence.
func (c *stopCutter) holdLen(text string) int {
	for n := min(len(text), c.maxHold); n > 0; n-- {
		suffix := text[len(text)-n:]
		for _, s := range c.stops {
			if strings.HasPrefix(s, suffix) {
				return n
			}
		}
	}
	return 0
}

// flush returns and clears the held-back text.
func (c *stopCutter) flush() string {
	out := c.held
	c.held = ""
	return out
}
