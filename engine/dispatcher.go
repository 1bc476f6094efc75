package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Dispatcher races the configured engines against each other with staged
// starts: the cheap engine goes first and heavier ones join after their
// escalation delay unless a result already arrived. Domain memory lets a
// domain skip straight to the engine that last worked for it.
type Dispatcher struct {
	engines []Engine
	delays  []time.Duration
	memory  *DomainMemory
}

// NewDispatcher builds a Dispatcher. engines[i] starts escalationDelays[i]
// after the race begins; missing delays default to zero.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{engines: engines, delays: delays, memory: memory}
}

// Dispatch fetches req.URL with the first engine that succeeds. The request
// mode can pin the race to the HTTP engine or the browser engines; with no
// eligible engine Dispatch fails outright.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	engines := d.eligible(req.Mode)
	if len(engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engine available for mode %q", req.Mode)
	}

	domain := hostOf(req.URL)
	if result, ok := d.tryRemembered(ctx, req, engines, domain); ok {
		return result, nil
	}

	return d.race(ctx, req, engines, domain)
}

// tryRemembered fetches with the engine domain memory recorded for this
// domain, provided the mode allows it. A failure clears the memory so the
// caller falls back to the full race.
func (d *Dispatcher) tryRemembered(ctx context.Context, req *FetchRequest, engines []Engine, domain string) (*FetchResult, bool) {
	name := d.memory.Get(domain)
	if name == "" {
		return nil, false
	}

	for _, eng := range engines {
		if eng.Name() != name {
			continue
		}

		slog.Debug("domain memory hit", "domain", domain, "engine", name)
		result, err := eng.Fetch(ctx, req)
		if err == nil {
			return result, true
		}

		slog.Info("remembered engine failed, falling back to full race",
			"domain", domain, "engine", name, "error", err)
		d.memory.Delete(domain)
		break
	}
	return nil, false
}

// eligible returns the engines the mode allows, in escalation order.
func (d *Dispatcher) eligible(mode string) []Engine {
	var keep func(name string) bool
	switch mode {
	case ModeBrowser:
		keep = func(name string) bool { return strings.HasPrefix(name, "rod") }
	case ModeHTTP:
		keep = func(name string) bool { return name == "http" }
	default:
		// ModeAuto, the empty string, and anything unrecognised race the
		// full set.
		return d.engines
	}

	var out []Engine
	for _, eng := range d.engines {
		if keep(eng.Name()) {
			out = append(out, eng)
		}
	}
	return out
}

// race starts the engines with their escalation delays and keeps the first
// success, cancelling the rest. Delays index the filtered set, so a pinned
// engine always starts immediately.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, engines []Engine, domain string) (*FetchResult, error) {
	type outcome struct {
		result *FetchResult
		err    error
	}

	raceCtx, stop := context.WithCancel(ctx)
	defer stop()

	outcomes := make(chan outcome, len(engines))
	var wg sync.WaitGroup

	for i, eng := range engines {
		var delay time.Duration
		if i < len(d.delays) {
			delay = d.delays[i]
		}

		wg.Add(1)
		go func(eng Engine, delay time.Duration) {
			defer wg.Done()
			if !holdForTurn(raceCtx, delay) {
				return
			}

			slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
			result, err := eng.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
			}
			outcomes <- outcome{result: result, err: err}
		}(eng, delay)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var lastErr error
	for o := range outcomes {
		if o.err != nil {
			lastErr = o.err
			continue
		}

		stop()
		slog.Info("engine won race", "engine", o.result.EngineName, "url", req.URL)
		d.memory.Set(domain, o.result.EngineName)
		return o.result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

// holdForTurn waits out an escalation delay. It returns false when the race
// ended first.
func holdForTurn(ctx context.Context, delay time.Duration) bool {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

// hostOf pulls the hostname out of rawURL, or returns the input unchanged
// when it will not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
