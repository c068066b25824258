// Package health exposes liveness and readiness probes backed by periodic
// background checks. A check flips unhealthy only after three consecutive
// failures and recovers on the first success, so one slow poll does not drop
// the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const failuresToUnhealthy = 3

// probe is a registered check plus its last observed state. poll is only
// called from the probe's own goroutine; state reads come from HTTP handlers.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	mu       sync.Mutex
	failures int
	down     bool
	lastErr  error
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	return &probe{name: name, timeout: timeout, check: check}
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.check(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err == nil {
		p.failures = 0
		p.down = false
		return
	}
	p.failures++
	if p.failures >= failuresToUnhealthy {
		p.down = true
	}
}

// state returns the probe's current health and, when down, the last error.
func (p *probe) state() (down bool, lastErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.down, p.lastErr
}

// Health runs probes and serves the /livez and /readyz endpoints.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New returns a Health with no probes, in the not-ready state.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a process-health probe (goroutine leaks, GC).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a dependency probe (database, cache). A failing
// readiness probe takes the service out of traffic without restarting it.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
}

// Start polls every registered probe at the given interval until Stop or ctx
// cancellation. Each probe gets its own goroutine and an immediate first poll.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append(append([]*probe(nil), h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			p.poll(ctx)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.poll(ctx)
				}
			}
		}(p)
	}
}

// Stop halts polling. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady gates readiness on top of the probes. Flip to false during
// graceful shutdown to drain traffic before closing the listener.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// probe is passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()
	for _, p := range probes {
		if down, _ := p.state(); down {
			return false
		}
	}
	return true
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while liveness probes pass, 503 with the
// failing probes otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.liveness...)
	h.mu.RUnlock()
	serveProbes(w, failing(probes))
}

// ReadyEndpoint serves /readyz: 200 only when SetReady(true) was called and
// every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.readiness...)
	h.mu.RUnlock()

	down := failing(probes)
	if !h.ready.Load() {
		down["_readiness"] = "service is not ready"
	}
	serveProbes(w, down)
}

func failing(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		isDown, lastErr := p.state()
		if !isDown {
			continue
		}
		msg := "check is unhealthy"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		out[p.name] = msg
	}
	return out
}

func serveProbes(w http.ResponseWriter, down map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(down) > 0 {
		resp = probeResponse{Status: "unhealthy", Checks: down}
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
