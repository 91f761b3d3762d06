package keepalive

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultInterval matches the idle-shutdown window of free hosting tiers,
// with headroom.
const DefaultInterval = 14 * time.Minute

// Pinger periodically GETs a health endpoint to keep an idle host from
// being shut down. It is an operational workaround, fully independent of
// request handling: its own Start/Stop lifecycle, no shared state with
// the query engine.
type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a pinger for the given health-check URL.
func New(url string, interval time.Duration, logger *log.Logger) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pinger{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger,
	}
}

// Start launches the ping loop. Calling Start on a running pinger is a
// no-op.
func (p *Pinger) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	go p.run(ctx, done)
	p.log.Info("keepalive started", "url", p.url, "interval", p.interval)
}

// Stop cancels the loop and waits for it to exit.
func (p *Pinger) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info("keepalive stopped")
}

func (p *Pinger) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.log.Error("keepalive request build failed", "error", err)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error("keepalive ping failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		p.log.Debug("keepalive ping successful")
		return
	}
	p.log.Warn("keepalive ping returned non-200", "status", fmt.Sprint(resp.StatusCode))
}
