package source

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/hpungsan/medley/internal/errors"
)

// Pool fans in events from several relays behind the Source interface.
// Connections are dialed lazily and re-dialed when found dead; the same event
// arriving from more than one relay is delivered more than once, which the
// merge layer tolerates.
type Pool struct {
	urls   []string
	logger *log.Logger

	mu    sync.Mutex
	conns map[string]*Relay
}

// NewPool creates a pool over the given relay URLs. Nothing is dialed until
// the first Subscribe.
func NewPool(urls []string, logger *log.Logger) *Pool {
	return &Pool{
		urls:   urls,
		logger: logger,
		conns:  make(map[string]*Relay),
	}
}

// Subscribe subscribes every reachable relay to the same filters and merges
// their streams. It fails only when no relay is reachable.
func (p *Pool) Subscribe(ctx context.Context, filters []Filter) (<-chan Event, error) {
	if len(p.urls) == 0 {
		return nil, errors.NewInvalidRequest("no relays configured")
	}

	out := make(chan Event, subscriptionBuffer)
	var wg sync.WaitGroup
	var lastErr error
	connected := 0

	for _, url := range p.urls {
		relay, err := p.acquire(ctx, url)
		if err != nil {
			p.logger.Warn("skipping unreachable relay", "relay", url, "error", err)
			lastErr = err
			continue
		}

		ch, err := relay.Subscribe(ctx, filters)
		if err != nil {
			p.logger.Warn("subscribe failed", "relay", url, "error", err)
			lastErr = err
			continue
		}

		connected++
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range ch {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if connected == 0 {
		close(out)
		if lastErr == nil {
			lastErr = errors.NewInvalidRequest("no relays configured")
		}
		return nil, lastErr
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// Close tears down every live connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*Relay)
	p.mu.Unlock()

	for _, r := range conns {
		_ = r.Close()
	}
	return nil
}

// acquire returns a live connection for the URL, re-dialing if the cached one
// is dead.
func (p *Pool) acquire(ctx context.Context, url string) (*Relay, error) {
	p.mu.Lock()
	relay, ok := p.conns[url]
	p.mu.Unlock()

	if ok && !relay.Closed() {
		return relay, nil
	}

	relay, err := Dial(ctx, url, p.logger)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.conns[url] = relay
	p.mu.Unlock()
	return relay, nil
}
