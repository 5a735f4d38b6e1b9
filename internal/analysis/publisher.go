package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/proctor-go/internal/logger"
)

const publishTimeout = 5 * time.Second

type verdict struct {
	kind      string
	timestamp *int64
	flags     []string
	analysis  any
}

// asyncPublisher keeps broker latency out of the request path. When the
// queue is full new verdicts are dropped and logged.
type asyncPublisher struct {
	target VerdictPublisher
	queue  chan verdict
	wg     sync.WaitGroup
	log    logger.Logger

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
}

func newAsyncPublisher(target VerdictPublisher, size int) *asyncPublisher {
	return &asyncPublisher{
		target: target,
		queue:  make(chan verdict, max(size, 1)),
	}
}

func (p *asyncPublisher) start(log logger.Logger) {
	p.log = log
	p.wg.Go(p.run)
}

func (p *asyncPublisher) run() {
	for v := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.target.PublishVerdict(ctx, v.kind, v.timestamp, v.flags, v.analysis); err != nil {
			p.log.Warn("Failed to publish verdict", logger.String("kind", v.kind), logger.Error(err))
		}
		cancel()
	}
}

// enqueue drops v once the publisher is stopped. A handler can still finish
// after the server's shutdown deadline has passed.
func (p *asyncPublisher) enqueue(v verdict) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Debug("Publisher stopped, dropping verdict", logger.String("kind", v.kind))
		return
	}

	select {
	case p.queue <- v:
	default:
		p.log.Warn("Verdict queue full, dropping verdict", logger.String("kind", v.kind))
	}
}

func (p *asyncPublisher) stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}
