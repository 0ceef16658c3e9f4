package search

import (
	"context"
	"sync"
	"time"

	"stocksearch/internal/stock"

	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

type result struct {
	gen   uint64
	state State
}

// Pipeline turns a stream of query edits into a stream of States for one session.
//
// A single loop goroutine owns the debounce timer, the last settled query and the
// generation counter. Searches run on their own goroutines and report back to the
// loop; a result from an older generation is discarded, so the state always
// reflects the most recently issued query.
type Pipeline struct {
	searcher Searcher
	debounce time.Duration
	logger   *zap.Logger

	queries chan string
	retries chan struct{}
	results chan result
	updates chan State
	stopped chan struct{}

	mu      sync.RWMutex
	current State

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
}

type Option func(*Pipeline)

// WithDebounce sets how long the query must stay unchanged before it is searched.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.debounce = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPipeline(searcher Searcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		searcher: searcher,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		queries:  make(chan string),
		retries:  make(chan struct{}),
		results:  make(chan result),
		updates:  make(chan State, 1),
		stopped:  make(chan struct{}),
		current:  Loading{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the event loop until ctx is done or Close is called. The empty query
// is searched immediately as the initial load.
func (p *Pipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		go p.loop(ctx)
	})
}

// OnQueryChanged feeds one edit of the query text. It blocks until the loop has
// taken it, so it must not be called before Start.
func (p *Pipeline) OnQueryChanged(query string) {
	select {
	case p.queries <- query:
	case <-p.stopped:
	}
}

// Retry searches the last settled query again, skipping debounce and dedupe.
func (p *Pipeline) Retry() {
	select {
	case p.retries <- struct{}{}:
	case <-p.stopped:
	}
}

// Updates delivers the latest state. Intermediate states are dropped when the
// consumer falls behind. The channel is closed once the pipeline stops.
func (p *Pipeline) Updates() <-chan State {
	return p.updates
}

func (p *Pipeline) Current() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Close stops the loop, cancels any running search and waits for the loop to exit.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.startOnce.Do(func() {
			close(p.updates)
			close(p.stopped)
		})
		if p.cancel != nil {
			p.cancel()
		}
		<-p.stopped
	})
}

func (p *Pipeline) loop(ctx context.Context) {
	defer close(p.stopped)
	defer close(p.updates)

	var (
		timer    *time.Timer
		timerC   <-chan time.Time
		pending  string
		settled  string
		gen      uint64
		inFlight context.CancelFunc = func() {}
	)
	defer func() {
		inFlight()
		if timer != nil {
			timer.Stop()
		}
	}()

	settle := func(query string) {
		inFlight()
		gen++
		settled = query

		p.publish(Loading{})

		searchCtx, cancel := context.WithCancel(ctx)
		inFlight = cancel
		go p.run(searchCtx, gen, query)
	}

	settle("")

	for {
		select {
		case <-ctx.Done():
			return

		case query := <-p.queries:
			pending = query
			if timer == nil {
				timer = time.NewTimer(p.debounce)
			} else {
				timer.Reset(p.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if pending == settled {
				continue
			}
			settle(pending)

		case <-p.retries:
			if timerC != nil {
				// a pending edit supersedes the retry
				continue
			}
			settle(settled)

		case r := <-p.results:
			if r.gen != gen {
				p.logger.Debug("dropping superseded search result", zap.Uint64("gen", r.gen), zap.Uint64("current", gen))
				continue
			}
			p.publish(r.state)
		}
	}
}

func (p *Pipeline) run(ctx context.Context, gen uint64, query string) {
	state := p.search(ctx, query)

	select {
	case p.results <- result{gen: gen, state: state}:
	case <-ctx.Done():
	}
}

func (p *Pipeline) search(ctx context.Context, query string) (state State) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("search panicked", zap.String("query", query), zap.Any("panic", r))
			state = Error{Message: stock.GenericMessage}
		}
	}()

	stocks, err := p.searcher.Search(ctx, query)
	if err != nil && ctx.Err() == nil {
		p.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
	}
	return FromResult(query, stocks, err)
}

// publish is only called from the loop goroutine, so the send after draining
// never blocks.
func (p *Pipeline) publish(s State) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	select {
	case <-p.updates:
	default:
	}
	p.updates <- s
}
